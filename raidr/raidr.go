// Package raidr implements the controller-side RAIDR retention-aware
// refresh policy (spec.md §2 "RAIDR / Graphene (controller-side)"): a
// per-rank Bloom filter samples which rows are "weak" at boot, and the
// refresh sweep refreshes weak rows every pass but strong rows only
// once every four passes (a software approximation of RAIDR's
// bucketed-retention refresh).
package raidr

import (
	"math/rand"

	"github.com/smdsim/dramsim/bloom"
	"github.com/smdsim/dramsim/device"
)

// relaxingFactor mirrors the original source's hardcoded "period_counter
// % 4 == 3" strong-row cadence.
const relaxingFactor = 4

// Policy walks one row per tick (scaled by refreshMult via nREFIInternal)
// across the full address space in a fixed bit-sliced order, refreshing
// it if the per-rank Bloom filter classifies it weak, or every fourth
// pass otherwise.
type Policy struct {
	filters []*bloom.Filter // one per rank

	numRanks, numBanks, numBankGroups, numRows, numSubarrays, numRowsPerSubarray int

	nREFIInternal    uint64
	refreshRowCounter uint64
	periodCounter     uint64
	lastTickedAt      uint64
}

// New builds a Policy. weakRowPct is the percentage (0-100) of rows
// classified weak; nREFIInternal is the number of cycles between
// successive refresh attempts (cmd/smdsim derives it as
// raidr_refresh_period / refresh_mult).
func New(numRanks, numBanks, numBankGroups, numRows, numSubarrays, numRowsPerSubarray int, bfSize uint32, bfHashes int, weakRowPct float64, nREFIInternal uint64, reg interface {
	Add(string, float64)
}) *Policy {
	p := &Policy{
		numRanks: numRanks, numBanks: numBanks, numBankGroups: numBankGroups,
		numRows: numRows, numSubarrays: numSubarrays, numRowsPerSubarray: numRowsPerSubarray,
		nREFIInternal: nREFIInternal,
	}
	for r := 0; r < numRanks; r++ {
		f := bloom.New(bfSize, bfHashes, r, 0, r, nil)
		p.filters = append(p.filters, f)
	}

	// Fixed seed (1337 in the original source) for repeatable sampling of
	// the retention distribution, independent of bf_id (which seeds the
	// H3 hash, not the weak-row sample).
	rng := rand.New(rand.NewSource(1337))
	for rank := 0; rank < numRanks; rank++ {
		for bank := 0; bank < numBanks*numBankGroups; bank++ {
			for row := 0; row < numRows; row++ {
				if rng.Float64()*100 < weakRowPct {
					p.filters[rank].Insert(bfAddr(uint32(bank), uint32(row)))
				}
			}
		}
	}
	return p
}

func bfAddr(bankID, rowID uint32) uint32 { return (rowID << 4) + bankID }

// IsWeakRow reports whether (bank, row) on rank was classified weak.
func (p *Policy) IsWeakRow(rankID, globalBankID int, rowID uint32) bool {
	return p.filters[rankID].Test(bfAddr(uint32(globalBankID), rowID))
}

// Tick advances the internal counter by one cycle, returning an address
// to refresh (and true) whenever nREFIInternal cycles have elapsed since
// the last refresh.
func (p *Policy) Tick(clk uint64) (device.AddrVec, bool) {
	if clk-p.lastTickedAt < p.nREFIInternal {
		return device.AddrVec{}, false
	}
	p.lastTickedAt = clk

	addr := p.addrFromCounter()
	globalBank := addr[device.BankGroup]*p.numBanks + addr[device.Bank]
	row := uint32(addr[device.Subarray])*uint32(p.numRowsPerSubarray) + uint32(addr[device.Row])

	refreshesPerPeriod := uint64(p.numRanks * p.numBanks * p.numBankGroups * p.numRows)
	if p.refreshRowCounter == refreshesPerPeriod {
		p.refreshRowCounter = 0
		p.periodCounter++
	}
	p.refreshRowCounter++

	weak := p.IsWeakRow(addr[device.Rank], globalBank, row)
	if weak {
		return addr, true
	}
	if p.periodCounter%relaxingFactor == relaxingFactor-1 {
		return addr, true
	}
	return device.AddrVec{}, false
}

// addrFromCounter decodes refreshRowCounter's bit-sliced fields into an
// address vector, in the same (bg, bank, rank, subarray, row) bit order
// as the original source's addr_vec_from_refresh_counter.
func (p *Policy) addrFromCounter() device.AddrVec {
	var a device.AddrVec
	rc := p.refreshRowCounter

	bgBits := int(rc) & (bitMask(p.numBankGroups))
	rc >>= uint(log2(p.numBankGroups))
	a[device.BankGroup] = bgBits

	bankBits := int(rc) & (bitMask(p.numBanks))
	rc >>= uint(log2(p.numBanks))
	a[device.Bank] = bankBits

	if p.numRanks > 1 {
		rankBits := int(rc) & (bitMask(p.numRanks))
		rc >>= uint(log2(p.numRanks))
		a[device.Rank] = rankBits
	}

	subarrayBits := int(rc) & (bitMask(p.numSubarrays))
	rc >>= uint(log2(p.numSubarrays))
	a[device.Subarray] = subarrayBits

	rowBits := int(rc) & (bitMask(p.numRowsPerSubarray))
	a[device.Row] = rowBits

	return a
}

func log2(n int) int {
	l := 0
	for (1 << uint(l)) < n {
		l++
	}
	return l
}

func bitMask(n int) int { return (1 << uint(log2(n))) - 1 }
