// Package rowtable tracks, per bank, the currently open row, its
// open-since clock, and its accumulated hit count (spec.md §2 RowTable).
// It is deliberately separate from device.Node's RowState: the device
// tree enforces timing/state correctness, while RowTable exists purely
// so the scheduler and row policy can answer "what row is open, and
// for how long" without walking the tree.
package rowtable

import "github.com/smdsim/dramsim/device"

// Entry describes one bank's open-row bookkeeping.
type Entry struct {
	Open      bool
	Row       int
	OpenSince uint64
	Hits      uint64
}

// Table is indexed rank-major across every rank: rank*banksPerRank +
// device.Org.GlobalBankID (the controller's bankIndex).
type Table struct {
	banks []Entry
}

// New allocates a Table with one entry per bank in the organization.
func New(org device.Org) *Table {
	return &Table{banks: make([]Entry, org.Count[device.Rank]*org.Count[device.BankGroup]*org.Count[device.Bank])}
}

func (t *Table) entry(globalBank int) *Entry { return &t.banks[globalBank] }

// Activate records that globalBank has just opened row at clk.
func (t *Table) Activate(globalBank, row int, clk uint64) {
	e := t.entry(globalBank)
	e.Open = true
	e.Row = row
	e.OpenSince = clk
}

// Precharge closes globalBank's open row, if any.
func (t *Table) Precharge(globalBank int) {
	e := t.entry(globalBank)
	e.Open = false
	e.Row = 0
	e.OpenSince = 0
}

// Access records a column access to row at globalBank, incrementing the
// hit counter when row matches the currently open row. Returns whether it
// was a hit.
func (t *Table) Access(globalBank, row int) bool {
	e := t.entry(globalBank)
	hit := e.Open && e.Row == row
	if hit {
		e.Hits++
	}
	return hit
}

// IsOpen reports whether globalBank currently has an open row, and which
// one.
func (t *Table) IsOpen(globalBank int) (row int, openSince uint64, ok bool) {
	e := t.entry(globalBank)
	return e.Row, e.OpenSince, e.Open
}

// OpenDuration returns clk-OpenSince for an open bank, or 0 if closed.
func (t *Table) OpenDuration(globalBank int, clk uint64) uint64 {
	e := t.entry(globalBank)
	if !e.Open || clk < e.OpenSince {
		return 0
	}
	return clk - e.OpenSince
}

// Hits returns the accumulated hit count for globalBank.
func (t *Table) Hits(globalBank int) uint64 { return t.entry(globalBank).Hits }

// NumBanks returns the number of tracked banks.
func (t *Table) NumBanks() int { return len(t.banks) }
