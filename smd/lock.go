// Package smd implements the Self-Managing DRAM coordination layer
// (spec.md §4.3): the per-chip SALock table that maintenance engines
// mutate, and the controller-side SMDTracker that records what the
// controller currently believes each chip's lock state to be.
//
// Per spec.md §9 DESIGN NOTES, the original source's locked_SAs is a
// single static vector shared across every MaintenancePolicy instance in
// the process; here it is a per-rank LockTable explicitly constructed
// once and passed (borrowed, never copied) to every per-chip policy
// attached to that rank.
package smd

import (
	"github.com/smdsim/dramsim/fatal"
	"github.com/smdsim/dramsim/simlog"
)

// Lock is one chip's per-bank subarray-lock state (spec.md §3 SALock).
// CooldownExp bounds how soon the controller's view of this bank can be
// refreshed again via RSQ, modeling protocol handshake cost.
type Lock struct {
	Locked      bool
	SAID        uint32
	CooldownExp int64
	BankLocked  bool
}

// LockTable holds one Lock per (chip, global bank) pair for a single
// (channel, rank). Every MaintenancePolicy attached to this rank shares
// the same table; mutation discipline (spec.md §5): a policy may mutate
// only its own chip's row, but any chip may read any other chip's row
// (e.g. the controller reading all chips via communicate_locked_SAs).
type LockTable struct {
	chips [][]Lock // chips[chipID][globalBankID]

	// Log, if set, receives the §7 fatal diagnostic before Lock/Release
	// panic with a *fatal.Violation.
	Log *simlog.Logger
}

// NewLockTable allocates a table for numChips chips, each with
// numBanks banks.
func NewLockTable(numChips, numBanks int) *LockTable {
	t := &LockTable{chips: make([][]Lock, numChips)}
	for i := range t.chips {
		t.chips[i] = make([]Lock, numBanks)
	}
	return t
}

// Chip returns the mutable lock slice belonging to chipID. Callers must
// only write entries for their own chip.
func (t *LockTable) Chip(chipID int) []Lock { return t.chips[chipID] }

// Lock marks bank globalBank of chipID as locked by sa, enforcing the
// "at most one lock per (chip, bank)" invariant (spec.md §8 Lock
// exclusivity) and the cooldown precondition (spec.md source: a policy
// may not lock a bank still on cooldown from its last RSQ response).
func (t *LockTable) Lock(chipID, globalBank int, sa uint32, lockEntireBank bool, clk int64) {
	le := &t.chips[chipID][globalBank]
	if le.Locked {
		fatal.Raise(t.Log.RawPtr(), uint64(clk), "smd: bank already has a locked subarray; release it first")
	}
	if le.CooldownExp > clk {
		fatal.Raise(t.Log.RawPtr(), uint64(clk), "smd: cannot lock a bank before its cooldown period expires")
	}
	le.SAID = sa
	le.Locked = true
	le.BankLocked = lockEntireBank
}

// Release clears the lock on globalBank of chipID, provided sa matches
// the currently locked subarray.
func (t *LockTable) Release(chipID, globalBank int, sa uint32, clk int64) {
	le := &t.chips[chipID][globalBank]
	if !le.Locked || le.SAID != sa {
		fatal.Raise(t.Log.RawPtr(), uint64(clk), "smd: releasing a subarray that is not the currently locked one")
	}
	le.Locked = false
	le.BankLocked = false
}

// IsUnderMaintenance reports whether sa (or the whole bank) is currently
// locked on chipID's globalBank.
func (t *LockTable) IsUnderMaintenance(chipID, globalBank int, sa uint32) bool {
	le := t.chips[chipID][globalBank]
	return (le.Locked && le.SAID == sa) || le.BankLocked
}

// IsOnCooldown reports whether globalBank's cooldown on chipID has not
// yet expired at clk.
func (t *LockTable) IsOnCooldown(chipID, globalBank int, clk int64) bool {
	return t.chips[chipID][globalBank].CooldownExp > clk
}

// CommunicateLockedSAs reports the subarrays (at most one per chip,
// since at most one SA per bank is locked) currently locked on
// globalBank across all chips, and refreshes each chip's cooldown
// timer — mirrors MaintenancePolicy::communicate_locked_SAs, called when
// the controller issues an RSQ/PRE_RSQ.
func (t *LockTable) CommunicateLockedSAs(globalBank int, clk, timeoutPeriod int64) []uint32 {
	var locked []uint32
	for i := range t.chips {
		le := &t.chips[i][globalBank]
		if le.Locked {
			locked = append(locked, le.SAID)
		}
		le.CooldownExp = clk + timeoutPeriod
	}
	return locked
}

// NumChips reports the number of chips sharing this table.
func (t *LockTable) NumChips() int { return len(t.chips) }

// CountLocked reports how many chips currently have sa locked (or their
// whole bank locked) on globalBank — used by ACT-NACK mode to classify
// a just-issued ACT as a full NACK (every chip locked, no valid copy
// reachable), a partial NACK (some but not all), or a silent success.
func (t *LockTable) CountLocked(globalBank int, sa uint32) int {
	n := 0
	for i := range t.chips {
		le := t.chips[i][globalBank]
		if le.BankLocked || (le.Locked && le.SAID == sa) {
			n++
		}
	}
	return n
}
