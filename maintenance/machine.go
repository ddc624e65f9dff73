package maintenance

import (
	"github.com/smdsim/dramsim/fatal"
	"github.com/smdsim/dramsim/simlog"
	"github.com/smdsim/dramsim/smd"
)

// Env is the narrow view of device state a MaintenanceMachine needs:
// whether a bank's target subarray currently has an active (open) row,
// which would make locking it for maintenance unsafe right now.
type Env interface {
	IsSAActive(bankID int, saID uint32) bool
}

// activeLock records that a machine is currently holding a lock on one
// bank, and when it is due to release.
type activeLock struct {
	bankID    int
	saID      uint32
	releaseAt int64
}

// Machine drives a set of per-bank Counters through the SMD locking
// discipline (spec.md §4.4): each tick, try to lock the current bank's
// next counter; on success hold the lock for a fixed duration, then
// release and advance the counter. One Machine owns a disjoint subset of
// a chip's banks (smd_num_ref_machines partitions the bank set), so
// within one chip multiple Machines progress independently.
type Machine struct {
	Locks   *smd.LockTable
	ChipID  int
	Counters []*Counter

	RowGranularity uint32
	NumRows        uint32
	NumSAs         uint32
	MaintLatency   uint64 // cycles to refresh one row
	LockEntireBank bool
	PendingLimit   uint32

	// RankID/Alerts, when Alerts is non-nil, let a successful subarray
	// lock signal the rank's alert line (spec.md §4.4 Alert-mode SMD),
	// so the controller's gateAct/serviceAlerts can observe it.
	RankID int
	Alerts *smd.AlertSet

	// Log, if set, receives the §7 fatal diagnostic before AddPendingMaint
	// panics with a *fatal.Violation.
	Log *simlog.Logger

	cursor int // index into Counters of the next bank to service
	held   *activeLock
}

// NewMachine builds a Machine for the given counters (one per bank it
// owns), sharing lt (the chip's LockTable row).
func NewMachine(lt *smd.LockTable, chipID int, counters []*Counter, rowGranularity, numRows, numSAs uint32, maintLatency uint64, lockEntireBank bool, pendingLimit uint32) *Machine {
	return &Machine{
		Locks: lt, ChipID: chipID, Counters: counters,
		RowGranularity: rowGranularity, NumRows: numRows, NumSAs: numSAs,
		MaintLatency: maintLatency, LockEntireBank: lockEntireBank, PendingLimit: pendingLimit,
	}
}

// Tick advances the machine by one cycle at the given clock, returning
// the global bank id that finished a row-refresh operation this tick, if
// any (used by callers, e.g. the energy callback or a scrub counter, to
// react to a completed maintenance op).
func (m *Machine) Tick(env Env, clk int64) (completedBank int, completed bool) {
	if m.held != nil && clk >= m.held.releaseAt {
		bankID, saID := m.held.bankID, m.held.saID
		m.Locks.Release(m.ChipID, bankID, saID, clk)
		m.advance(bankID)
		m.held = nil
		completedBank, completed = bankID, true
	}

	if m.held != nil || len(m.Counters) == 0 {
		return completedBank, completed
	}

	mc := m.Counters[m.cursor]
	m.cursor = (m.cursor + 1) % len(m.Counters)

	if mc.PendingMaint == 0 {
		return completedBank, completed
	}
	if m.Locks.IsOnCooldown(m.ChipID, mc.BankID, clk) {
		return completedBank, completed
	}
	if env.IsSAActive(mc.BankID, mc.SAID) {
		return completedBank, completed
	}
	if m.Locks.IsUnderMaintenance(m.ChipID, mc.BankID, mc.SAID) {
		return completedBank, completed
	}

	m.Locks.Lock(m.ChipID, mc.BankID, mc.SAID, m.LockEntireBank, clk)
	if m.Alerts != nil {
		m.Alerts.Raise(m.RankID)
	}
	mc.PendingMaint--
	m.held = &activeLock{
		bankID:    mc.BankID,
		saID:      mc.SAID,
		releaseAt: clk + int64(m.MaintLatency*uint64(m.RowGranularity)),
	}
	return completedBank, completed
}

func (m *Machine) advance(bankID int) {
	for _, mc := range m.Counters {
		if mc.BankID == bankID {
			mc.Advance(m.RowGranularity, m.NumRows, m.NumSAs)
			return
		}
	}
}

// AddPendingMaint increments PendingMaint on every counter this machine
// owns, raising a fatal.Violation per-counter if the configured limit is
// exceeded (spec.md §4.4 fixed-rate tick: "increment pending_maint on
// every counter").
func (m *Machine) AddPendingMaint(clk int64) {
	for _, mc := range m.Counters {
		if mc.AddPendingMaint(m.PendingLimit) {
			fatal.Raise(m.Log.RawPtr(), uint64(clk), "maintenance: pending maintenance limit exceeded on bank %d", mc.BankID)
		}
	}
}

// AddPendingMaintIf increments PendingMaint only on counters whose
// current row passes should, used by VariableRefresh to skip rows the
// weak-row filter does not flag (spec.md §4.4 "Variable refresh").
func (m *Machine) AddPendingMaintIf(clk int64, should func(mc *Counter) bool) {
	for _, mc := range m.Counters {
		if should(mc) {
			if mc.AddPendingMaint(m.PendingLimit) {
				fatal.Raise(m.Log.RawPtr(), uint64(clk), "maintenance: pending maintenance limit exceeded on bank %d", mc.BankID)
			}
		}
	}
}
