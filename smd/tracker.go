package smd

// CanOpen is the tri-state result of Tracker.CanOpen (spec.md §4.3):
// 1 means the target subarray is safe to activate, -1 means the
// tracker's view of the bank is stale and must be refreshed with a
// query first, -2 means a chip reports the target subarray locked.
type CanOpen int

const (
	CanOpenStale  CanOpen = -1
	CanOpenLocked CanOpen = -2
	CanOpenOK     CanOpen = 1
)

// mstEntry is one chip's view of one bank's busy subarrays
// (Maintenance Status Table entry in the original source).
type mstEntry struct {
	busySAs []uint32
}

// Tracker is the controller-side table of believed maintenance status
// per chip per bank (spec.md §3 SMDTracker): `maint_status[chip][bank]`
// plus per-bank `last_update_clk` and `inflight` flags. cmd/smdsim
// builds a single Tracker (RSQ and Alert modes); there is no separate
// Tracker for scrub status.
type Tracker struct {
	chips         [][]mstEntry // chips[chipID][globalBank]
	lastUpdateClk []int64      // per global bank
	inflight      []bool       // per global bank

	timeoutPeriod int64
}

// NewTracker allocates a Tracker for numChips chips and numBanks banks,
// with the given ref_tracker_timeout_period.
func NewTracker(numChips, numBanks int, timeoutPeriod int64) *Tracker {
	t := &Tracker{
		chips:         make([][]mstEntry, numChips),
		lastUpdateClk: make([]int64, numBanks),
		inflight:      make([]bool, numBanks),
		timeoutPeriod: timeoutPeriod,
	}
	for i := range t.chips {
		t.chips[i] = make([]mstEntry, numBanks)
	}
	for i := range t.lastUpdateClk {
		t.lastUpdateClk[i] = -1
	}
	return t
}

// Update records the set of busy subarrays chipID reported for
// globalBank at the current clk (called when an RSQ/PRE_RSQ response
// retires in the controller's pending queue).
func (t *Tracker) Update(chipID, globalBank int, busySAs []uint32, clk int64) {
	t.chips[chipID][globalBank].busySAs = busySAs
	t.lastUpdateClk[globalBank] = clk
}

func (t *Tracker) isBankTimedOut(globalBank int, clk int64) bool {
	last := t.lastUpdateClk[globalBank]
	if last < 0 {
		return true
	}
	d := clk - last
	if d < 0 {
		d = -d
	}
	return d > t.timeoutPeriod
}

// CanOpen reports whether (globalBank, saID) may be activated at clk:
// stale if no sufficiently recent report exists, locked if any chip's
// last report named saID as busy, else ok.
func (t *Tracker) CanOpen(globalBank int, saID uint32, clk int64) CanOpen {
	if t.isBankTimedOut(globalBank, clk) {
		return CanOpenStale
	}
	for _, chip := range t.chips {
		for _, sa := range chip[globalBank].busySAs {
			if sa == saID {
				return CanOpenLocked
			}
		}
	}
	return CanOpenOK
}

// FindBankToQuery returns the global bank id most in need of an RSQ:
// preferring, among reqBanks (banks targeted by requests currently
// queued, passed by the controller), the first timed-out bank with no
// query already in flight; falling back to -1 if none qualifies.
func (t *Tracker) FindBankToQuery(reqBanks []int, clk int64) int {
	for _, b := range reqBanks {
		if t.isBankTimedOut(b, clk) && !t.inflight[b] {
			return b
		}
	}
	return -1
}

// MarkInflight/UnmarkInflight track the at-most-one-query-per-bank
// invariant (spec.md §5 Cancellation and timeouts).
func (t *Tracker) MarkInflight(globalBank int)   { t.inflight[globalBank] = true }
func (t *Tracker) UnmarkInflight(globalBank int) { t.inflight[globalBank] = false }
func (t *Tracker) IsInflight(globalBank int) bool { return t.inflight[globalBank] }
