// Package scrub implements the controller-driven memory scrubber
// (spec.md §2 MemoryScrubber, §4.4): a periodic full-memory walk that
// issues ordinary READs to every column of every row in turn, as an
// alternative to the per-chip SMD ECC-scrubbing policy.
package scrub

import (
	"github.com/smdsim/dramsim/device"
	"github.com/smdsim/dramsim/fatal"
	"github.com/smdsim/dramsim/simlog"
)

// Counter walks every (rank, bank, subarray, row, column) position, one
// column per advance: column varies fastest, then rank, bank, row, and
// subarray slowest (see Advance), matching ScrubCounter in the original
// source.
type Counter struct {
	numRanks, numBanks, numSAs, numRows, numCols int

	rankID, bankID, saID, rowID, colID int
	inProgress                         bool
}

// NewCounter builds a Counter over the given dimensions. numCols should
// be the organization's column count divided by the scrub chunk size
// (the original source scrubs 64-byte chunks, i.e. columns/8).
func NewCounter(numRanks, numBanks, numSAs, numRows, numCols int) *Counter {
	return &Counter{numRanks: numRanks, numBanks: numBanks, numSAs: numSAs, numRows: numRows, numCols: numCols}
}

// InProgress reports whether a row scrub is currently underway.
func (c *Counter) InProgress() bool { return c.inProgress }

// Begin starts scrubbing the row currently pointed to, reporting whether
// one was already in progress (a §7 fatal condition; the caller, which
// owns a logger, turns it into a fatal.Violation).
func (c *Counter) Begin() (alreadyInProgress bool) {
	alreadyInProgress = c.inProgress
	c.inProgress = true
	return alreadyInProgress
}

// Advance moves to the next column, rolling over through
// column->rank->bank->row->subarray as each dimension is exhausted
// (mirrors ScrubCounter::advance). Reports whether no scrub was in
// progress (a §7 fatal condition).
func (c *Counter) Advance() (notInProgress bool) {
	if !c.inProgress {
		return true
	}
	c.colID++
	if c.colID != c.numCols {
		return
	}
	c.inProgress = false
	c.colID = 0
	c.rankID++
	if c.rankID != c.numRanks {
		return
	}
	c.rankID = 0
	c.bankID++
	if c.bankID != c.numBanks {
		return
	}
	c.bankID = 0
	c.rowID++
	if c.rowID != c.numRows {
		return
	}
	c.rowID = 0
	c.saID++
	if c.saID == c.numSAs {
		c.saID = 0
	}
}

// Addr returns an address vector for the current cursor position,
// targeting channel chID, with Column scaled by chunkCols (the original
// source's "treat each column as a 64-byte chunk").
func (c *Counter) Addr(chID, bankGroupCount, chunkCols int) device.AddrVec {
	var a device.AddrVec
	a[device.Channel] = chID
	a[device.Rank] = c.rankID
	a[device.BankGroup] = c.bankID / bankGroupCount
	a[device.Bank] = c.bankID % bankGroupCount
	a[device.Subarray] = c.saID
	a[device.Row] = c.rowID
	a[device.Column] = c.colID * chunkCols
	return a
}

// Scrubber drives Counter at a configured interval (spec.md §4.4 "ECC
// scrubbing"/MemoryScrubber): every Interval cycles queue one more
// pending row scrub; while one is pending and no scrub is in progress,
// start the next row; while a scrub is in progress, the caller (the
// controller) is expected to enqueue one READ per Advance call.
type Scrubber struct {
	Counter         *Counter
	Interval        uint64
	MaxPendingRows  uint32
	pendingRows     uint32

	// Log, if set, receives the §7 fatal diagnostic before Tick/
	// AdvanceOnEnqueue panic with a *fatal.Violation.
	Log *simlog.Logger
}

// NewScrubber builds a Scrubber over counter, ticking once every
// interval cycles.
func NewScrubber(counter *Counter, interval uint64, maxPendingRows uint32) *Scrubber {
	return &Scrubber{Counter: counter, Interval: interval, MaxPendingRows: maxPendingRows}
}

// Tick runs one cycle, returning true if a new row scrub was just begun
// this tick (the caller should issue the corresponding READ next).
func (s *Scrubber) Tick(clk uint64) bool {
	if s.Interval > 0 && clk%s.Interval == s.Interval-1 {
		s.pendingRows++
		if s.pendingRows > s.MaxPendingRows {
			fatal.Raise(s.Log.RawPtr(), clk, "scrub: pending row scrub count exceeded the configured maximum")
		}
	}
	if s.pendingRows > 0 && !s.Counter.InProgress() {
		if s.Counter.Begin() {
			fatal.Raise(s.Log.RawPtr(), clk, "scrub: row scrub already in progress")
		}
		s.pendingRows--
		return true
	}
	return false
}

// AdvanceOnEnqueue should be called once the controller has
// successfully enqueued this tick's scrub READ (the original source
// only advances the counter if enqueue succeeded, so a full request
// queue stalls the scrub at the same column rather than skipping it).
func (s *Scrubber) AdvanceOnEnqueue(clk uint64) {
	if s.Counter.InProgress() {
		if s.Counter.Advance() {
			fatal.Raise(s.Log.RawPtr(), clk, "scrub: no row scrub in progress")
		}
	}
}
