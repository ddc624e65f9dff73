// Package maintenance implements the per-chip MaintenancePolicy family
// (spec.md §4.4): fixed-rate refresh, retention-aware variable refresh,
// ECC scrubbing, and RowHammer protection (PARA, a counting-Bloom-filter
// detector, and Graphene), all driven through a shared MaintenanceMachine
// locking discipline against a smd.LockTable.
package maintenance

// Counter is one bank's maintenance cursor (spec.md §3
// MaintenanceCounter): which (subarray, row) is next in line to be
// refreshed/scrubbed, how many maintenance operations are queued up
// (PendingMaint), and how many times the cursor has wrapped
// (Rollbacks) — used by VariableRefresh to force a full pass every
// REFRESH_RELAXING_FACTOR wraps.
type Counter struct {
	BankID       int
	SAID         uint32
	RowID        uint32
	PendingMaint uint32
	Rollbacks    uint64
}

// NewCounter builds a Counter for bankID starting at subarray saOffset.
func NewCounter(bankID int, saOffset uint32) *Counter {
	return &Counter{BankID: bankID, SAID: saOffset}
}

// Advance walks the cursor in subarray-major order (mirrors
// MaintenanceCounter::increment): cycle through every subarray of the
// current row chunk first; only once every subarray has been visited
// does the row cursor move forward by incr, wrapping (and counting a
// rollback) at numRows.
func (c *Counter) Advance(incr, numRows, numSAs uint32) {
	if c.SAID != numSAs-1 {
		c.SAID++
		return
	}
	c.SAID = 0
	old := c.RowID
	c.RowID = (c.RowID + incr) % numRows
	if old > c.RowID {
		c.Rollbacks++
	}
}

// AddPendingMaint increments PendingMaint, reporting whether it now
// exceeds limit — spec.md §7's fatal "pending_maint exceeding the
// configured limit" invariant: this is the signal the maintenance engine
// cannot keep up with the configured refresh rate. The caller (Machine,
// which owns a logger) turns an exceeded limit into a fatal.Violation.
func (c *Counter) AddPendingMaint(limit uint32) (exceeded bool) {
	c.PendingMaint++
	return c.PendingMaint > limit
}
