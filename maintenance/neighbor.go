package maintenance

import "github.com/smdsim/dramsim/smd"

// NeighborFIFO is the de-duplicated FIFO of pending RowHammer-victim
// rows serviced by a NeighborRowRefreshMachine (spec.md §4.4: "performed
// by a dedicated NeighborRowRefreshMachine with the same locking
// discipline but a FIFO of pending victim rows, de-duplicated on
// enqueue").
type NeighborFIFO struct {
	pending []RowAddr
	seen    map[RowAddr]bool
}

// RowAddr identifies a victim row by (bank, subarray, row). Kind is an
// opaque tag the enqueuing caller sets and later reads back off Emit,
// distinguishing which RowHammer mitigation triggered this entry
// without this package needing to know about request types.
type RowAddr struct {
	BankID int
	SAID   uint32
	RowID  uint32
	Kind   uint8
}

// NewNeighborFIFO builds an empty queue.
func NewNeighborFIFO() *NeighborFIFO {
	return &NeighborFIFO{seen: make(map[RowAddr]bool)}
}

// Enqueue adds ra unless it is already pending.
func (q *NeighborFIFO) Enqueue(ra RowAddr) bool {
	if q.seen[ra] {
		return false
	}
	q.seen[ra] = true
	q.pending = append(q.pending, ra)
	return true
}

// Dequeue removes and returns the head entry, if any.
func (q *NeighborFIFO) Dequeue() (RowAddr, bool) {
	if len(q.pending) == 0 {
		return RowAddr{}, false
	}
	ra := q.pending[0]
	q.pending = q.pending[1:]
	delete(q.seen, ra)
	return ra, true
}

// Len reports the number of pending victim rows.
func (q *NeighborFIFO) Len() int { return len(q.pending) }

// neighborHeld records the row a NeighborMachine currently holds locked,
// alongside the bank/subarray activeLock already tracks.
type neighborHeld struct {
	bankID    int
	saID      uint32
	rowID     uint32
	releaseAt int64
}

// NeighborMachine drains a NeighborFIFO through the same per-chip
// locking discipline Machine uses against Counters (spec.md §4.4:
// "Neighbor refreshes are performed by a dedicated
// NeighborRowRefreshMachine with the same locking discipline but a FIFO
// of pending victim rows, de-duplicated on enqueue"). Both the PARA and
// Graphene/CBF RowHammer hooks enqueue their victim rows here instead
// of pushing straight onto the controller's request queues, so a victim
// row triggered twice before it is serviced collapses to one refresh and
// actually holds the chip's subarray lock while it runs.
type NeighborMachine struct {
	Locks  *smd.LockTable
	ChipID int
	Queue  *NeighborFIFO

	RowGranularity uint32
	MaintLatency   uint64
	LockEntireBank bool

	// RankID/Alerts mirror Machine's Alert-mode signaling: a neighbor
	// refresh lock is exactly as disruptive to in-flight ACTs as an
	// ordinary maintenance lock.
	RankID int
	Alerts *smd.AlertSet

	// Emit, if set, is called once a victim row's lock is acquired (the
	// moment this machine commits to refreshing it), with the row being
	// serviced — the caller uses this to enqueue the actual refresh
	// command against the controller's request queues while the lock is
	// held for MaintLatency*RowGranularity cycles.
	Emit func(ra RowAddr)

	held *neighborHeld
}

// NewNeighborMachine builds a NeighborMachine sharing lt with the rest
// of chipID's maintenance machinery.
func NewNeighborMachine(lt *smd.LockTable, chipID int, queue *NeighborFIFO, rowGranularity uint32, maintLatency uint64, lockEntireBank bool) *NeighborMachine {
	return &NeighborMachine{Locks: lt, ChipID: chipID, Queue: queue, RowGranularity: rowGranularity, MaintLatency: maintLatency, LockEntireBank: lockEntireBank}
}

// Tick advances the machine by one cycle: release and complete a held
// lock once its latency elapses, otherwise try to dequeue and lock the
// next pending victim row. A row that cannot be locked yet (its
// subarray is active, on cooldown, or already under maintenance) is
// re-enqueued at the tail rather than dropped.
func (m *NeighborMachine) Tick(env Env, clk int64) {
	if m.held != nil && clk >= m.held.releaseAt {
		m.Locks.Release(m.ChipID, m.held.bankID, m.held.saID, clk)
		m.held = nil
	}

	if m.held != nil || m.Queue.Len() == 0 {
		return
	}

	ra, ok := m.Queue.Dequeue()
	if !ok {
		return
	}
	if m.Locks.IsOnCooldown(m.ChipID, ra.BankID, clk) ||
		env.IsSAActive(ra.BankID, ra.SAID) ||
		m.Locks.IsUnderMaintenance(m.ChipID, ra.BankID, ra.SAID) {
		m.Queue.Enqueue(ra)
		return
	}

	m.Locks.Lock(m.ChipID, ra.BankID, ra.SAID, m.LockEntireBank, clk)
	if m.Alerts != nil {
		m.Alerts.Raise(m.RankID)
	}
	m.held = &neighborHeld{
		bankID:    ra.BankID,
		saID:      ra.SAID,
		rowID:     ra.RowID,
		releaseAt: clk + int64(m.MaintLatency*uint64(m.RowGranularity)),
	}
	if m.Emit != nil {
		m.Emit(ra)
	}
}

// Neighbors returns the in-range row±1 victims of row within
// [0, numRowsPerSubarray), per spec.md §8's boundary behavior: a victim
// at row 0 or the last row has only one in-range neighbor.
func Neighbors(row uint32, numRowsPerSubarray uint32) []uint32 {
	var out []uint32
	if row > 0 {
		out = append(out, row-1)
	}
	if row+1 < numRowsPerSubarray {
		out = append(out, row+1)
	}
	return out
}
