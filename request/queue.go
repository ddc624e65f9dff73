package request

// Queue is a capacity-bounded FIFO-ish buffer; requests are iterated
// and removed in arbitrary internal order during scheduling (the
// scheduler picks whichever ready request it wants, not strictly head-
// first), but Push always appends and the queue reports Full at
// capacity (spec.md §7 "queue full on enqueue: caller gets false").
type Queue struct {
	items []*Request
	cap   int
}

// NewQueue builds a queue with the given capacity (0 means unbounded).
func NewQueue(capacity int) *Queue {
	return &Queue{cap: capacity}
}

// Push appends req, returning false (and not appending) if the queue is
// at capacity.
func (q *Queue) Push(req *Request) bool {
	if q.cap > 0 && len(q.items) >= q.cap {
		return false
	}
	q.items = append(q.items, req)
	return true
}

// Len returns the number of queued requests.
func (q *Queue) Len() int { return len(q.items) }

// Cap returns the configured capacity (0 = unbounded).
func (q *Queue) Cap() int { return q.cap }

// Full reports whether the queue is at capacity.
func (q *Queue) Full() bool { return q.cap > 0 && len(q.items) >= q.cap }

// FractionFull returns len/cap, or 0 if unbounded.
func (q *Queue) FractionFull() float64 {
	if q.cap == 0 {
		return 0
	}
	return float64(len(q.items)) / float64(q.cap)
}

// All returns the queue's requests in FIFO order. The returned slice must
// not be mutated; use Remove to delete an entry.
func (q *Queue) All() []*Request { return q.items }

// Remove deletes req from the queue (by pointer identity). Reports
// whether it was found.
func (q *Queue) Remove(req *Request) bool {
	for i, r := range q.items {
		if r == req {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// Queues bundles the controller's four request buffers (spec.md §2
// RequestQueues): separate FIFOs for reads, writes, post-activate
// commands, and "other" (refresh, RSQ, PARA/RAIDR/Graphene neighbor
// refreshes).
type Queues struct {
	ReadQ  *Queue
	WriteQ *Queue
	ActQ   *Queue
	OtherQ *Queue
}

// NewQueues builds the four queues with the given per-queue capacities
// (readCap/writeCap bound the CPU-facing queues; actCap/otherCap are
// typically generous since ACT/maintenance traffic is internally
// generated and must not be dropped).
func NewQueues(readCap, writeCap, actCap, otherCap int) *Queues {
	return &Queues{
		ReadQ:  NewQueue(readCap),
		WriteQ: NewQueue(writeCap),
		ActQ:   NewQueue(actCap),
		OtherQ: NewQueue(otherCap),
	}
}

// PendingEntry is one entry of the controller's "pending" completion
// queue (spec.md §4.2 step 1): a request (or synthetic RSQ response)
// awaiting its DepartClk.
type PendingEntry struct {
	Req       *Request
	DepartClk uint64
}

// Pending is an arrival-ordered queue of completions awaiting their
// DepartClk. REF_STATUS_QUERY responses are inserted at clk+read_latency,
// preserving arrival order (spec.md §4.3), so a plain append-only slice
// with head-popping suffices — never re-sorted.
type Pending struct {
	items []PendingEntry
}

// Push appends a new pending completion. Callers must push in
// nondecreasing DepartClk order (true for every use in this simulator:
// each tick advances monotonically and latencies are fixed per command).
func (p *Pending) Push(req *Request, departClk uint64) {
	p.items = append(p.items, PendingEntry{Req: req, DepartClk: departClk})
}

// PopDue removes and returns the head entry if its DepartClk <= clk.
func (p *Pending) PopDue(clk uint64) (PendingEntry, bool) {
	if len(p.items) == 0 || p.items[0].DepartClk > clk {
		return PendingEntry{}, false
	}
	head := p.items[0]
	p.items = p.items[1:]
	return head, true
}

// Len reports the number of outstanding completions.
func (p *Pending) Len() int { return len(p.items) }
