// Package controller implements the memory controller's per-tick
// orchestration (spec.md §4.2): request scheduling under device timing
// and SMD lock constraints, NACK handling, PARA, per-bank refresh, and
// the DRAMPower energy callback points. It is the top-level component
// that owns a device.Tree, the four request.Queues, a rowtable.Table,
// and whichever SMD/maintenance machinery the configured mode requires.
package controller

import (
	"github.com/smdsim/dramsim/device"
	"github.com/smdsim/dramsim/fatal"
	"github.com/smdsim/dramsim/maintenance"
	"github.com/smdsim/dramsim/request"
	"github.com/smdsim/dramsim/rowtable"
	"github.com/smdsim/dramsim/simctx"
	"github.com/smdsim/dramsim/smd"
)

// SMDMode selects the coordination protocol in effect, per spec.md
// §4.3. ModeNone disables SMD entirely: refresh is fully
// controller-driven and no chip can ever lock a subarray.
type SMDMode int

const (
	ModeNone SMDMode = iota
	ModeRSQ
	ModeAlert
	ModeActNack
)

// RowPolicy selects when an idle open row gets closed (spec.md §6
// row_policy).
type RowPolicy int

const (
	RowPolicyOpened RowPolicy = iota
	RowPolicyClosed
	RowPolicyTimeout
)

// EnergyCallback is invoked once per issued command for the DRAMPower
// boundary (spec.md §6): (rank, globalBankID, clk).
type EnergyCallback func(cmd device.Command, rank, globalBankID int, clk uint64)

// Controller orchestrates one channel's DeviceTree.
type Controller struct {
	Ctx    *simctx.Context
	Tree   *device.Tree
	Rows   *rowtable.Table
	Queues *request.Queues
	Pending *request.Pending

	Clk uint64

	RowPolicy        RowPolicy
	TimeoutThreshold uint64

	SMDMode         SMDMode
	Tracker         *smd.Tracker // RSQ/Alert mode only
	Alerts          *smd.AlertSet
	Locks           *smd.LockTable // ACT-NACK mode only (or chip lock discipline shared with maintenance)
	ReadLatency     uint64
	NACKResend      uint64
	ActToNack       uint64
	CombinedThresh  int
	MaxRowOpenIntervals uint64
	TrackerTimeout  int64

	Para           *maintenance.PARA
	PerBankRefresh bool

	// NeighborRefresh is invoked by onActivate whenever Para's coin flip
	// hits: the caller that wires PARA supplies this, since synthesizing
	// a neighbor-row refresh request needs routing knowledge (which
	// queue, what row granularity) the Controller has no opinion on.
	NeighborRefresh func(c *Controller, addr device.AddrVec)

	// RowHammerObserve is invoked on every ACT (spec.md §4.4): the caller
	// that wires a Graphene/CBF detector reports this activation and, if
	// it decides the row just got hammered, enqueues its own preventive
	// neighbor refresh the same way NeighborRefresh does for PARA.
	RowHammerObserve func(c *Controller, addr device.AddrVec)

	writeMode bool

	Energy EnergyCallback

	// Maintenance holds every attached per-tick maintenance engine
	// (refresh machines, RAIDR, Graphene, the memory scrubber): wired by
	// the caller that builds the Controller, ticked unconditionally
	// ahead of scheduling (spec.md §4.2 step 3).
	Maintenance []func(clk uint64)

	nackDeadlines map[uint64][]*nackEntry // keyed by the clk an ACT's NACK classification is due
	resends       []resendEntry
}

// nackEntry tracks one in-flight optimistic ACT-NACK-mode activate,
// awaiting classification at deadline (spec.md §4.3 ACT-NACK mode).
type nackEntry struct {
	req        *request.Request
	addr       device.AddrVec
	globalBank int
	saID       uint32
	queue      *request.Queue // the queue req came from, for full-NACK retry
}

// resendEntry reinserts req into queue no earlier than notBefore,
// modeling nACT_NACK_RESEND_INTERVAL (spec.md §4.3) and PreRSQ/RefStatusQuery
// bus occupancy for requests that had to step aside for a query.
type resendEntry struct {
	req       *request.Request
	queue     *request.Queue
	notBefore uint64
}

// New builds a Controller over tree with the given queue/table wiring.
func New(ctx *simctx.Context, tree *device.Tree, rows *rowtable.Table, queues *request.Queues) *Controller {
	return &Controller{
		Ctx:           ctx,
		Tree:          tree,
		Rows:          rows,
		Queues:        queues,
		Pending:       &request.Pending{},
		nackDeadlines: make(map[uint64][]*nackEntry),
	}
}

// AddMaintenance attaches a per-tick maintenance engine.
func (c *Controller) AddMaintenance(fn func(clk uint64)) {
	c.Maintenance = append(c.Maintenance, fn)
}

// Enqueue places req on the queue appropriate to its type, returning
// false (queue full) if it could not be enqueued (spec.md §7 "queue full
// on enqueue: caller gets false and retries later").
func (c *Controller) Enqueue(req *request.Request) bool {
	switch req.Type {
	case request.Read, request.Prefetch:
		return c.Queues.ReadQ.Push(req)
	case request.Write:
		return c.Queues.WriteQ.Push(req)
	default:
		return c.Queues.OtherQ.Push(req)
	}
}

// globalBank computes the unique-within-rank bank id for addr.
func (c *Controller) globalBank(addr device.AddrVec) int {
	return c.Tree.Spec.Org.GlobalBankID(addr)
}

// GlobalBank exposes globalBank to callers outside this package that
// need to key their own per-bank state against the same id (e.g. the
// RowHammer detector build wires via RowHammerObserve).
func (c *Controller) GlobalBank(addr device.AddrVec) int { return c.globalBank(addr) }

// bankIndex computes the channel-wide bank id rowtable.Table is indexed
// by: unlike GlobalBankID, it is rank-major so two ranks never alias.
func (c *Controller) bankIndex(addr device.AddrVec) int {
	return addr[device.Rank]*c.Tree.Spec.Org.BanksPerRank() + c.globalBank(addr)
}

func (c *Controller) emitEnergy(cmd device.Command, addr device.AddrVec) {
	if c.Energy != nil {
		c.Energy(cmd, addr[device.Rank], c.globalBank(addr), c.Clk)
	}
}

func (c *Controller) raise(format string, args ...interface{}) {
	l := c.Ctx.Log.Raw()
	fatal.Raise(&l, c.Clk, format, args...)
}
