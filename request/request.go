// Package request implements the Request type and the four request
// queues (actq/writeq/readq/otherq) described in spec.md §3 and §2.
package request

import (
	"github.com/google/uuid"
	"github.com/smdsim/dramsim/device"
)

// Type enumerates the kinds of Request the controller schedules
// (spec.md §3).
type Type int

const (
	Read Type = iota
	Write
	Refresh
	ParaRefresh
	RaidrRefresh
	GrapheneRefresh
	Prefetch
	RefStatusQuery
	ActNack
	ActPartialNack
)

func (t Type) String() string {
	switch t {
	case Read:
		return "Read"
	case Write:
		return "Write"
	case Refresh:
		return "Refresh"
	case ParaRefresh:
		return "ParaRefresh"
	case RaidrRefresh:
		return "RaidrRefresh"
	case GrapheneRefresh:
		return "GrapheneRefresh"
	case Prefetch:
		return "Prefetch"
	case RefStatusQuery:
		return "RefStatusQuery"
	case ActNack:
		return "ActNack"
	case ActPartialNack:
		return "ActPartialNack"
	default:
		return "Unknown"
	}
}

// Callback is invoked when a request completes (e.g. a READ's data
// return). ProcCallback additionally reports the request back to a
// per-core processor model; both are optional observability hooks, not
// part of the device model's correctness.
type Callback func(r *Request)

// RSQReport is one chip's reported busy-subarray list for one bank,
// carried by a RefStatusQuery/PreRSQ request once it retires (spec.md
// §4.3): a single rank-wide query snapshots every chip's view of every
// bank in one shot, mirroring the SMD protocol's broadcast semantics.
type RSQReport struct {
	ChipID     int
	GlobalBank int
	BusySAs    []uint32
}

// Request models one in-flight memory operation (spec.md §3). A zero
// Request is not valid — build with New.
type Request struct {
	ID uuid.UUID

	Addr    uint64
	AddrVec device.AddrVec
	Type    Type
	CoreID  int

	ArriveClk uint64
	DepartClk uint64

	// IsFirstCommand is cleared once the request's first resolved
	// command has been issued; some controller bookkeeping (e.g. the
	// auto-precharge-forcing rewrite) only applies to the terminal
	// command, not precursors like ACT.
	IsFirstCommand bool

	// PartiallyNacked is set when an ACT targeting this request's
	// address received ACT_PARTIAL_NACK (spec.md §4.3); the combined
	// policy consults it when deciding PRE-vs-WAIT.
	PartiallyNacked bool

	// Reports carries a RefStatusQuery/PreRSQ request's rank-wide
	// snapshot once it retires from Pending; unused by every other type.
	Reports []RSQReport

	Callback     Callback
	ProcCallback Callback
}

// New builds a Request for addr/addrVec of the given type, arriving at
// arriveClk.
func New(addr uint64, addrVec device.AddrVec, typ Type, coreID int, arriveClk uint64, cb Callback) *Request {
	return &Request{
		ID:             uuid.New(),
		Addr:           addr,
		AddrVec:        addrVec,
		Type:           typ,
		CoreID:         coreID,
		ArriveClk:      arriveClk,
		IsFirstCommand: true,
		Callback:       cb,
	}
}

// Complete invokes the request's callbacks, if set. Read completion sets
// DepartClk before Complete is called by the controller; write completion
// is fire-and-forget once the WR/WRA issues (spec.md §3 invariants).
func (r *Request) Complete() {
	if r.Callback != nil {
		r.Callback(r)
	}
	if r.ProcCallback != nil {
		r.ProcCallback(r)
	}
}
