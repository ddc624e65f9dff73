package device

// PrereqFunc resolves what must actually happen before cmd can be issued
// at node: it returns cmd itself if ready, a cheaper precursor command
// (e.g. ACT before RD on a closed bank), or NOP if nothing need be done
// at this level. childID is the row-in-bank id (Bank level) or subarray
// id (Subarray level) the command targets, matching spec.md §4.1.
type PrereqFunc func(n *Node, cmd Command, childID int) Command

// LambdaFunc mutates node state when cmd completes at that node.
type LambdaFunc func(n *Node, childID int)

// PredicateFunc is a pure read of node state, used for rowhit/rowopen
// stats classification (spec.md §4.1); never mutates.
type PredicateFunc func(n *Node, cmd Command, childID int) bool

// TimingEntry mirrors spec.md §4.1: after cmd issues, NextCmd may not be
// issued before Val additional cycles (or, if Dist>1, before the Dist-th
// qualifying issuance's clock plus Val). Sibling routes the constraint to
// every other child of the issuing node's parent instead of the issuing
// node itself (used for nRRD_S, the relaxed cross-bank-group ACT-ACT
// spacing, vs. nRRD_L applied to the same bank group).
type TimingEntry struct {
	NextCmd Command
	Dist    int
	Val     uint64
	Sibling bool
}

// SpeedParams holds the numeric JEDEC-style timing parameters (cycles,
// at the device's tCK) that buildTiming compiles into per-level
// TimingEntry tables. Field names follow DDR4 datasheet nomenclature, as
// in the original source's SpeedEntry.
type SpeedParams struct {
	TCK float64 // ns per cycle

	NBL    uint64 // burst length in cycles
	NCCDS  uint64 // CAS-to-CAS, different bank group
	NCCDL  uint64 // CAS-to-CAS, same bank group
	NRCD   uint64 // ACT to RD/WR
	NRAS   uint64 // ACT to PRE
	NRP    uint64 // PRE to ACT
	NRC    uint64 // ACT to ACT, same bank (NRAS+NRP)
	NCWL   uint64 // CAS write latency
	NRTP   uint64 // RD to PRE
	NWTRS  uint64 // WR to RD, different bank group
	NWTRL  uint64 // WR to RD, same bank group
	NWR    uint64 // WR to PRE
	NRRDS  uint64 // ACT to ACT, different bank group
	NRRDL  uint64 // ACT to ACT, same bank group
	NFAW   uint64 // four-activate window
	NRFC   uint64 // REF to ACT
	NREFI  uint64 // refresh interval
	NRTRS  uint64 // read-to-write bus turnaround

	NNACKResend uint64 // nNACK_RESEND: ACT retry interval after ACT_NACK
	NACTtoNACK  uint64 // nACTtoNACK: cycles until a NACK response is known
}

// ReadLatency is the fixed pipeline latency from RD/RDA issue to data
// return (spec.md §3 Request.depart_clk).
func (s SpeedParams) ReadLatency() uint64 {
	return s.NCWL + s.NBL/2 + 2
}

// Spec is the complete device description: organization, timing tables,
// and the prereq/lambda/predicate dispatch tables (spec.md §4.1
// DeviceSpec). One Spec is shared (read-only after construction) by every
// DeviceTree built from it.
type Spec struct {
	Name  string
	Org   Org
	Speed SpeedParams

	// StartState[level] is the initial state of every node at that
	// level, NoState where the level has no meaningful state.
	StartState [NumTreeLevels]State

	// Scope[cmd] is the tree level at which cmd conceptually applies
	// (spec.md §4.1 scope[cmd]).
	Scope [NumCommands]Level

	Timing    [NumTreeLevels][NumCommands][]TimingEntry
	Prereq    [NumTreeLevels][NumCommands]PrereqFunc
	Lambda    [NumTreeLevels][NumCommands]LambdaFunc
	RowHit    [NumTreeLevels][NumCommands]PredicateFunc
	RowOpen   [NumTreeLevels][NumCommands]PredicateFunc

	// PerBankRefresh, when true, halves NRFC and divides NREFI by
	// banks-per-rank (spec.md §4.2). REF's scope is not changed: per-bank
	// refresh is issued as the bank-scoped REFPB command.
	PerBankRefresh bool
}

// EffectiveNREFI returns the refresh interval actually used, divided by
// banks-per-rank under per-bank refresh (spec.md §4.2).
func (s *Spec) EffectiveNREFI() uint64 {
	if s.PerBankRefresh {
		return s.Speed.NREFI / uint64(s.Org.BanksPerRank())
	}
	return s.Speed.NREFI
}

// EffectiveNRFC returns the refresh completion latency actually used,
// halved under per-bank refresh per spec.md §4.2.
func (s *Spec) EffectiveNRFC() uint64 {
	if s.PerBankRefresh {
		return s.Speed.NRFC / 2
	}
	return s.Speed.NRFC
}
