// Package device implements the hierarchical DRAM timing and state model
// (spec.md §4.1): DeviceSpec (organization, command set, timing table,
// prereq/lambda dispatch) and DeviceTree (the recursive per-level node
// tree carrying current state and command history).
//
// Per the original source's DESIGN NOTES, prereq/lambda/rowhit dispatch
// is implemented as static per-(Level,Command) Go functions looked up
// from a table, not std::function-style boxed closures — see prereq.go,
// lambda.go, and predicates.go.
package device

import "fmt"

// Level identifies one level of the Channel -> Rank -> BankGroup -> Bank
// -> Subarray hierarchy that DeviceTree nodes are built from. Row and
// Column are addressed but never materialized as tree nodes: a Subarray
// node tracks its currently open row directly (see Node.RowState).
type Level int

const (
	Channel Level = iota
	Rank
	BankGroup
	Bank
	Subarray
	// Row and Column are part of the address vector (see AddrVec) but are
	// not levels of the DeviceTree; NumLevels bounds the address vector
	// and NumTreeLevels bounds the tree depth.
	Row
	Column
	NumLevels
)

func (l Level) String() string {
	switch l {
	case Channel:
		return "Channel"
	case Rank:
		return "Rank"
	case BankGroup:
		return "BankGroup"
	case Bank:
		return "Bank"
	case Subarray:
		return "Subarray"
	case Row:
		return "Row"
	case Column:
		return "Column"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// NumTreeLevels is the number of Level values that DeviceTree actually
// instantiates nodes for (Channel..Subarray).
const NumTreeLevels = int(Subarray) + 1

// Command enumerates the DRAM/SMD command set (spec.md §4.1, §4.3,
// GLOSSARY).
type Command int

const (
	ACT Command = iota
	PRE
	PREA
	RD
	WR
	RDA
	WRA
	REF
	REFPB // per-bank refresh, scope rewritten to Bank when per-bank refresh is enabled
	// SMD protocol commands.
	PreRSQ         // PRE_RSQ: a PRE that also returns SA-lock status
	RefStatusQuery // idle-cycle RSQ with no accompanying PRE
	ActNack
	ActPartialNack
	NOP
	NumCommands
)

var commandNames = [...]string{
	"ACT", "PRE", "PREA", "RD", "WR", "RDA", "WRA", "REF", "REFPB",
	"PRE_RSQ", "REF_STATUS_QUERY", "ACT_NACK", "ACT_PARTIAL_NACK", "NOP",
}

func (c Command) String() string {
	if c >= 0 && int(c) < len(commandNames) {
		return commandNames[c]
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// IsAutoPrecharging reports whether cmd closes its row immediately after
// the access (RDA/WRA), or closes the bank as a side effect (PRE/PREA/
// ACT_NACK/PRE_RSQ), per DDR4::is_closing in the original source.
func (c Command) IsAutoPrecharging() bool {
	switch c {
	case RDA, WRA, PRE, PREA, PreRSQ, ActNack:
		return true
	default:
		return false
	}
}

// AddAutoPrecharge maps RD->RDA and WR->WRA, used by the controller's
// auto-precharge forcing (spec.md §4.2) and PARA's activate-only refresh.
func AddAutoPrecharge(c Command) Command {
	switch c {
	case RD, RDA:
		return RDA
	case WR, WRA:
		return WRA
	default:
		return c
	}
}

// State enumerates the node states a DeviceTree node may be in. Not
// every state is valid at every level (see Spec.StartState).
type State int

const (
	Opened State = iota
	Closed
	PartiallyOpened
	PowerUp
	ActPowerDown
	PrePowerDown
	SelfRefresh
	NoState // sentinel: level has no meaningful state (e.g. Channel)
)

func (s State) String() string {
	switch s {
	case Opened:
		return "Opened"
	case Closed:
		return "Closed"
	case PartiallyOpened:
		return "PartiallyOpened"
	case PowerUp:
		return "PowerUp"
	case ActPowerDown:
		return "ActPowerDown"
	case PrePowerDown:
		return "PrePowerDown"
	case SelfRefresh:
		return "SelfRefresh"
	default:
		return "NoState"
	}
}

// AddrVec is the address vector described in spec.md §3: an ordered
// tuple indexed by Level. Column is rarely used by the device model
// itself (it affects timing only through nBL) but is kept for symmetry
// with Request.AddrVec and trace replay.
type AddrVec [NumLevels]int

// GlobalBankID returns BankGroup*banksPerBG + Bank, unique within a rank.
func (o Org) GlobalBankID(a AddrVec) int {
	return a[BankGroup]*o.Count[Bank] + a[Bank]
}

// RowInBankID returns Subarray*rowsPerSubarray + Row, unique within a
// bank.
func (o Org) RowInBankID(a AddrVec) int {
	return a[Subarray]*o.Count[Row] + a[Row]
}
