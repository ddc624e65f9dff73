package device

// prereqRankAccess resolves RD/WR at rank level: only power states gate
// readiness here (Opened/Closed are bank-level concerns).
func prereqRankAccess(n *Node, cmd Command, _ int) Command {
	switch n.State {
	case PowerUp:
		return cmd
	default:
		return cmd // power-down states are out of scope for this model
	}
}

// prereqBankAccess resolves RD/WR at bank level: Closed needs an ACT
// first; Opened with the wrong subarray needs a PRE first; Opened with
// the right subarray (but maybe wrong row) defers to the subarray-level
// check below; PartiallyOpened (SMD ACT-PARTIAL-NACK) needs the
// controller to re-ACT before anything else proceeds.
func prereqBankAccess(n *Node, cmd Command, saID int) Command {
	switch n.State {
	case Closed:
		return ACT
	case Opened:
		if _, ok := n.RowState[saID]; ok {
			return cmd
		}
		return PRE
	case PartiallyOpened:
		if _, ok := n.RowState[saID]; ok {
			return ACT
		}
		return NOP
	default:
		return NOP
	}
}

// prereqSubarrayAccess resolves RD/WR at subarray level: Closed means a
// different subarray of the bank is open (PRE needed first);
// PartiallyOpened with the target row present means it can be promoted
// to a full ACT; Opened with the target row present is ready.
func prereqSubarrayAccess(n *Node, cmd Command, rowID int) Command {
	switch n.State {
	case Closed:
		return PRE
	case PartiallyOpened:
		if _, ok := n.RowState[rowID]; ok {
			return ACT
		}
		return PRE
	case Opened:
		if _, ok := n.RowState[rowID]; ok {
			return cmd
		}
		return PRE
	default:
		return NOP
	}
}

// prereqRankRef resolves REF at rank level: any open bank must be
// precharged first (PREA), per DDR4::init_prereq.
func prereqRankRef(n *Node, _ Command, _ int) Command {
	for _, bg := range n.Children {
		for _, bank := range bg.Children {
			if bank.State != Closed {
				return PREA
			}
		}
	}
	return REF
}

// prereqBankRef resolves REFPB (per-bank refresh) at bank level: the
// bank must be precharged first.
func prereqBankRef(n *Node, _ Command, _ int) Command {
	if n.State == Closed {
		return REFPB
	}
	return PRE
}

// installPrereq wires the prereq dispatch table (spec.md §4.1
// prereq[level][cmd]).
func installPrereq(s *Spec) {
	s.Prereq[Rank][RD] = prereqRankAccess
	s.Prereq[Rank][WR] = prereqRankAccess
	s.Prereq[Bank][RD] = prereqBankAccess
	s.Prereq[Bank][WR] = prereqBankAccess
	s.Prereq[Subarray][RD] = prereqSubarrayAccess
	s.Prereq[Subarray][WR] = prereqSubarrayAccess
	s.Prereq[Rank][REF] = prereqRankRef
	s.Prereq[Bank][REFPB] = prereqBankRef
}
