package device

// rowHitSubarray reports whether cmd at the subarray level is a row hit:
// the subarray is Opened and the target row is already recorded open
// (spec.md §4.1 rowhit[level][cmd], used for stats only).
func rowHitSubarray(n *Node, _ Command, rowID int) bool {
	if n.State != Opened {
		return false
	}
	_, ok := n.RowState[rowID]
	return ok
}

// rowOpenBank reports whether the bank is Opened at all (any row active),
// used for the "row open but not a hit" stats bucket.
func rowOpenBank(n *Node, _ Command, _ int) bool {
	return n.State == Opened
}

// installPredicates wires the rowhit/rowopen dispatch tables (spec.md
// §4.1).
func installPredicates(s *Spec) {
	s.RowHit[Subarray][RD] = rowHitSubarray
	s.RowHit[Subarray][WR] = rowHitSubarray
	s.RowOpen[Bank][RD] = rowOpenBank
	s.RowOpen[Bank][WR] = rowOpenBank
}
