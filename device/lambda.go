package device

// lambdaBankACT opens the bank and the target subarray.
func lambdaBankACT(n *Node, saID int) {
	n.State = Opened
	n.JustOpened = true
	n.RowState[saID] = Opened
}

// lambdaSubarrayACT opens the target row within an already-open
// subarray.
func lambdaSubarrayACT(n *Node, rowID int) {
	n.State = Opened
	n.RowState[rowID] = Opened
}

// lambdaBankPRE closes the bank and its single open subarray.
func lambdaBankPRE(n *Node, _ int) {
	if saID, ok := n.OpenChild(); ok {
		n.Children[saID].ClearOpen()
	}
	n.ClearOpen()
}

// lambdaRankPREA closes every bank (and its open subarray) of the rank.
func lambdaRankPREA(n *Node, _ int) {
	for _, bg := range n.Children {
		for _, bank := range bg.Children {
			if bank.State == Opened || bank.State == PartiallyOpened {
				lambdaBankPRE(bank, 0)
			}
		}
	}
}

// lambdaBankActNack closes the bank and subarray that would have opened,
// mirroring what the SMD chips already did (spec.md §4.2 step 2).
func lambdaBankActNack(n *Node, _ int) {
	lambdaBankPRE(n, 0)
}

// lambdaBankActPartialNack marks the bank and its target subarray
// PartiallyOpened: the row is active on some chips of the rank but not
// all (spec.md §4.1 state transitions).
func lambdaBankActPartialNack(n *Node, saID int) {
	n.State = PartiallyOpened
	n.RowState[saID] = PartiallyOpened
	n.Children[saID].State = PartiallyOpened
}

// lambdaAccessClearsJustOpened clears JustOpened on first column access.
func lambdaAccessClearsJustOpened(n *Node, _ int) {
	n.JustOpened = false
}

// lambdaBankAutoClose closes the bank (RDA/WRA auto-precharge).
func lambdaBankAutoClose(n *Node, _ int) {
	lambdaAccessClearsJustOpened(n, 0)
	lambdaBankPRE(n, 0)
}

func noopLambda(*Node, int) {}

// installLambda wires the lambda dispatch table (spec.md §4.1
// lambda[level][cmd]).
func installLambda(s *Spec) {
	s.Lambda[Bank][ACT] = lambdaBankACT
	s.Lambda[Subarray][ACT] = lambdaSubarrayACT
	s.Lambda[Bank][PRE] = lambdaBankPRE
	s.Lambda[Bank][REFPB] = lambdaBankPRE
	s.Lambda[Rank][PREA] = lambdaRankPREA
	s.Lambda[Bank][ActNack] = lambdaBankActNack
	s.Lambda[Bank][ActPartialNack] = lambdaBankActPartialNack
	s.Lambda[Bank][PreRSQ] = lambdaBankPRE
	s.Lambda[Bank][RD] = lambdaAccessClearsJustOpened
	s.Lambda[Bank][WR] = lambdaAccessClearsJustOpened
	s.Lambda[Bank][RDA] = lambdaBankAutoClose
	s.Lambda[Bank][WRA] = lambdaBankAutoClose
	s.Lambda[Rank][REF] = noopLambda
	s.Lambda[Rank][RefStatusQuery] = noopLambda
}
