package maintenance

// Graphene is a per-(rank,bankgroup,bank) RowHammer activation counter
// table (spec.md §4.4 "Graphene"): at most NumEntries rows are tracked
// at a time, plus one spillover counter. On an ACT to a tracked row its
// counter increments; crossing ActivationThreshold triggers a neighbor
// refresh. An ACT to an untracked row either evicts a row whose counter
// equals the spillover counter (carrying the spillover value forward)
// or, failing that, increments the spillover counter. Everything resets
// every ResetPeriod cycles, grounded on the original source's
// Graphene<T>::update/tick.
type Graphene struct {
	NumEntries          int
	ActivationThreshold int
	ResetPeriod         uint64

	counts     []map[uint32]int // per bank index
	spillover  []int            // per bank index
}

// NewGraphene allocates a Graphene table for numBanks banks (rank *
// bankgroups * banks, flattened by the caller into one linear index).
func NewGraphene(numEntries, activationThreshold int, resetPeriod uint64, numBanks int) *Graphene {
	g := &Graphene{
		NumEntries:          numEntries,
		ActivationThreshold: activationThreshold,
		ResetPeriod:         resetPeriod,
		counts:              make([]map[uint32]int, numBanks),
		spillover:           make([]int, numBanks),
	}
	for i := range g.counts {
		g.counts[i] = make(map[uint32]int, numEntries)
	}
	return g
}

// Tick resets every bank's table and spillover counter on the reset
// boundary.
func (g *Graphene) Tick(clk uint64) {
	if g.ResetPeriod == 0 || clk%g.ResetPeriod != 0 {
		return
	}
	for i := range g.counts {
		g.counts[i] = make(map[uint32]int, g.NumEntries)
		g.spillover[i] = 0
	}
}

// Observe records an ACT to row on bank index bankIdx, returning true if
// this activation just crossed ActivationThreshold (the caller should
// then schedule a preventive neighbor refresh for row-1/row+1).
func (g *Graphene) Observe(bankIdx int, row uint32) bool {
	table := g.counts[bankIdx]

	if count, tracked := table[row]; tracked {
		count++
		table[row] = count
		if count >= g.ActivationThreshold {
			table[row] = g.spillover[bankIdx]
			return true
		}
		return false
	}

	if len(table) < g.NumEntries {
		// this ACT is the newly tracked row's first counted activation
		table[row] = 1
		if 1 >= g.ActivationThreshold {
			table[row] = g.spillover[bankIdx]
			return true
		}
		return false
	}

	for r, c := range table {
		if c == g.spillover[bankIdx] {
			delete(table, r)
			table[row] = c
			return false
		}
	}
	g.spillover[bankIdx]++
	return false
}
