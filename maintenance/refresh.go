package maintenance

// FixedRateRefresh drives one or more Machines at a constant rate
// (spec.md §4.4 "Fixed-rate refresh"): every RefInterval cycles, every
// counter owned by every machine gets one pending maintenance op; each
// tick, every machine attempts to progress.
type FixedRateRefresh struct {
	Machines   []*Machine
	RefInterval uint64
}

// NewFixedRateRefresh builds a policy driving machines at refInterval.
func NewFixedRateRefresh(machines []*Machine, refInterval uint64) *FixedRateRefresh {
	return &FixedRateRefresh{Machines: machines, RefInterval: refInterval}
}

// Tick runs one cycle: refills pending_maint on the refresh boundary,
// then lets every machine attempt to progress.
func (p *FixedRateRefresh) Tick(env Env, clk int64) {
	if p.RefInterval > 0 && uint64(clk)%p.RefInterval == 0 {
		for _, m := range p.Machines {
			m.AddPendingMaint(clk)
		}
	}
	for _, m := range p.Machines {
		m.Tick(env, clk)
	}
}

// VariableRefresh wraps FixedRateRefresh with a weak-row Bloom filter
// (spec.md §4.4 "Variable refresh"): only the rows actually classified
// weak (or, once every RelaxingFactor wraps, the full chunk regardless)
// are refreshed.
type VariableRefresh struct {
	Base           *FixedRateRefresh
	WeakRows       WeakRowFilter
	RelaxingFactor uint64
}

// WeakRowFilter abstracts the retention-distribution-sampled Bloom
// filter so this package does not import the bloom package directly for
// its policy logic (the caller builds and owns the filter; maintenance
// only asks membership questions of it).
type WeakRowFilter interface {
	Test(key uint32) bool
}

// NewVariableRefresh wraps base with weakRows, refreshing all rows once
// every relaxingFactor passes regardless of filter membership (spec.md
// §4.4: "to satisfy worst-case retention for mis-classified rows").
func NewVariableRefresh(base *FixedRateRefresh, weakRows WeakRowFilter, relaxingFactor uint64) *VariableRefresh {
	if relaxingFactor == 0 {
		relaxingFactor = 4
	}
	return &VariableRefresh{Base: base, WeakRows: weakRows, RelaxingFactor: relaxingFactor}
}

// ShouldRefreshRow reports whether row (a row index within a subarray,
// as held in Counter.RowID) should be refreshed this pass: always on a
// forced full pass
// (Rollbacks%RelaxingFactor == RelaxingFactor-1), otherwise only if the
// weak-row filter flags it.
func (p *VariableRefresh) ShouldRefreshRow(mc *Counter, row uint32) bool {
	if mc.Rollbacks%p.RelaxingFactor == p.RelaxingFactor-1 {
		return true
	}
	return p.WeakRows.Test(WeakRowKey(uint32(mc.BankID), row))
}

// WeakRowKey combines a bank id and row id into one Bloom-filter key, so
// the same row number in two different banks is tracked independently.
// Exported so the caller that seeds the weak-row filter at boot (from a
// configured retention distribution) uses the same key scheme
// ShouldRefreshRow tests against.
func WeakRowKey(bankID, row uint32) uint32 { return (row << 5) | (bankID & 0x1f) }

// Tick only refills pending_maint for rows ShouldRefreshRow flags,
// instead of Base's unconditional per-counter fill, then lets the base
// machines progress as usual.
func (p *VariableRefresh) Tick(env Env, clk int64) {
	if p.Base.RefInterval > 0 && uint64(clk)%p.Base.RefInterval == 0 {
		for _, m := range p.Base.Machines {
			m.AddPendingMaintIf(clk, func(mc *Counter) bool { return p.ShouldRefreshRow(mc, mc.RowID) })
		}
	}
	for _, m := range p.Base.Machines {
		m.Tick(env, clk)
	}
}
