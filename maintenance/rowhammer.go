package maintenance

import "math/rand"

// PARA implements probabilistic activation row-hammer protection
// (spec.md §4.4): on every observed ACT, with probability Pct/100,
// schedule a neighbor refresh. The PRNG is seeded once from a caller
// id (e.g. the chip id), never from time, per spec.md §5 Determinism.
type PARA struct {
	Pct uint32 // 0-100
	rng *rand.Rand
}

// NewPARA builds a PARA detector seeded from seed (deterministic: same
// seed -> same coin-flip sequence across runs).
func NewPARA(pct uint32, seed int64) *PARA {
	return &PARA{Pct: pct, rng: rand.New(rand.NewSource(seed))}
}

// Observe reports whether this ACT should trigger a neighbor refresh.
func (p *PARA) Observe() bool {
	if p.Pct >= 100 {
		return true
	}
	if p.Pct == 0 {
		return false
	}
	return uint32(p.rng.Intn(100)) < p.Pct
}

// dualFilter is the narrow view of bloom.DualFilter this detector needs,
// kept as an interface so this package does not import bloom for a
// single call site.
type dualFilter interface {
	Insert(key uint32)
	Test(key uint32) bool
}

// CountingBloomDetector implements the BlockHammer-style counting-Bloom
// RowHammer detector (spec.md §4.4): insert (bank,row) into the active
// filter on every ACT; if it already tests positive, trigger a neighbor
// refresh with probability Pct. The caller swaps the active/passive
// filters every BFEpoch cycles.
type CountingBloomDetector struct {
	Filter  dualFilter
	Pct     uint32
	BFEpoch uint64
	rng     *rand.Rand
}

// NewCountingBloomDetector builds a detector over filter, seeded from
// seed.
func NewCountingBloomDetector(filter dualFilter, pct uint32, bfEpoch uint64, seed int64) *CountingBloomDetector {
	return &CountingBloomDetector{Filter: filter, Pct: pct, BFEpoch: bfEpoch, rng: rand.New(rand.NewSource(seed))}
}

// bfKey packs (bank, row) the same way RAIDR's Bloom-filter address does
// (row in the high bits, bank in the low 4), reused here for consistency
// across the controller-side detectors that key on (bank,row).
func bfKey(bankID int, row uint32) uint32 { return (row << 4) + uint32(bankID) }

// Observe inserts (bankID,row) and reports whether a neighbor refresh
// should be triggered.
func (d *CountingBloomDetector) Observe(bankID int, row uint32) bool {
	key := bfKey(bankID, row)
	alreadyHot := d.Filter.Test(key)
	d.Filter.Insert(key)
	if !alreadyHot {
		return false
	}
	if d.Pct >= 100 {
		return true
	}
	if d.Pct == 0 {
		return false
	}
	return uint32(d.rng.Intn(100)) < d.Pct
}
