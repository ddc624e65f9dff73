package bloom

import "github.com/smdsim/dramsim/stats"

// DualFilter holds an active and a passive CountingFilter for
// epoch-based aging (spec.md §4.5), used by the Counting-Bloom-Filter
// RowHammer detector (maintenance package): inserts land in the passive
// filter (or both, in non-space-efficient mode); Swap promotes passive
// to active and clears+reseeds the new passive, bounding how long a row
// can "remain hot" after activity stops.
type DualFilter struct {
	active, passive *CountingFilter
	size            uint32
	numHashFuncs    int
	spaceEfficient  bool
}

// NewDual builds a DualFilter. bf_id 0/1 seed the active/passive filters
// respectively, matching the original source's constructor.
func NewDual(size uint32, numHashFuncs int, maxCounter uint32, spaceEfficient bool, rankID, chipID int, reg *stats.Registry) *DualFilter {
	return &DualFilter{
		active:         NewCounting(size, numHashFuncs, maxCounter, rankID, chipID, 0, reg),
		passive:        NewCounting(size, numHashFuncs, maxCounter, rankID, chipID, 1, reg),
		size:           size,
		numHashFuncs:   numHashFuncs,
		spaceEfficient: spaceEfficient,
	}
}

// Insert records key per the configured aging policy.
func (d *DualFilter) Insert(key uint32) {
	if d.spaceEfficient {
		d.passive.Insert(key)
		return
	}
	d.active.Insert(key)
	d.passive.Insert(key)
}

// Test reports membership. In space-efficient mode a key is considered
// present if either filter reports it (the passive filter may have
// seen it more recently than the active one was last swapped in).
func (d *DualFilter) Test(key uint32) bool {
	if d.spaceEfficient {
		a := d.active.Test(key)
		p := d.passive.Test(key)
		return a || p
	}
	return d.active.Test(key)
}

// Swap promotes the passive filter to active and clears+reseeds the new
// passive filter, called every bf_epoch cycles by the RowHammer
// detector.
func (d *DualFilter) Swap() {
	d.active, d.passive = d.passive, d.active
	d.passive.Clear()
	d.passive.ResetHashes(d.numHashFuncs, d.size)
}
