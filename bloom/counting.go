package bloom

import (
	"fmt"
	"math/rand"

	"github.com/smdsim/dramsim/stats"
)

// CountingFilter stores a saturating counter per entry instead of a
// single bit, so membership can be "aged out" by never re-inserting
// while still supporting a deterministic saturation test (spec.md
// §4.5, §8 "Counting filter saturation"): Test(k) is true iff every
// mapped counter is at maxCounter.
type CountingFilter struct {
	entries     []uint32
	maxCounter  uint32
	hashes      []h3
	bfID        int
	shadow      map[uint32]struct{}
	stats       *stats.Registry
	prefix      string
}

// NewCounting builds a CountingFilter of size entries (power of two),
// numHashFuncs H3 functions seeded from bfID, saturating at maxCounter
// insertions per mapped slot.
func NewCounting(size uint32, numHashFuncs int, maxCounter uint32, rankID, chipID, bfID int, reg *stats.Registry) *CountingFilter {
	if !isPowerOfTwo(size) {
		panic("bloom: size must be a power of two")
	}
	if numHashFuncs <= 0 {
		panic("bloom: at least one hash function is required")
	}
	f := &CountingFilter{
		maxCounter: maxCounter,
		bfID:       bfID,
		stats:      reg,
		prefix:     fmt.Sprintf("r%d_c%d", rankID, chipID),
	}
	f.entries = make([]uint32, size)
	f.shadow = make(map[uint32]struct{})
	f.ResetHashes(numHashFuncs, size)
	return f
}

// ResetHashes reinitializes the Q matrices from a fresh rng seeded by
// bfID; DualFilter.Swap calls it on the freshly cleared passive filter.
// The seed depends only on bfID, so the hash functions come out the same.
func (f *CountingFilter) ResetHashes(numHashFuncs int, size uint32) {
	rng := rand.New(rand.NewSource(int64(f.bfID)))
	f.hashes = make([]h3, numHashFuncs)
	for i := range f.hashes {
		f.hashes[i] = newH3(rng, size-1)
	}
}

// Clear resets every counter to zero and drops the shadow set.
func (f *CountingFilter) Clear() {
	for i := range f.entries {
		f.entries[i] = 0
	}
	f.shadow = make(map[uint32]struct{})
}

// Insert increments (saturating at maxCounter) every hash-mapped slot
// for key. Per spec.md §8, inserting into an already-saturated bucket
// is a no-op.
func (f *CountingFilter) Insert(key uint32) {
	for _, h := range f.hashes {
		idx := h.hash(key) % uint32(len(f.entries))
		if f.entries[idx] < f.maxCounter {
			f.entries[idx]++
		}
	}
	f.shadow[key] = struct{}{}
}

// Test reports whether every hash-mapped slot for key is at maxCounter
// (i.e. key has almost certainly been inserted at least maxCounter
// times, modulo hash collisions).
func (f *CountingFilter) Test(key uint32) bool {
	for _, h := range f.hashes {
		idx := h.hash(key) % uint32(len(f.entries))
		if f.entries[idx] != f.maxCounter {
			f.count("bf_negatives_" + f.prefix)
			return false
		}
	}
	f.count("bf_positives_" + f.prefix)
	if _, ok := f.shadow[key]; !ok {
		f.count("bf_false_positives_" + f.prefix)
	}
	return true
}

func (f *CountingFilter) count(name string) {
	if f.stats != nil {
		f.stats.Add(name, 1)
	}
}
