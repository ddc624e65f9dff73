package bloom

import (
	"fmt"
	"math/rand"

	"github.com/smdsim/dramsim/stats"
)

// Filter is a plain membership Bloom filter: Insert sets every mapped
// bit; Test returns true iff all mapped bits are set (spec.md §4.5,
// §8 "no false negatives").
type Filter struct {
	entries []bool
	hashes  []h3
	rankID  int
	chipID  int
	bfID    int

	shadow map[uint32]struct{}
	stats  *stats.Registry
	prefix string
}

// New builds a Filter of size entries (must be a power of two) with
// numHashFuncs independent H3 functions, seeded deterministically from
// bfID (spec.md §5 Determinism — never from time). rankID/chipID only
// name the stats surface.
func New(size uint32, numHashFuncs int, rankID, chipID, bfID int, reg *stats.Registry) *Filter {
	if !isPowerOfTwo(size) {
		panic("bloom: size must be a power of two")
	}
	if numHashFuncs <= 0 {
		panic("bloom: at least one hash function is required")
	}
	f := &Filter{
		rankID: rankID,
		chipID: chipID,
		bfID:   bfID,
		stats:  reg,
		prefix: fmt.Sprintf("r%d_c%d", rankID, chipID),
	}
	f.initStorage(size)
	f.ResetHashes(numHashFuncs, size)
	return f
}

func (f *Filter) initStorage(size uint32) {
	f.entries = make([]bool, size)
	f.shadow = make(map[uint32]struct{})
}

// ResetHashes reinitializes the Q matrices from a fresh rng seeded by
// bfID. The seed depends only on bfID, so the regenerated hash
// functions are the same ones the filter already had.
func (f *Filter) ResetHashes(numHashFuncs int, size uint32) {
	rng := rand.New(rand.NewSource(int64(f.bfID)))
	f.hashes = make([]h3, numHashFuncs)
	for i := range f.hashes {
		f.hashes[i] = newH3(rng, size-1)
	}
}

// Size returns the number of entries.
func (f *Filter) Size() int { return len(f.entries) }

// Clear resets every entry to unset and drops the shadow set.
func (f *Filter) Clear() {
	for i := range f.entries {
		f.entries[i] = false
	}
	f.shadow = make(map[uint32]struct{})
}

// Insert sets every hash-mapped entry for key.
func (f *Filter) Insert(key uint32) {
	for _, h := range f.hashes {
		f.entries[h.hash(key)%uint32(len(f.entries))] = true
	}
	f.shadow[key] = struct{}{}
}

// Test reports whether key might be a member. A true result where key
// was never inserted is a false positive, counted as a stat (spec.md
// §7: Bloom false positives are expected, never an error).
func (f *Filter) Test(key uint32) bool {
	for _, h := range f.hashes {
		if !f.entries[h.hash(key)%uint32(len(f.entries))] {
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

// NumZeroEntries reports how many entries are still unset.
func (f *Filter) NumZeroEntries() int {
	n := 0
	for _, e := range f.entries {
		if !e {
			n++
		}
	}
	return n
}

func (f *Filter) count(name string) {
	if f.stats != nil {
		f.stats.Add(name, 1)
	}
}
