package bloom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterNoFalseNegatives(t *testing.T) {
	f := New(16, 2, 0, 3, 0, nil)
	for _, k := range []uint32{7, 19, 42} {
		f.Insert(k)
	}
	for _, k := range []uint32{7, 19, 42} {
		require.True(t, f.Test(k))
	}
}

func TestFilterDeterministicAcrossInstances(t *testing.T) {
	a := New(16, 2, 0, 0, 5, nil)
	b := New(16, 2, 0, 0, 5, nil)
	a.Insert(11)
	b.Insert(11)
	for k := uint32(0); k < 32; k++ {
		require.Equal(t, a.Test(k), b.Test(k))
	}
}

func TestFilterClear(t *testing.T) {
	f := New(16, 2, 0, 0, 1, nil)
	f.Insert(3)
	require.True(t, f.Test(3))
	f.Clear()
	require.Equal(t, f.Size(), f.NumZeroEntries())
}

func TestCountingFilterSaturation(t *testing.T) {
	f := NewCounting(16, 2, 4, 0, 0, 1, nil)
	for i := 0; i < 3; i++ {
		f.Insert(9)
		require.False(t, f.Test(9))
	}
	f.Insert(9)
	require.True(t, f.Test(9))
}

func TestCountingFilterSaturatedInsertIsNoop(t *testing.T) {
	f := NewCounting(16, 1, 2, 0, 0, 2, nil)
	f.Insert(5)
	f.Insert(5)
	require.True(t, f.Test(5))
	f.Insert(5)
	require.True(t, f.Test(5))
}

func TestDualFilterSwapClearsPassive(t *testing.T) {
	d := NewDual(16, 2, 3, false, 0, 0, nil)
	for i := 0; i < 3; i++ {
		d.Insert(21)
	}
	require.True(t, d.Test(21))
	// The first Swap promotes the passive filter, which received the same
	// inserts, and clears the old active one; the second Swap promotes
	// that cleared filter.
	d.Swap()
	d.Swap()
	require.False(t, d.Test(21))
}
