package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryAddAndDump(t *testing.T) {
	r := NewRegistry()
	r.Add("num_act_0", 1)
	r.Add("num_act_0", 1)
	r.Set("row_hit_rate_channel_0", 0.9166667, 4)

	v, ok := r.Value("num_act_0")
	require.True(t, ok)
	require.Equal(t, 2.0, v)

	dump := r.Dump()
	require.Len(t, dump, 2)
	require.Equal(t, "num_act_0: 2", dump[0])
	require.Equal(t, "row_hit_rate_channel_0: 0.9167", dump[1])
}

func TestRegistrySanitizesName(t *testing.T) {
	r := NewRegistry()
	r.Add("bf_false_positives_r0_c3", 5)
	v, ok := r.Value("bf_false_positives_r0_c3")
	require.True(t, ok)
	require.Equal(t, 5.0, v)
}
