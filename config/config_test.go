package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultsFallback(t *testing.T) {
	c := New(nil)
	require.Equal(t, "DDR4", c.GetString("standard"))
	require.Equal(t, 9, c.GetInt("smd_pending_ref_limit"))
	require.False(t, c.GetBool("smd"))
}

func TestOverrideWinsOverDefault(t *testing.T) {
	c := New(map[string]string{"smd_mode": "ACT_NACK"})
	require.Equal(t, "ACT_NACK", c.GetString("smd_mode"))
	require.Equal(t, "RSQ", Defaults()["smd_mode"])
}

func TestSetMutatesOption(t *testing.T) {
	c := New(nil)
	c.Set("channels", "4")
	require.Equal(t, 4, c.GetInt("channels"))
}
