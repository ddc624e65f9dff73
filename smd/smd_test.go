package smd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockTableExclusivity(t *testing.T) {
	lt := NewLockTable(2, 4)
	lt.Lock(0, 1, 5, false, 0)
	require.True(t, lt.IsUnderMaintenance(0, 1, 5))
	require.False(t, lt.IsUnderMaintenance(1, 1, 5))
	require.Panics(t, func() { lt.Lock(0, 1, 6, false, 1) })
	lt.Release(0, 1, 5, 1)
	require.False(t, lt.IsUnderMaintenance(0, 1, 5))
}

func TestLockTableCooldown(t *testing.T) {
	lt := NewLockTable(1, 1)
	lt.CommunicateLockedSAs(0, 100, 50)
	require.True(t, lt.IsOnCooldown(0, 0, 120))
	require.False(t, lt.IsOnCooldown(0, 0, 200))
}

func TestTrackerStaleUntilUpdated(t *testing.T) {
	tr := NewTracker(2, 1, 50)
	require.Equal(t, CanOpenStale, tr.CanOpen(0, 3, 10))
	tr.Update(0, 0, nil, 10)
	require.Equal(t, CanOpenOK, tr.CanOpen(0, 3, 20))
}

func TestTrackerLockedWhenBusy(t *testing.T) {
	tr := NewTracker(2, 1, 50)
	tr.Update(0, 0, []uint32{3}, 10)
	require.Equal(t, CanOpenLocked, tr.CanOpen(0, 3, 15))
	require.Equal(t, CanOpenOK, tr.CanOpen(0, 4, 15))
}

func TestAlertSetDrainsAscending(t *testing.T) {
	as := NewAlertSet()
	as.Raise(3)
	as.Raise(1)
	as.Raise(2)
	require.Equal(t, []int{1, 2, 3}, as.DrainAscending())
	require.True(t, as.IsAwaitingResponse(1))
	as.ResolveResponse(1)
	require.False(t, as.IsAwaitingResponse(1))
}
