package maintenance

import (
	"testing"

	"github.com/smdsim/dramsim/smd"
	"github.com/stretchr/testify/require"
)

type fakeEnv struct{ activeSA map[uint32]bool }

func (e fakeEnv) IsSAActive(bankID int, saID uint32) bool { return e.activeSA[saID] }

func TestMachineLocksAndAdvances(t *testing.T) {
	lt := smd.NewLockTable(1, 2)
	counters := []*Counter{NewCounter(0, 0)}
	m := NewMachine(lt, 0, counters, 1, 8, 4, 2, false, 10)
	m.AddPendingMaint(0)

	env := fakeEnv{activeSA: map[uint32]bool{}}
	_, completed := m.Tick(env, 0)
	require.False(t, completed)
	require.True(t, lt.IsUnderMaintenance(0, 0, 0))

	_, completed = m.Tick(env, 1)
	require.False(t, completed)
	_, completed = m.Tick(env, 2)
	require.True(t, completed)
	require.False(t, lt.IsUnderMaintenance(0, 0, 0))
	require.Equal(t, uint32(1), counters[0].SAID)
}

func TestMachineSkipsActiveSA(t *testing.T) {
	lt := smd.NewLockTable(1, 1)
	counters := []*Counter{NewCounter(0, 0)}
	m := NewMachine(lt, 0, counters, 1, 8, 4, 2, false, 10)
	m.AddPendingMaint(0)

	env := fakeEnv{activeSA: map[uint32]bool{0: true}}
	_, completed := m.Tick(env, 0)
	require.False(t, completed)
	require.False(t, lt.IsUnderMaintenance(0, 0, 0))
}

func TestGrapheneTriggersAtThreshold(t *testing.T) {
	g := NewGraphene(4, 6, 1000, 1)
	var triggered bool
	for i := 0; i < 6; i++ {
		triggered = g.Observe(0, 5)
	}
	require.True(t, triggered)
}

func TestGrapheneNoTriggerBelowThreshold(t *testing.T) {
	g := NewGraphene(4, 6, 1000, 1)
	for i := 0; i < 5; i++ {
		require.False(t, g.Observe(0, 9))
	}
}

func TestNeighborsBoundary(t *testing.T) {
	require.Equal(t, []uint32{1}, Neighbors(0, 10))
	require.Equal(t, []uint32{8}, Neighbors(9, 10))
	require.Equal(t, []uint32{4, 6}, Neighbors(5, 10))
}

func TestNeighborFIFODedup(t *testing.T) {
	q := NewNeighborFIFO()
	require.True(t, q.Enqueue(RowAddr{BankID: 0, RowID: 1}))
	require.False(t, q.Enqueue(RowAddr{BankID: 0, RowID: 1}))
	require.Equal(t, 1, q.Len())
}

func TestPARAAlwaysOrNever(t *testing.T) {
	always := NewPARA(100, 1)
	require.True(t, always.Observe())
	never := NewPARA(0, 1)
	require.False(t, never.Observe())
}
