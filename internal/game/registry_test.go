package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryFillOrder(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, RolePlayer1, r.Assign("a"))
	assert.Equal(t, RolePlayer2, r.Assign("b"))
	assert.Equal(t, RoleObserver, r.Assign("c"))
	assert.Equal(t, RoleObserver, r.Assign("d"))
	assert.Equal(t, 2, r.ActiveCount())
}

func TestRegistryAssignIdempotent(t *testing.T) {
	r := NewRegistry()

	require.Equal(t, RolePlayer1, r.Assign("a"))
	assert.Equal(t, RolePlayer1, r.Assign("a"))
	assert.Equal(t, 1, r.ActiveCount())
}

func TestRegistryReleaseFreesSeat(t *testing.T) {
	r := NewRegistry()
	r.Assign("a")
	r.Assign("b")

	role, ok := r.Release("a")
	require.True(t, ok)
	assert.Equal(t, RolePlayer1, role)
	assert.Equal(t, 1, r.ActiveCount())

	// Freed seat is handed to the next connection.
	assert.Equal(t, RolePlayer1, r.Assign("c"))
	assert.Equal(t, 2, r.ActiveCount())
}

func TestRegistryReleaseUnknown(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Release("ghost")
	assert.False(t, ok)
}

func TestRegistrySlotHoldersOrdered(t *testing.T) {
	r := NewRegistry()
	r.Assign("a")
	r.Assign("b")
	r.Assign("c")

	holders := r.SlotHolders()
	require.Len(t, holders, 2)
	assert.Equal(t, Player{ID: "a", Role: RolePlayer1}, holders[0])
	assert.Equal(t, Player{ID: "b", Role: RolePlayer2}, holders[1])
}

func TestRegistrySnapshotIsCopy(t *testing.T) {
	r := NewRegistry()
	r.Assign("a")

	snap := r.Snapshot()
	snap["a"] = RoleObserver

	role, _ := r.RoleOf("a")
	assert.Equal(t, RolePlayer1, role)
}

func TestRegistryClear(t *testing.T) {
	r := NewRegistry()
	r.Assign("a")
	r.Assign("b")
	r.Assign("c")

	r.Clear()
	assert.Equal(t, 0, r.ActiveCount())
	assert.Empty(t, r.Snapshot())
	assert.Equal(t, RolePlayer1, r.Assign("c"))
}
