package sharedmem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOldifyProtocol(t *testing.T) {
	tbl := New[string, int](nil)
	tbl.Add("a", 1)

	tbl.OldifyBatch([]string{"a"})

	_, ok := tbl.Get("a")
	assert.False(t, ok, "current slot empty right after oldify")

	old, ok := tbl.GetOld("a")
	require.True(t, ok)
	assert.Equal(t, 1, old)

	tbl.Add("a", 2)
	cur, ok := tbl.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, cur)

	old, ok = tbl.GetOld("a")
	require.True(t, ok)
	assert.Equal(t, 1, old, "old snapshot untouched by in-progress write")

	tbl.RemoveOldBatch([]string{"a"})
	_, ok = tbl.GetOld("a")
	assert.False(t, ok)
}

func TestGetOrOldFallsBack(t *testing.T) {
	tbl := New[string, int](nil)
	tbl.Add("k", 10)
	tbl.OldifyBatch([]string{"k"})

	v, ok := tbl.GetOrOld("k")
	require.True(t, ok)
	assert.Equal(t, 10, v)

	tbl.Add("k", 20)
	v, ok = tbl.GetOrOld("k")
	require.True(t, ok)
	assert.Equal(t, 20, v)
}

func TestRemoveBatch(t *testing.T) {
	tbl := New[string, int](nil)
	tbl.Add("a", 1)
	tbl.Add("b", 2)
	tbl.RemoveBatch([]string{"a"})

	_, ok := tbl.Get("a")
	assert.False(t, ok)
	v, ok := tbl.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestSnapshotAndLoadSnapshotRoundTrip(t *testing.T) {
	tbl := New[string, int](nil)
	tbl.Add("a", 1)
	tbl.Add("b", 2)
	tbl.OldifyBatch([]string{"b"}) // only "a" should appear in the snapshot

	snap := tbl.Snapshot()
	assert.Equal(t, map[string]int{"a": 1}, snap)

	fresh := New[string, int](nil)
	fresh.LoadSnapshot(snap)
	v, ok := fresh.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = fresh.Get("b")
	assert.False(t, ok)
}
