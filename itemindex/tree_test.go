package itemindex

import (
	"testing"

	"github.com/rpcpool/scoutcache/key"
	"github.com/rpcpool/scoutcache/value"
	"github.com/stretchr/testify/require"
)

func mustKey(t *testing.T, s string) key.Key {
	t.Helper()
	k, ok := key.New([]byte(s))
	require.True(t, ok)
	return k
}

func TestInsertAndFindLive(t *testing.T) {
	var tr Tree
	it := NewItem(mustKey(t, "b"), value.FromBytes([]byte("v")))
	require.NoError(t, tr.InsertOrReplaceTombstone(it))
	require.Equal(t, 1, tr.Len())

	got := tr.FindLive(mustKey(t, "b"))
	require.NotNil(t, got)
	require.Equal(t, "v", string(got.Val.Bytes()))

	require.Nil(t, tr.FindLive(mustKey(t, "z")))
}

func TestInsertDuplicateLiveIsRejected(t *testing.T) {
	var tr Tree
	a := NewItem(mustKey(t, "b"), value.Null())
	b := NewItem(mustKey(t, "b"), value.Null())
	require.NoError(t, tr.InsertOrReplaceTombstone(a))
	err := tr.InsertOrReplaceTombstone(b)
	require.ErrorIs(t, err, ErrDuplicate)
	require.Equal(t, 1, tr.Len())
}

func TestInsertReplacesTombstone(t *testing.T) {
	var tr Tree
	tomb := NewTombstone(mustKey(t, "b"))
	require.NoError(t, tr.InsertOrReplaceTombstone(tomb))
	require.Equal(t, 1, tr.Len())

	live := NewItem(mustKey(t, "b"), value.FromBytes([]byte("v")))
	require.NoError(t, tr.InsertOrReplaceTombstone(live))
	require.Equal(t, 1, tr.Len())
	got := tr.FindLive(mustKey(t, "b"))
	require.NotNil(t, got)
	require.Equal(t, "v", string(got.Val.Bytes()))
}

func TestEraseMaintainsOrderAcrossManyKeys(t *testing.T) {
	var tr Tree
	dumpOnFailure(t, &tr)
	keys := []string{"m", "f", "t", "a", "h", "z", "c", "k", "q", "b"}
	for _, s := range keys {
		it := NewItem(mustKey(t, s), value.Null())
		require.NoError(t, tr.InsertOrReplaceTombstone(it))
	}
	require.Equal(t, len(keys), tr.Len())

	// erase a leaf (z) and two nodes that each have two children (f, m)
	for _, s := range []string{"z", "f", "m"} {
		it := tr.FindLive(mustKey(t, s))
		require.NotNil(t, it)
		tr.Erase(it)
	}
	require.Equal(t, len(keys)-3, tr.Len())
	for _, s := range []string{"a", "h", "t", "c", "k", "q", "b"} {
		require.NotNil(t, tr.FindLive(mustKey(t, s)), "expected %q to remain", s)
	}
	for _, s := range []string{"z", "f", "m"} {
		require.Nil(t, tr.FindLive(mustKey(t, s)))
	}
}

func TestMarkDirtyClearDirtyUpdatesCounters(t *testing.T) {
	var tr Tree
	it := NewItem(mustKey(t, "b"), value.FromBytes([]byte("val")))
	require.NoError(t, tr.InsertOrReplaceTombstone(it))

	tr.MarkDirty(it)
	require.Equal(t, int64(1), tr.Counters.Items)
	require.Equal(t, int64(1), tr.Counters.KeyBytes)
	require.Equal(t, int64(3), tr.Counters.ValBytes)

	// marking an already-dirty item twice must not double count
	tr.MarkDirty(it)
	require.Equal(t, int64(1), tr.Counters.Items)

	tr.ClearDirty(it)
	require.Equal(t, int64(0), tr.Counters.Items)
	require.Equal(t, int64(0), tr.Counters.KeyBytes)
}

func TestInsertNewDirtySeedsAncestorSummaries(t *testing.T) {
	var tr Tree
	for _, s := range []string{"m", "f", "t"} {
		it := NewItem(mustKey(t, s), value.Null())
		require.NoError(t, tr.InsertOrReplaceTombstone(it))
	}
	dirty := NewItem(mustKey(t, "h"), value.FromBytes([]byte("x")))
	require.NoError(t, tr.InsertNewDirty(dirty))

	first := tr.FirstDirty()
	require.NotNil(t, first)
	require.True(t, key.Equal(first.Key, mustKey(t, "h")))
}

func TestFirstDirtyAndNextDirtyWalkInKeyOrder(t *testing.T) {
	var tr Tree
	keys := []string{"m", "f", "t", "a", "h", "z", "c", "k", "q", "b"}
	items := make(map[string]*Item)
	for _, s := range keys {
		it := NewItem(mustKey(t, s), value.Null())
		require.NoError(t, tr.InsertOrReplaceTombstone(it))
		items[s] = it
	}

	dirtyKeys := []string{"a", "h", "q", "z"}
	for _, s := range dirtyKeys {
		tr.MarkDirty(items[s])
	}

	var walked []string
	for cur := tr.FirstDirty(); cur != nil; cur = tr.NextDirty(cur) {
		walked = append(walked, string(cur.Key))
	}
	require.Equal(t, dirtyKeys, walked)
}

func TestNextLiveInWindowSkipsTombstones(t *testing.T) {
	var tr Tree
	live := NewItem(mustKey(t, "d"), value.FromBytes([]byte("v")))
	require.NoError(t, tr.InsertOrReplaceTombstone(live))
	tomb := NewTombstone(mustKey(t, "b"))
	require.NoError(t, tr.InsertOrReplaceTombstone(tomb))

	got := tr.NextLiveInWindow(mustKey(t, "a"), mustKey(t, "z"))
	require.NotNil(t, got)
	require.True(t, key.Equal(got.Key, mustKey(t, "d")))

	require.Nil(t, tr.NextLiveInWindow(mustKey(t, "a"), mustKey(t, "c")))
}

func TestNextLiveInWindowExactKeyWithRightSubtree(t *testing.T) {
	var tr Tree
	for _, s := range []string{"m", "z"} {
		it := NewItem(mustKey(t, s), value.Null())
		require.NoError(t, tr.InsertOrReplaceTombstone(it))
	}
	got := tr.NextLiveInWindow(mustKey(t, "m"), mustKey(t, "zz"))
	require.NotNil(t, got)
	require.True(t, key.Equal(got.Key, mustKey(t, "m")))
}
