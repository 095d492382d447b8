package rangeindex

import (
	"testing"

	"github.com/rpcpool/scoutcache/key"
	"github.com/stretchr/testify/require"
)

func TestCoversEmptyIndex(t *testing.T) {
	idx := New()
	covered, end := idx.Covers(key.Key("a"))
	require.False(t, covered)
	require.Equal(t, key.Max(), end)
}

func TestInsertAndCovers(t *testing.T) {
	idx := New()
	idx.Insert(key.Key("b"), key.Key("d"))

	covered, end := idx.Covers(key.Key("c"))
	require.True(t, covered)
	require.Equal(t, key.Key("d"), end)

	covered, end = idx.Covers(key.Key("a"))
	require.False(t, covered)
	require.Equal(t, key.Key("b"), end)

	covered, _ = idx.Covers(key.Key("e"))
	require.False(t, covered)
}

func TestInsertMergesOverlappingAndAbuttingRanges(t *testing.T) {
	idx := New()
	idx.Insert(key.Key("a"), key.Key("c"))
	idx.Insert(key.Key("c"), key.Key("e")) // abuts
	require.Equal(t, 1, idx.Len())

	all := idx.All()
	require.Equal(t, key.Key("a"), all[0].Start)
	require.Equal(t, key.Key("e"), all[0].End)

	idx.Insert(key.Key("g"), key.Key("i")) // disjoint
	require.Equal(t, 2, idx.Len())

	idx.Insert(key.Key("d"), key.Key("h")) // bridges both existing ranges
	require.Equal(t, 1, idx.Len())
	all = idx.All()
	require.Equal(t, key.Key("a"), all[0].Start)
	require.Equal(t, key.Key("i"), all[0].End)
}

func TestInsertIdempotent(t *testing.T) {
	idx := New()
	idx.Insert(key.Key("a"), key.Key("c"))
	idx.Insert(key.Key("a"), key.Key("c"))
	require.Equal(t, 1, idx.Len())
}
