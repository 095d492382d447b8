package key

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsOverlong(t *testing.T) {
	_, ok := New(make([]byte, MaxLen+1))
	require.False(t, ok)

	k, ok := New(make([]byte, MaxLen))
	require.True(t, ok)
	require.Len(t, k, MaxLen)
}

func TestCompareOrdersByPrefixThenLength(t *testing.T) {
	a, _ := New([]byte("ab"))
	b, _ := New([]byte("abc"))
	require.True(t, Compare(a, b) < 0)
	require.True(t, Compare(b, a) > 0)
	require.Equal(t, 0, Compare(a, a))
}

func TestMaxSortsAboveEveryKey(t *testing.T) {
	k, _ := New([]byte{0xff, 0xff})
	require.True(t, Compare(k, Max()) <= 0)
}

func TestComparePointToRange(t *testing.T) {
	r := Range{Start: Key("b"), End: Key("d")}
	require.Equal(t, -1, ComparePointToRange(Key("a"), r))
	require.Equal(t, 0, ComparePointToRange(Key("b"), r))
	require.Equal(t, 0, ComparePointToRange(Key("c"), r))
	require.Equal(t, 0, ComparePointToRange(Key("d"), r))
	require.Equal(t, 1, ComparePointToRange(Key("e"), r))
}

func TestCompareRangesOverlapVsAbutVsDisjoint(t *testing.T) {
	a := Range{Start: Key("a"), End: Key("c")}
	touching := Range{Start: Key("c"), End: Key("e")}
	overlapping := Range{Start: Key("b"), End: Key("d")}
	disjoint := Range{Start: Key("x"), End: Key("z")}

	require.Equal(t, 0, CompareRanges(a, touching))
	require.Equal(t, 0, CompareRanges(a, overlapping))
	require.True(t, CompareRanges(a, disjoint) < 0)
	require.True(t, CompareRanges(disjoint, a) > 0)
}
