package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNullIsDistinctFromEmpty(t *testing.T) {
	null := Null()
	require.True(t, null.IsNull())
	require.Equal(t, 0, null.Len())

	empty := FromBytes([]byte{})
	require.False(t, empty.IsNull())
	require.Equal(t, 0, empty.Len())
}

func TestFromBytesCopiesInput(t *testing.T) {
	b := []byte("hello")
	v := FromBytes(b)
	b[0] = 'X'
	require.Equal(t, "hello", string(v.Bytes()))
}

func TestFromScatterFlattens(t *testing.T) {
	v := FromScatter([]byte("foo"), []byte("bar"), []byte("baz"))
	require.Equal(t, "foobarbaz", string(v.Bytes()))
	require.Equal(t, 9, v.Len())
}

func TestCopyToTruncatesAndNeverFaultsOnNull(t *testing.T) {
	v := FromBytes([]byte("hello world"))
	out := make([]byte, 5)
	n := CopyTo(v, out)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(out))

	n = CopyTo(Null(), out)
	require.Equal(t, 0, n)
}
