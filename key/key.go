// Package key implements the variable-length byte key primitive shared by
// the range index and the item index: a lexicographic total order over
// byte buffers, plus the two comparison helpers the rest of the cache is
// built on (point-to-range and range-to-range).
package key

import "bytes"

// MaxLen is the absolute maximum key length fixed at build time. Keys
// longer than this are rejected by every constructor in this package.
const MaxLen = 1024

// Key is an immutable, owned byte buffer with a lexicographic total order:
// shorter keys sort before longer keys that share their full prefix.
type Key []byte

// New copies b into a new Key. Returns false if b exceeds MaxLen.
func New(b []byte) (Key, bool) {
	if len(b) > MaxLen {
		return nil, false
	}
	k := make(Key, len(b))
	copy(k, b)
	return k, true
}

// Max is the sentinel key that no valid key sorts above (it equals the
// MaxLen-byte key of all 0xff bytes): used as the upper bound of a range
// when no next range exists.
func Max() Key {
	k := make(Key, MaxLen)
	for i := range k {
		k[i] = 0xff
	}
	return k
}

// Compare returns <0 if a<b, 0 if equal, >0 if a>b: bytewise up to the
// shorter length, with the longer key greater on a common-prefix tie.
func Compare(a, b Key) int {
	return bytes.Compare(a, b)
}

// Equal reports whether a and b are the same key.
func Equal(a, b Key) bool {
	return bytes.Equal(a, b)
}

// Range is an inclusive key interval [Start, End].
type Range struct {
	Start Key
	End   Key
}

// ComparePointToRange returns <0 if k<r.Start, >0 if k>r.End, 0 if k is
// within [r.Start, r.End].
func ComparePointToRange(k Key, r Range) int {
	if Compare(k, r.Start) < 0 {
		return -1
	}
	if Compare(k, r.End) > 0 {
		return 1
	}
	return 0
}

// CompareRanges returns <0 if a strictly precedes b (a.End < b.Start), >0 if
// a strictly follows b (a.Start > b.End), and 0 if they overlap or touch
// (abut) — the boundary used by the range index's greedy-merge insert.
func CompareRanges(a, b Range) int {
	if Compare(a.End, b.Start) < 0 {
		return -1
	}
	if Compare(a.Start, b.End) > 0 {
		return 1
	}
	return 0
}
