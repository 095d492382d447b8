// Package rangeindex implements the cache's coverage metadata: an ordered
// set of disjoint, non-abutting key intervals recording which key ranges
// are known to be fully represented in the item index.
//
// The merge-on-insert policy mirrors the consolidation pass in
// range-cache.go's setRange: collect every existing interval that overlaps
// or touches the new one, widen the new interval to their union, and drop
// the old intervals. Unlike range-cache.go this index never evicts — ranges
// are coverage metadata, not cached payload, so there is nothing to expire.
package rangeindex

import (
	"sort"

	"github.com/rpcpool/scoutcache/key"
)

// Index is an ordered set of disjoint key.Range intervals. The zero value
// is a ready-to-use empty index. Not safe for concurrent use; callers
// (the cache façade) serialize access externally.
type Index struct {
	ranges []key.Range // kept sorted by Start; pairwise non-overlapping, non-abutting
}

// New returns an empty range index.
func New() *Index {
	return &Index{}
}

// Len returns the number of disjoint ranges currently tracked.
func (idx *Index) Len() int {
	return len(idx.ranges)
}

func (idx *Index) search(k key.Key) int {
	return sort.Search(len(idx.ranges), func(i int) bool {
		return key.Compare(idx.ranges[i].End, k) >= 0
	})
}

// Covers reports whether k falls inside a tracked range. If it does, end is
// that range's End. If it does not, end is the Start of the least range
// strictly greater than k, or the maximal key sentinel if no such range
// exists.
func (idx *Index) Covers(k key.Key) (covered bool, end key.Key) {
	i := idx.search(k)
	if i < len(idx.ranges) {
		r := idx.ranges[i]
		if key.ComparePointToRange(k, r) == 0 {
			return true, r.End
		}
		return false, r.Start
	}
	return false, key.Max()
}

// Insert widens the index to cover [start, end], greedily merging with any
// number of existing ranges that overlap or abut it. Terminates because
// each merge strictly reduces the number of remaining overlapping
// neighbours (see spec §4.B).
func (idx *Index) Insert(start, end key.Key) {
	cur := key.Range{Start: start, End: end}

	for {
		merged := false
		out := idx.ranges[:0:0]
		for _, r := range idx.ranges {
			if key.CompareRanges(cur, r) == 0 {
				if key.Compare(r.Start, cur.Start) < 0 {
					cur.Start = r.Start
				}
				if key.Compare(r.End, cur.End) > 0 {
					cur.End = r.End
				}
				merged = true
				continue
			}
			out = append(out, r)
		}
		idx.ranges = out
		if !merged {
			break
		}
	}

	i := sort.Search(len(idx.ranges), func(i int) bool {
		return key.Compare(idx.ranges[i].Start, cur.Start) >= 0
	})
	idx.ranges = append(idx.ranges, key.Range{})
	copy(idx.ranges[i+1:], idx.ranges[i:])
	idx.ranges[i] = cur
}

// All returns a defensive copy of the tracked ranges in ascending order, for
// tests and diagnostics.
func (idx *Index) All() []key.Range {
	out := make([]key.Range, len(idx.ranges))
	copy(out, idx.ranges)
	return out
}
