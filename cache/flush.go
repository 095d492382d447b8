package cache

import (
	"github.com/rpcpool/scoutcache/itemindex"
	"github.com/rpcpool/scoutcache/segment"
)

// DirtyFitsSingle reports whether the entire current dirty set would fit in
// one segment according to w's own sizing rule, without writing anything.
// Callers use this to decide up front whether a single DirtySeg call will
// drain the dirty set or whether they must loop.
func (c *Cache) DirtyFitsSingle(w segment.Writer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cnt := c.items.Counters
	return w.FitsSingle(int(cnt.Items), cnt.KeyBytes, cnt.ValBytes)
}

// DirtySeg writes as many dirty items as fit into a single segment via w,
// in key order starting from the smallest dirty key, clearing each item's
// dirty bit as it's written and erasing any tombstone once the walk that
// might still reference it has finished. It returns the number of items
// written.
//
// The two-pass shape — count first, then write — exists because w decides
// how many items fit from the aggregate byte totals before any write
// happens (FitsSingle), and segment.Writer has no "are we full yet" signal
// of its own to stop a single interleaved pass partway through (spec §4.E).
func (c *Cache) DirtySeg(w segment.Writer) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, keyBytes, valBytes := c.countFittingDirty(w)
	if n == 0 {
		return 0, nil
	}

	var toErase []*itemindex.Item
	written := 0
	cur := c.items.FirstDirty()
	for cur != nil && written < n {
		next := c.items.NextDirty(cur)

		flags := segment.ItemFlags(0)
		if cur.Deletion {
			flags = segment.FlagDeletion
		}

		var err error
		if written == 0 {
			err = w.FirstItem(cur.Key, cur.Val.Bytes(), flags, n, keyBytes)
		} else {
			err = w.AppendItem(cur.Key, cur.Val.Bytes(), flags)
		}
		if err != nil {
			return written, err
		}

		c.items.ClearDirty(cur)
		c.observer.OnDirtyClear()
		if cur.Deletion {
			toErase = append(toErase, cur)
		}

		written++
		cur = next
	}

	for _, it := range toErase {
		c.items.Erase(it)
	}

	c.observer.OnFlush(written, keyBytes+valBytes)
	return written, nil
}

// countFittingDirty walks the dirty set in key order asking w.FitsSingle
// after each addition, stopping at the first item that would overflow a
// single segment. It never mutates the tree.
func (c *Cache) countFittingDirty(w segment.Writer) (n int, keyBytes, valBytes int64) {
	cur := c.items.FirstDirty()
	for cur != nil {
		nk := keyBytes + int64(len(cur.Key))
		nv := valBytes + int64(cur.Val.Len())
		if n > 0 && !w.FitsSingle(n+1, nk, nv) {
			break
		}
		n++
		keyBytes, valBytes = nk, nv
		cur = c.items.NextDirty(cur)
	}
	return n, keyBytes, valBytes
}
