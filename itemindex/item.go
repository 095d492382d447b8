package itemindex

import (
	"github.com/rpcpool/scoutcache/key"
	"github.com/rpcpool/scoutcache/value"
)

// dirty carries the three independent flags from spec §3: SELF marks this
// item as unflushed, LEFT/RIGHT_SUBTREE_HAS_DIRTY summarize whether any
// descendant in that subtree carries SELF or a subtree flag of its own.
type dirty struct {
	self  bool
	left  bool
	right bool
}

func (d dirty) any() bool {
	return d.self || d.left || d.right
}

// Item is a node owned by the augmented tree: a (key, value-or-tombstone,
// dirty-state) triple plus the red-black linkage the tree machinery needs.
type Item struct {
	Key      key.Key
	Val      value.Value
	Deletion bool

	dirty dirty

	left, right, parent *Item
	red                 bool
}

// NewItem allocates a live item with the given key and value. The returned
// item is not yet dirty and is not yet linked into any tree.
func NewItem(k key.Key, v value.Value) *Item {
	return &Item{Key: k, Val: v}
}

// NewTombstone allocates a deletion marker for k. Its value is always null.
func NewTombstone(k key.Key) *Item {
	return &Item{Key: k, Val: value.Null(), Deletion: true}
}

// IsLive reports whether it represents a live (non-tombstone) item.
// A nil Item is not live.
func (it *Item) IsLive() bool {
	return it != nil && !it.Deletion
}

// IsDirty reports whether it itself (not its subtrees) is unflushed.
func (it *Item) IsDirty() bool {
	return it != nil && it.dirty.self
}

// Counters tracks the aggregate dirty accounting from spec §3: the number of
// SELF-dirty items and the summed key/value byte lengths across them. All
// fields are non-negative for any reachable state.
type Counters struct {
	Items    int64
	KeyBytes int64
	ValBytes int64
}

func (c *Counters) add(it *Item) {
	c.Items++
	c.KeyBytes += int64(len(it.Key))
	c.ValBytes += int64(it.Val.Len())
}

func (c *Counters) sub(it *Item) {
	c.Items--
	c.KeyBytes -= int64(len(it.Key))
	c.ValBytes -= int64(it.Val.Len())
	if c.Items < 0 || c.KeyBytes < 0 || c.ValBytes < 0 {
		panic("itemindex: dirty counters went negative")
	}
}
