package cache

import (
	"github.com/rpcpool/scoutcache/itemindex"
	"github.com/rpcpool/scoutcache/key"
	"github.com/rpcpool/scoutcache/segment"
	"github.com/rpcpool/scoutcache/value"
)

// Batch is a caller-owned staging list of items awaiting atomic insertion,
// matching spec §9's "two distinct owning containers" replacement for the
// original source's intrusive tree-node/list-entry union: a Batch and the
// item tree are separate containers, and items move between them by value
// (here, by pointer hand-off) rather than by reinterpreting one struct as
// the other.
type Batch struct {
	items []*itemindex.Item
}

// NewBatch returns an empty staging list.
func NewBatch() *Batch {
	return &Batch{}
}

// AddBatch allocates an item for k/val and appends it to b in the caller's
// chosen order. Used by a segment.Reader to stage items before calling
// InsertBatch.
func (c *Cache) AddBatch(b *Batch, k key.Key, val []byte, isNull bool) error {
	v := value.Null()
	if !isNull {
		v = value.FromBytes(val)
	}
	b.items = append(b.items, itemindex.NewItem(k, v))
	return nil
}

// InsertBatch atomically inserts the coverage interval [start, end] into
// the range index, then attempts to insert every staged item in order; an
// item whose key already has an entry in the tree, live or tombstone, is
// presumed to have been created, updated or deleted more recently than the
// segment read that staged it, and is silently discarded rather than
// overwriting. b is consumed and cleared on return.
func (c *Cache) InsertBatch(b *Batch, start, end key.Key) error {
	if key.Compare(start, end) > 0 {
		b.items = nil
		return ErrInvalid
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.ranges.Insert(start, end)
	for _, it := range b.items {
		// A tombstone here is an unflushed delete; the staged segment copy
		// is older and must not resurrect the key.
		if hit, _, _ := c.items.Walk(it.Key); hit != nil {
			continue
		}
		_ = c.items.InsertOrReplaceTombstone(it)
	}
	b.items = nil
	return nil
}

// FreeBatch discards a batch's staged items without inserting them.
func FreeBatch(b *Batch) {
	b.items = nil
}

// batchSink adapts a single Cache+Batch pair to the segment.BatchSink
// interface a Reader drives.
type batchSink struct {
	c *Cache
	b *Batch
}

func (s *batchSink) AddBatch(k key.Key, val []byte, isNull bool) error {
	return s.c.AddBatch(s.b, k, val, isNull)
}

func (s *batchSink) InsertBatch(start, end key.Key) error {
	return s.c.InsertBatch(s.b, start, end)
}

var _ segment.BatchSink = (*batchSink)(nil)
