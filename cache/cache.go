// Package cache implements the item cache façade (spec §4.D): the public
// operations clients call, the reconciliation of item-index misses against
// the range index and an external segment reader, and the two-pass dirty
// flush protocol.
//
// The retry shape of every read-style operation — lock, inspect, release,
// fetch, relock, recheck — is grounded on range-cache.go's GetRange: both
// hold a single mutex across in-memory work only, release it before a
// blocking external call, and unconditionally re-check cache state after
// reacquiring the lock because another goroutine may have changed it while
// the lock was released (spec §5, and scenario 6 in spec §8).
package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/dustin/go-humanize"
	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/rpcpool/scoutcache/itemindex"
	"github.com/rpcpool/scoutcache/key"
	"github.com/rpcpool/scoutcache/observer"
	"github.com/rpcpool/scoutcache/rangeindex"
	"github.com/rpcpool/scoutcache/segment"
	"github.com/rpcpool/scoutcache/value"
)

var log = logging.Logger("scoutcache")

// Cache is a per-mount in-memory item cache: an augmented item index, a
// range-coverage index, and the dirty-set aggregates they share, all
// guarded by a single non-reentrant mutex. The zero value is not usable;
// construct with Setup.
type Cache struct {
	mu     sync.Mutex
	items  itemindex.Tree
	ranges rangeindex.Index

	reader   segment.Reader
	observer observer.Observer
	tracer   trace.Tracer
}

// Option configures a Cache at Setup time, following the Option
// func(*config) pattern store/store.go and gsfa/store/option.go use.
type Option func(*Cache)

// WithObserver injects a counters/tracing sink. Defaults to observer.NoOp.
func WithObserver(o observer.Observer) Option {
	return func(c *Cache) { c.observer = o }
}

// WithTracer overrides the otel.Tracer used for fetch-retry spans. Defaults
// to the global tracer provider's "scoutcache" tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *Cache) { c.tracer = t }
}

// Setup constructs an empty cache attached to reader. There is no
// process-wide singleton (spec §9): each mount constructs and owns its own
// Cache and threads it explicitly through every call.
func Setup(reader segment.Reader, opts ...Option) *Cache {
	c := &Cache{
		reader:   reader,
		observer: observer.NoOp{},
		tracer:   otel.Tracer("scoutcache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Destroy tears down the cache. The spec assumes no concurrent readers at
// teardown; unlike a production allocator-backed tree, Go's garbage
// collector reclaims the item and range nodes once Destroy drops the
// Cache's references, so there is no explicit post-order free walk to
// perform — only the reset spec §3 requires ("torn down at unmount").
func (c *Cache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = itemindex.Tree{}
	c.ranges = *rangeindex.New()
}

// fetch releases no locks itself (callers must already have released
// theirs) and asks the segment reader to populate [start, end], tracing the
// round trip and reporting it to the observer.
func (c *Cache) fetch(ctx context.Context, start, end key.Key) error {
	ctx, span := c.tracer.Start(ctx, "scoutcache.fetch")
	defer span.End()

	c.observer.OnFetch(len(start) + len(end))

	b := NewBatch()
	sink := &batchSink{c: c, b: b}
	if err := c.reader.ReadItems(ctx, start, end, sink); err != nil {
		log.Debugw("segment fetch failed", "err", err)
		return err
	}
	return nil
}

// Lookup returns the bytes of the live item at k copied into out, or
// ErrNotFound if k is covered by cache metadata with no live item, or a
// segment reader error.
func (c *Cache) Lookup(ctx context.Context, k key.Key, out []byte) (int, error) {
	c.mu.Lock()
	for {
		if it := c.items.FindLive(k); it != nil {
			n := value.CopyTo(it.Val, out)
			c.mu.Unlock()
			c.observer.OnLookupHit()
			return n, nil
		}

		covered, end := c.ranges.Covers(k)
		if covered {
			c.mu.Unlock()
			c.observer.OnLookupMiss()
			return 0, ErrNotFound
		}

		c.mu.Unlock()
		if err := c.fetch(ctx, k, end); err != nil {
			return 0, err
		}
		c.mu.Lock()
	}
}

// LookupExact is Lookup with an exact-length contract: a short or long read
// is surfaced as ErrCorrupt rather than silently truncated/short bytes.
func (c *Cache) LookupExact(ctx context.Context, k key.Key, out []byte, expectedLen int) (int, error) {
	n, err := c.Lookup(ctx, k, out)
	if err != nil {
		return n, err
	}
	if n != expectedLen {
		return n, ErrCorrupt
	}
	return n, nil
}

// Next finds the least live item with key in [from, last], copies its key
// into outKey and its value into outVal, and returns the bytes copied. See
// spec §4.D for the six-step retry protocol this implements: coverage of
// `from` determines whether the fetch window is [from, range_end] (not yet
// covered) or [range_end, last] (covered, but no successor up to range_end
// and more of the requested window remains uncovered).
func (c *Cache) Next(ctx context.Context, from, last key.Key, outKey *key.Key, outVal []byte) (int, error) {
	if key.Compare(from, last) > 0 {
		return 0, ErrNotFound
	}

	c.mu.Lock()
	for {
		covered, rangeEnd := c.ranges.Covers(from)
		if covered {
			upper := last
			if key.Compare(rangeEnd, last) < 0 {
				upper = rangeEnd
			}
			if it := c.items.NextLiveInWindow(from, upper); it != nil {
				*outKey = it.Key
				n := value.CopyTo(it.Val, outVal)
				c.mu.Unlock()
				c.observer.OnLookupHit()
				return n, nil
			}
			if key.Compare(rangeEnd, last) < 0 {
				c.mu.Unlock()
				if err := c.fetch(ctx, rangeEnd, last); err != nil {
					return 0, err
				}
				c.mu.Lock()
				continue
			}
			c.mu.Unlock()
			c.observer.OnLookupMiss()
			return 0, ErrNotFound
		}

		c.mu.Unlock()
		if err := c.fetch(ctx, from, rangeEnd); err != nil {
			return 0, err
		}
		c.mu.Lock()
	}
}

// NextKey is Next with the ergonomic key-cursor rebinding SPEC_FULL.md's
// supplemented-features section describes: callers pass the same key
// variable in as the scan cursor and get it overwritten with the next hit,
// instead of threading a separate out-key buffer through each call.
func (c *Cache) NextKey(ctx context.Context, cursor *key.Key, last key.Key, outVal []byte) (int, error) {
	return c.Next(ctx, *cursor, last, cursor, outVal)
}

// NextSameLen is Next with a fixed expected key length.
func (c *Cache) NextSameLen(ctx context.Context, from, last key.Key, keyLen int, outKey *key.Key, outVal []byte) (int, error) {
	n, err := c.Next(ctx, from, last, outKey, outVal)
	if err != nil {
		return n, err
	}
	if len(*outKey) != keyLen {
		return n, ErrCorrupt
	}
	return n, nil
}

// NextSameMin is Next with a minimum expected value length.
func (c *Cache) NextSameMin(ctx context.Context, from, last key.Key, minValLen int, outKey *key.Key, outVal []byte) (int, error) {
	n, err := c.Next(ctx, from, last, outKey, outVal)
	if err != nil {
		return n, err
	}
	if n < minValLen {
		return n, ErrCorrupt
	}
	return n, nil
}

// Create allocates a new dirty item for k/val and inserts it. It does not
// consult segments first (spec §9 open question): a Create over a key that
// already has on-disk data in a segment the cache hasn't read yet will
// silently mask that data. Callers are presumed to hold whatever external
// locking prevents this.
func (c *Cache) Create(k key.Key, val []byte, isNull bool) error {
	v := value.Null()
	if !isNull {
		v = value.FromBytes(val)
	}
	it := itemindex.NewItem(k, v)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.items.InsertNewDirty(it); err != nil {
		if errors.Is(err, itemindex.ErrDuplicate) {
			return ErrExists
		}
		return err
	}
	c.observer.OnDirtyMark()
	return nil
}

// Dirty ensures the item at k is present and marks it dirty, reading it
// from segments first if necessary. Returns ErrNotFound if k is covered
// with no live item present.
func (c *Cache) Dirty(ctx context.Context, k key.Key) error {
	c.mu.Lock()
	for {
		if it := c.items.FindLive(k); it != nil {
			c.items.MarkDirty(it)
			c.mu.Unlock()
			c.observer.OnDirtyMark()
			return nil
		}

		covered, end := c.ranges.Covers(k)
		if covered {
			c.mu.Unlock()
			return ErrNotFound
		}

		c.mu.Unlock()
		if err := c.fetch(ctx, k, end); err != nil {
			return err
		}
		c.mu.Lock()
	}
}

// Update is Dirty plus replacing the value: it clears dirty, swaps in the
// new value, then marks dirty again so the aggregate counters reflect the
// new length rather than double-counting the old one. A null val is a
// valid update, storing the absent value.
func (c *Cache) Update(ctx context.Context, k key.Key, val []byte, isNull bool) error {
	c.mu.Lock()
	for {
		if it := c.items.FindLive(k); it != nil {
			c.items.ClearDirty(it)
			if isNull {
				it.Val = value.Null()
			} else {
				it.Val = value.FromBytes(val)
			}
			c.items.MarkDirty(it)
			c.mu.Unlock()
			c.observer.OnDirtyMark()
			return nil
		}

		covered, end := c.ranges.Covers(k)
		if covered {
			c.mu.Unlock()
			return ErrNotFound
		}

		c.mu.Unlock()
		if err := c.fetch(ctx, k, end); err != nil {
			return err
		}
		c.mu.Lock()
	}
}

// Delete requires the item to exist: same read-then-retry loop as Dirty. On
// presence it converts the item into a tombstone (value cleared, Deletion
// set, marked dirty) rather than removing it outright — a tombstone
// survives until DirtySeg flushes and erases it.
func (c *Cache) Delete(ctx context.Context, k key.Key) error {
	c.mu.Lock()
	for {
		if it := c.items.FindLive(k); it != nil {
			c.items.ClearDirty(it)
			it.Val = value.Null()
			it.Deletion = true
			c.items.MarkDirty(it)
			c.mu.Unlock()
			c.observer.OnDirtyMark()
			return nil
		}

		covered, end := c.ranges.Covers(k)
		if covered {
			c.mu.Unlock()
			return ErrNotFound
		}

		c.mu.Unlock()
		if err := c.fetch(ctx, k, end); err != nil {
			return err
		}
		c.mu.Lock()
	}
}

// DeleteDirty converts the item at k into a dirty tombstone without
// consulting the segment reader. The caller guarantees the item is already
// present and dirty (e.g. via a prior Dirty call); if no live item is
// present at k, DeleteDirty is a silent no-op rather than an error, per
// spec §6's table (no failure code is defined for this operation).
func (c *Cache) DeleteDirty(k key.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it := c.items.FindLive(k)
	if it == nil {
		return
	}
	c.items.ClearDirty(it)
	it.Val = value.Null()
	it.Deletion = true
	c.items.MarkDirty(it)
}

// DeleteMany pins every key with Dirty first — any failure aborts the
// whole batch before a single deletion happens — then applies DeleteDirty
// to each pinned key. This two-phase shape guarantees the batch cannot
// partially fail once the deletion phase begins (spec §4.D, and the
// original's scoutfs_item_delete_many item.c walks the same way).
func (c *Cache) DeleteMany(ctx context.Context, keys []key.Key) error {
	for _, k := range keys {
		if err := c.Dirty(ctx, k); err != nil {
			return err
		}
	}
	for _, k := range keys {
		c.DeleteDirty(k)
	}
	return nil
}

// HasDirty reports whether the cache currently holds any dirty item.
func (c *Cache) HasDirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Counters.Items > 0
}

// Stats is a point-in-time snapshot of the dirty-set aggregates.
type Stats struct {
	DirtyItems    int64
	DirtyKeyBytes int64
	DirtyValBytes int64
}

// Stats returns a snapshot of the current dirty aggregates.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	cnt := c.items.Counters
	return Stats{DirtyItems: cnt.Items, DirtyKeyBytes: cnt.KeyBytes, DirtyValBytes: cnt.ValBytes}
}

// String renders the snapshot for logs/REPL output with human-scaled byte
// counts, matching gsfa/worker.go's use of humanize.Bytes for progress logs.
func (s Stats) String() string {
	return humanize.Comma(s.DirtyItems) + " items, " +
		humanize.Bytes(uint64(s.DirtyKeyBytes)) + " keys, " +
		humanize.Bytes(uint64(s.DirtyValBytes)) + " values dirty"
}
