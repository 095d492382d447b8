// Package observer is the injection point spec §9 calls for: "model
// counters and trace hooks as an injected observer interface with a no-op
// default; do not hard-wire to any logging facility." The cache façade
// calls these hooks around lookups, fetch-retries, and flush; callers
// choose whether that becomes Prometheus counters, trace spans, both, or
// nothing.
package observer

// Observer receives cache lifecycle events. Every method must be safe to
// call while the cache lock is held (hooks fire both inside and outside the
// locked sections), so implementations must not themselves block on the
// cache.
type Observer interface {
	// OnLookupHit fires when a lookup/next-style operation finds a live
	// item in the item index, whether or not it fetched segments first in
	// the same call.
	OnLookupHit()
	// OnLookupMiss fires when a lookup/next-style operation ends with
	// ErrNotFound: the key is covered and no live item exists.
	OnLookupMiss()
	// OnFetch fires once per release-lock-and-read-segments round trip,
	// with the width of the requested window in keys' worth of bytes
	// (len(start)+len(end), a cheap proxy — the reader doesn't report back
	// how much it actually read).
	OnFetch(windowBytes int)
	// OnDirtyMark fires after Create, Dirty, Update or Delete marks an
	// item dirty; OnDirtyClear fires when DirtySeg clears an item's dirty
	// flag after writing it.
	OnDirtyMark()
	OnDirtyClear()
	// OnFlush fires once per DirtySeg call with the number of items and
	// total key+value bytes written.
	OnFlush(items int, bytes int64)
}

// NoOp is the zero-cost default Observer: every method is a no-op.
type NoOp struct{}

func (NoOp) OnLookupHit()         {}
func (NoOp) OnLookupMiss()        {}
func (NoOp) OnFetch(int)          {}
func (NoOp) OnDirtyMark()         {}
func (NoOp) OnDirtyClear()        {}
func (NoOp) OnFlush(int, int64)   {}

var _ Observer = NoOp{}
