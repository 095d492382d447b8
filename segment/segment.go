// Package segment states the contracts the cache façade expects from its
// two external collaborators: the segment reader that populates the cache
// on a coverage miss, and the segment writer that a flush streams the dirty
// set into. Both are out of scope per spec §1; this package only pins down
// the interfaces, mirrored on store/primary.PrimaryStorage's shape (Get,
// Put, Flush, Sync, Close, OutstandingWork, StorageSize) from the teacher.
package segment

import (
	"context"

	"github.com/rpcpool/scoutcache/key"
)

// ItemFlags is the bitfield segment records carry; only Deletion is defined
// at this layer (spec §6).
type ItemFlags uint8

const FlagDeletion ItemFlags = 1 << 0

// Reader populates the cache with every live item in [start, end] by
// constructing a batch and calling back into the cache's AddBatch then
// InsertBatch(list, start, end). It is called synchronously, without the
// cache lock held, and may block on I/O.
type Reader interface {
	ReadItems(ctx context.Context, start, end key.Key, into BatchSink) error
}

// BatchSink is the callback surface a Reader uses to stage items it read
// before the cache atomically installs them. It is implemented by the cache
// façade; segment.Reader implementations never construct items themselves.
type BatchSink interface {
	AddBatch(k key.Key, val []byte, isNull bool) error
	InsertBatch(start, end key.Key) error
}

// Writer is the segment-writer contract a flush drives (spec §6):
// FitsSingle is a pure function of the segment format; FirstItem primes a
// new segment's header counts; AppendItem writes every subsequent item.
type Writer interface {
	FitsSingle(nr int, keyBytes, valBytes int64) bool
	FirstItem(k key.Key, val []byte, flags ItemFlags, nr int, keyBytes int64) error
	AppendItem(k key.Key, val []byte, flags ItemFlags) error
}
