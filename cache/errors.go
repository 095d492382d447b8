package cache

// Error kinds from spec §7. Modeled as string-constant sentinel errors in
// the style of store/types/errors.go's errorType, so callers can compare
// with errors.Is without a type assertion.
type errorType string

func (e errorType) Error() string { return string(e) }

const (
	// ErrNotFound: the key is covered by cache metadata and no live item
	// exists, or (for Delete/Dirty/Update) the key is absent entirely.
	ErrNotFound = errorType("scoutcache: not found")
	// ErrExists: Create collided with a live item.
	ErrExists = errorType("scoutcache: key exists")
	// ErrOutOfMemory: allocator failure; cache state unchanged.
	ErrOutOfMemory = errorType("scoutcache: out of memory")
	// ErrCorrupt: a size/length contract was violated by underlying data.
	ErrCorrupt = errorType("scoutcache: corrupt")
	// ErrInvalid: API misuse, e.g. start > end, or a buffer too small.
	ErrInvalid = errorType("scoutcache: invalid argument")
)
