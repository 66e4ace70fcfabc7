package cache

import "fmt"

// MetadataIndex is the durable key -> Entry registry behind LocalCache.
//
// Two interchangeable backends exist: a flat JSON file that is loaded fully
// into memory and rewritten wholesale on every mutation (the historical
// default, human-inspectable, fine for small caches), and an indexed SQLite
// database for cache roots that grow past a few thousand entries. Callers
// must not rely on any ordering of Keys/Entries beyond what they sort
// themselves.
type MetadataIndex interface {
	// Put inserts or replaces the entry for key. Extra fields fully
	// replace any previously stored extras.
	Put(key, query string, numRows int, extra map[string]any) error

	// Get returns the entry for key, or (nil, nil) when absent.
	Get(key string) (*Entry, error)

	// Has reports whether key is registered.
	Has(key string) (bool, error)

	// Keys returns all registered keys.
	Keys() ([]string, error)

	// Entries returns all registered entries.
	Entries() ([]Entry, error)

	// Delete removes the entry and reports whether it existed.
	Delete(key string) (bool, error)

	// Count returns the number of registered entries.
	Count() (int64, error)

	Close() error

	// putEntry inserts a fully formed entry, preserving its timestamp.
	// Used by the migration path.
	putEntry(e Entry) error
}

// CorruptionError reports an unreadable metadata index. It is fatal for
// the cache root and surfaced immediately: silently resetting the index
// would orphan payload files that still have no other pointer to them.
type CorruptionError struct {
	Path string
	Err  error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("corrupt metadata index %s: %v", e.Path, e.Err)
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}
