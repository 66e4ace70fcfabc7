package cache

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"papercache/internal/storage"
)

// Index backend names accepted in Options and configuration.
const (
	IndexBackendJSON   = "json"
	IndexBackendSQLite = "sqlite"
)

// Files making up a cache root, next to the payload files.
const (
	MetadataJSONFile = "_metadata.json"
	MetadataDBFile   = "_metadata.db"
)

// Options configures a LocalCache.
type Options struct {
	// Compression gzip-compresses payload files, trading CPU for disk.
	Compression bool
	// IndexBackend selects the metadata backend: IndexBackendJSON
	// (default) or IndexBackendSQLite.
	IndexBackend string
}

// Stats summarizes a cache root.
type Stats struct {
	TotalEntries   int64  `json:"total_entries"`
	TotalSizeBytes int64  `json:"total_size_bytes"`
	CacheDir       string `json:"cache_dir"`
}

// LocalCache is the single entry point for cached query results: it
// combines the metadata index (what is cached) with the object store (the
// payload bytes) under one contract. All operations are synchronous and
// blocking; callers wanting parallelism run cache calls on their own
// worker goroutines.
//
// After Store returns, Has and Get observe the new entry from any
// goroutine in this process. Cross-process consistency is best-effort and
// depends on the index backend; concurrent writer processes on one
// flat-file cache root are out of contract.
type LocalCache struct {
	dir   string
	index MetadataIndex
	store *objectStore
	mu    sync.Mutex
}

// New opens (creating if needed) the cache root at dir. A corrupt
// metadata index is a fatal error for the root, surfaced here rather than
// silently reset.
func New(dir string, opts Options) (*LocalCache, error) {
	expanded, err := expandHome(dir)
	if err != nil {
		return nil, errors.Wrap(err, "could not expand cache directory")
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, errors.Wrap(err, "could not resolve cache directory")
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrap(err, "could not create cache directory")
	}

	var index MetadataIndex
	switch opts.IndexBackend {
	case "", IndexBackendJSON:
		index, err = newJSONIndex(filepath.Join(abs, MetadataJSONFile))
	case IndexBackendSQLite:
		index, err = newSQLiteIndex(filepath.Join(abs, MetadataDBFile))
	default:
		return nil, &storage.ValidationError{
			Reason: fmt.Sprintf("index backend must be %q or %q, got: %q", IndexBackendJSON, IndexBackendSQLite, opts.IndexBackend),
		}
	}
	if err != nil {
		return nil, err
	}

	return &LocalCache{
		dir:   abs,
		index: index,
		store: newObjectStore(abs, opts.Compression),
	}, nil
}

// Dir returns the absolute cache root directory.
func (c *LocalCache) Dir() string {
	return c.dir
}

// Backend returns the name of the metadata index backend in use.
func (c *LocalCache) Backend() string {
	if _, ok := c.index.(*sqliteIndex); ok {
		return IndexBackendSQLite
	}
	return IndexBackendJSON
}

// Store caches payload under the given query. The payload file is written
// before the metadata entry is registered: a failed metadata put surfaces
// as a Store failure and at worst leaves an orphaned payload file, never a
// metadata entry pointing at nothing (which would cause false cache hits).
func (c *LocalCache) Store(query string, payload []byte, numRows int, extra map[string]any) error {
	key := deriveKey(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.write(key, payload); err != nil {
		return errors.Wrapf(err, "could not write payload for query %q", truncate(query, 50))
	}
	if err := c.index.Put(key, query, numRows, extra); err != nil {
		return errors.Wrapf(err, "could not register metadata for query %q", truncate(query, 50))
	}

	log.Printf("Cached %d rows (%d bytes) for query: %s", numRows, len(payload), truncate(query, 50))
	return nil
}

// Get returns the cached payload for query, or (nil, nil) when it is not
// cached. A metadata entry whose backing payload file is missing counts as
// a miss; the next Store repairs the pair.
func (c *LocalCache) Get(query string) ([]byte, error) {
	key := deriveKey(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, err := c.index.Get(key)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	payload, err := c.store.read(key)
	if err != nil {
		if storage.IsNotFound(err) {
			log.Printf("Cache entry for query %q has no payload file, treating as miss", truncate(query, 50))
			return nil, nil
		}
		return nil, err
	}

	log.Printf("Cache hit for query: %s", truncate(query, 50))
	return payload, nil
}

// Has reports whether query is cached with both a metadata entry and a
// backing payload file.
func (c *LocalCache) Has(query string) (bool, error) {
	key := deriveKey(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	has, err := c.index.Has(key)
	if err != nil || !has {
		return false, err
	}
	return c.store.exists(key), nil
}

// Lookup returns the metadata entry for query without reading the
// payload, or (nil, nil) when absent.
func (c *LocalCache) Lookup(query string) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.index.Get(deriveKey(query))
}

// ListQueries returns the original query strings of all cached entries,
// sorted.
func (c *LocalCache) ListQueries() ([]string, error) {
	entries, err := c.Entries()
	if err != nil {
		return nil, err
	}
	queries := make([]string, 0, len(entries))
	for _, e := range entries {
		queries = append(queries, e.Query)
	}
	return queries, nil
}

// Entries returns the metadata of all cached entries.
func (c *LocalCache) Entries() ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.index.Entries()
}

// Delete removes the payload and metadata for query, reporting whether
// anything existed.
func (c *LocalCache) Delete(query string) (bool, error) {
	key := deriveKey(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	removedPayload, err := c.store.delete(key)
	if err != nil {
		return false, err
	}
	removedMeta, err := c.index.Delete(key)
	if err != nil {
		return removedPayload, err
	}
	return removedPayload || removedMeta, nil
}

// Stats reports entry count and total payload size for this cache root.
func (c *LocalCache) Stats() (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	count, err := c.index.Count()
	if err != nil {
		return Stats{}, err
	}

	keys, err := c.index.Keys()
	if err != nil {
		return Stats{}, err
	}
	var totalSize int64
	for _, key := range keys {
		totalSize += c.store.size(key)
	}

	return Stats{
		TotalEntries:   count,
		TotalSizeBytes: totalSize,
		CacheDir:       c.dir,
	}, nil
}

// Clear removes every cached entry and its payload.
func (c *LocalCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.index.Keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if _, err := c.store.delete(key); err != nil {
			return err
		}
		if _, err := c.index.Delete(key); err != nil {
			return err
		}
	}
	log.Printf("Cleared %d cache entries from %s", len(keys), c.dir)
	return nil
}

// Close releases the metadata index.
func (c *LocalCache) Close() error {
	return c.index.Close()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}
