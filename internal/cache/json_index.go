package cache

import (
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// jsonIndex is the flat-file metadata backend: one JSON object mapping
// cache keys to entry objects, with extra fields merged at the top level
// of each entry. The whole index is held in memory and rewritten on every
// mutation, so writes cost O(n); past roughly 10^4 entries the SQLite
// backend is the better choice.
//
// A mutex serializes the load-mutate-rewrite cycle against concurrent
// callers in this process. Concurrent writers from other processes are out
// of contract for this backend.
type jsonIndex struct {
	path    string
	mu      sync.Mutex
	entries map[string]Entry
}

func newJSONIndex(path string) (*jsonIndex, error) {
	idx := &jsonIndex{path: path, entries: make(map[string]Entry)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not read metadata index")
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &CorruptionError{Path: path, Err: err}
	}

	for key, fields := range raw {
		idx.entries[key] = entryFromFields(key, fields)
	}
	return idx, nil
}

// entryFromFields splits a stored entry object into fixed fields and the
// extra fields merged at its top level.
func entryFromFields(key string, fields map[string]any) Entry {
	e := Entry{Key: key, Extra: make(map[string]any)}
	for name, value := range fields {
		switch name {
		case fieldCacheKey:
			// Redundant with the map key; kept in the file for
			// inspectability only.
		case fieldQuery:
			if s, ok := value.(string); ok {
				e.Query = s
			}
		case fieldTimestamp:
			if s, ok := value.(string); ok {
				e.Timestamp = s
			}
		case fieldNumRows:
			if n, ok := value.(float64); ok {
				e.NumRows = int(n)
			}
		default:
			e.Extra[name] = value
		}
	}
	return e
}

// fieldsFromEntry is the inverse of entryFromFields.
func fieldsFromEntry(e Entry) map[string]any {
	fields := map[string]any{
		fieldCacheKey:  e.Key,
		fieldQuery:     e.Query,
		fieldTimestamp: e.Timestamp,
		fieldNumRows:   e.NumRows,
	}
	for name, value := range e.Extra {
		switch name {
		case fieldCacheKey, fieldQuery, fieldTimestamp, fieldNumRows:
			// Extra fields cannot shadow fixed columns.
		default:
			fields[name] = value
		}
	}
	return fields
}

// flush rewrites the whole index file. Write-to-temp + rename keeps a
// partially written index from ever being observed on disk.
func (idx *jsonIndex) flush() error {
	raw := make(map[string]map[string]any, len(idx.entries))
	for key, e := range idx.entries {
		raw[key] = fieldsFromEntry(e)
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not serialize metadata index")
	}

	tmp := idx.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "could not write metadata index")
	}
	if err := os.Rename(tmp, idx.path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "could not replace metadata index")
	}
	return nil
}

func (idx *jsonIndex) Put(key, query string, numRows int, extra map[string]any) error {
	return idx.putEntry(Entry{
		Key:       key,
		Query:     query,
		Timestamp: time.Now().Format(time.RFC3339),
		NumRows:   numRows,
		Extra:     copyExtra(extra),
	})
}

func (idx *jsonIndex) putEntry(e Entry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	prev, hadPrev := idx.entries[e.Key]
	idx.entries[e.Key] = e

	if err := idx.flush(); err != nil {
		// Keep memory and disk in agreement on failure, otherwise a
		// later Has would report an entry the file does not have.
		if hadPrev {
			idx.entries[e.Key] = prev
		} else {
			delete(idx.entries, e.Key)
		}
		return err
	}
	return nil
}

func (idx *jsonIndex) Get(key string) (*Entry, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	e, ok := idx.entries[key]
	if !ok {
		return nil, nil
	}
	e.Extra = copyExtra(e.Extra)
	return &e, nil
}

func (idx *jsonIndex) Has(key string) (bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	_, ok := idx.entries[key]
	return ok, nil
}

func (idx *jsonIndex) Keys() ([]string, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	keys := make([]string, 0, len(idx.entries))
	for key := range idx.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (idx *jsonIndex) Entries() ([]Entry, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entries := make([]Entry, 0, len(idx.entries))
	for _, e := range idx.entries {
		e.Extra = copyExtra(e.Extra)
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (idx *jsonIndex) Delete(key string) (bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	prev, existed := idx.entries[key]
	if !existed {
		return false, nil
	}
	delete(idx.entries, key)

	if err := idx.flush(); err != nil {
		idx.entries[key] = prev
		return false, err
	}
	return true, nil
}

func (idx *jsonIndex) Count() (int64, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	return int64(len(idx.entries)), nil
}

func (idx *jsonIndex) Close() error {
	return nil
}
