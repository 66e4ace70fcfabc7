package storage

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// CachedStorage wraps any backend with a local read-through cache. Writes
// go through to the backend first (source of truth) and update the cache
// best-effort; reads are served from the cache when present and fresh.
// Useful in front of remote storage over slow links or rate-limited APIs.
type CachedStorage struct {
	backend       Backend
	cache         *LocalStorage
	maxCacheBytes int64
	ttl           time.Duration
}

// CacheStats describes the local cache tier of a CachedStorage.
type CacheStats struct {
	SizeBytes int64 `json:"size_bytes"`
	FileCount int   `json:"file_count"`
	MaxBytes  int64 `json:"max_bytes"`
}

// NewCachedStorage wraps backend with a cache rooted at cacheDir.
// maxCacheBytes <= 0 means unlimited; ttl <= 0 means cached entries never
// expire.
func NewCachedStorage(backend Backend, cacheDir string, maxCacheBytes int64, ttl time.Duration) (*CachedStorage, error) {
	if backend == nil {
		return nil, &ValidationError{Reason: "a backing storage is required"}
	}
	cache, err := NewLocalStorage(cacheDir, true)
	if err != nil {
		return nil, errors.Wrap(err, "could not initialize cache directory")
	}
	return &CachedStorage{
		backend:       backend,
		cache:         cache,
		maxCacheBytes: maxCacheBytes,
		ttl:           ttl,
	}, nil
}

// cacheValid reports whether the cached copy exists and is not expired.
func (s *CachedStorage) cacheValid(identifier string) bool {
	if !s.cache.Exists(identifier) {
		return false
	}
	if s.ttl <= 0 {
		return true
	}
	path, err := s.cache.GetPath(identifier)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < s.ttl
}

// Exists consults the backend, which stays the source of truth.
func (s *CachedStorage) Exists(identifier string) bool {
	return s.backend.Exists(identifier)
}

func (s *CachedStorage) Read(identifier string) ([]byte, error) {
	if s.cacheValid(identifier) {
		if content, err := s.cache.Read(identifier); err == nil {
			return content, nil
		}
	}

	content, err := s.backend.Read(identifier)
	if err != nil {
		return nil, err
	}

	// Populate the cache best-effort; a failed cache write must not fail
	// the read.
	s.evictIfNeeded(int64(len(content)))
	if err := s.cache.Write(identifier, content); err != nil {
		log.Printf("CachedStorage: could not cache %s: %v", identifier, err)
	}

	return content, nil
}

func (s *CachedStorage) Write(identifier string, content []byte) error {
	if err := s.backend.Write(identifier, content); err != nil {
		return err
	}

	s.evictIfNeeded(int64(len(content)))
	if err := s.cache.Write(identifier, content); err != nil {
		log.Printf("CachedStorage: could not cache %s: %v", identifier, err)
	}
	return nil
}

func (s *CachedStorage) Delete(identifier string) (bool, error) {
	deleted, err := s.backend.Delete(identifier)

	if s.cache.Exists(identifier) {
		if _, cacheErr := s.cache.Delete(identifier); cacheErr != nil {
			log.Printf("CachedStorage: could not drop cached copy of %s: %v", identifier, cacheErr)
		}
	}

	return deleted, err
}

func (s *CachedStorage) List(pattern string) ([]string, error) {
	return s.backend.List(pattern)
}

func (s *CachedStorage) Size(identifier string) (int64, error) {
	return s.backend.Size(identifier)
}

func (s *CachedStorage) GetPath(identifier string) (string, error) {
	return s.backend.GetPath(identifier)
}

func (s *CachedStorage) Copy(sourceID, destID string) error {
	content, err := s.Read(sourceID)
	if err != nil {
		return err
	}
	return s.Write(destID, content)
}

func (s *CachedStorage) Move(sourceID, destID string) error {
	if err := s.Copy(sourceID, destID); err != nil {
		return err
	}
	_, err := s.Delete(sourceID)
	return err
}

// ClearCache drops every cached file. The backend is untouched.
func (s *CachedStorage) ClearCache() error {
	files, err := s.cache.List("")
	if err != nil {
		return err
	}
	for _, id := range files {
		if _, err := s.cache.Delete(id); err != nil {
			return err
		}
	}
	return nil
}

// GetCacheStats reports the size and file count of the cache tier.
func (s *CachedStorage) GetCacheStats() (CacheStats, error) {
	stats := CacheStats{MaxBytes: s.maxCacheBytes}
	err := filepath.WalkDir(s.cache.BaseDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		stats.SizeBytes += info.Size()
		stats.FileCount++
		return nil
	})
	return stats, err
}

// evictIfNeeded removes the oldest cached files (by modification time)
// until the incoming content fits under the size limit.
func (s *CachedStorage) evictIfNeeded(incoming int64) {
	if s.maxCacheBytes <= 0 {
		return
	}

	type cachedFile struct {
		path    string
		size    int64
		modTime time.Time
	}

	var current int64
	var files []cachedFile
	_ = filepath.WalkDir(s.cache.BaseDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		current += info.Size()
		files = append(files, cachedFile{path: path, size: info.Size(), modTime: info.ModTime()})
		return nil
	})

	if current+incoming <= s.maxCacheBytes {
		return
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	needed := current + incoming - s.maxCacheBytes
	var freed int64
	for _, f := range files {
		if freed >= needed {
			break
		}
		if err := os.Remove(f.path); err == nil {
			freed += f.size
		}
	}
	if freed > 0 {
		log.Printf("CachedStorage: evicted %d bytes from cache", freed)
	}
}
