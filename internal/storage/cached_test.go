package storage

import (
	"testing"
	"time"
)

func newTestCached(t *testing.T) (*CachedStorage, *LocalStorage) {
	t.Helper()
	backend := newTestLocal(t)
	cs, err := NewCachedStorage(backend, t.TempDir(), 1<<20, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return cs, backend
}

func TestCachedWriteThrough(t *testing.T) {
	cs, backend := newTestCached(t)

	if err := cs.Write("doc.pdf", []byte("content")); err != nil {
		t.Fatal(err)
	}
	got, err := backend.Read("doc.pdf")
	if err != nil || string(got) != "content" {
		t.Fatalf("backend copy = (%q, %v), want write-through", got, err)
	}
}

func TestCachedReadThroughServesFromCache(t *testing.T) {
	cs, backend := newTestCached(t)

	if err := backend.Write("doc.pdf", []byte("content")); err != nil {
		t.Fatal(err)
	}

	// First read populates the cache.
	if _, err := cs.Read("doc.pdf"); err != nil {
		t.Fatal(err)
	}

	// Remove from the backend; the cached copy still serves.
	if _, err := backend.Delete("doc.pdf"); err != nil {
		t.Fatal(err)
	}
	got, err := cs.Read("doc.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "content" {
		t.Fatalf("cached read = %q, want %q", got, "content")
	}
}

func TestCachedDeleteDropsCacheCopy(t *testing.T) {
	cs, _ := newTestCached(t)

	if err := cs.Write("doc.pdf", []byte("content")); err != nil {
		t.Fatal(err)
	}
	removed, err := cs.Delete("doc.pdf")
	if err != nil || !removed {
		t.Fatalf("Delete = (%v, %v), want (true, nil)", removed, err)
	}
	if _, err := cs.Read("doc.pdf"); !IsNotFound(err) {
		t.Fatalf("expected NotFoundError after delete, got %v", err)
	}
}

func TestCachedClearCache(t *testing.T) {
	cs, backend := newTestCached(t)

	if err := cs.Write("doc.pdf", []byte("content")); err != nil {
		t.Fatal(err)
	}
	if err := cs.ClearCache(); err != nil {
		t.Fatal(err)
	}

	stats, err := cs.GetCacheStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.FileCount != 0 || stats.SizeBytes != 0 {
		t.Fatalf("cache stats after clear = %+v, want empty", stats)
	}

	// The backend copy is untouched; the next read repopulates.
	got, err := cs.Read("doc.pdf")
	if err != nil || string(got) != "content" {
		t.Fatalf("read after clear = (%q, %v)", got, err)
	}
	if !backend.Exists("doc.pdf") {
		t.Fatal("clear must only touch the cache tier")
	}
}
