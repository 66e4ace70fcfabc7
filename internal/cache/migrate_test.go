package cache

import (
	"os"
	"path/filepath"
	"testing"

	"papercache/internal/storage"
)

func TestMigrateToSQLitePreservesEntries(t *testing.T) {
	dir := t.TempDir()

	src := newTestJSONIndex(t, dir)
	if err := src.Put("k1", "query one", 10, map[string]any{"source": "benchmark"}); err != nil {
		t.Fatal(err)
	}
	if err := src.Put("k2", "query two", 20, nil); err != nil {
		t.Fatal(err)
	}
	before, err := src.Entries()
	if err != nil {
		t.Fatal(err)
	}

	migrated, err := MigrateToSQLite(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if migrated != 2 {
		t.Fatalf("migrated = %d, want 2", migrated)
	}

	dst := newTestSQLiteIndex(t, dir)
	after, err := dst.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != len(before) {
		t.Fatalf("entry count after migration = %d, want %d", len(after), len(before))
	}
	for i := range before {
		if after[i].Key != before[i].Key || after[i].Query != before[i].Query ||
			after[i].NumRows != before[i].NumRows || after[i].Timestamp != before[i].Timestamp {
			t.Fatalf("entry %d changed during migration:\n  before %+v\n  after  %+v", i, before[i], after[i])
		}
	}
	e, err := dst.Get("k1")
	if err != nil || e == nil {
		t.Fatalf("Get(k1) = (%v, %v)", e, err)
	}
	if e.Extra["source"] != "benchmark" {
		t.Fatalf("extra after migration = %v", e.Extra)
	}

	// The JSON index stays in place unless the operator removes it.
	if _, err := os.Stat(filepath.Join(dir, MetadataJSONFile)); err != nil {
		t.Fatalf("JSON index should survive migration: %v", err)
	}
}

func TestMigrateToSQLiteRefusesExistingDB(t *testing.T) {
	dir := t.TempDir()

	src := newTestJSONIndex(t, dir)
	if err := src.Put("k1", "q", 1, nil); err != nil {
		t.Fatal(err)
	}

	dst := newTestSQLiteIndex(t, dir)
	dst.Close()

	if _, err := MigrateToSQLite(dir, false); !storage.IsValidation(err) {
		t.Fatalf("expected ValidationError for existing SQLite index, got %v", err)
	}
}

func TestMigrateToSQLiteBackup(t *testing.T) {
	dir := t.TempDir()

	src := newTestJSONIndex(t, dir)
	if err := src.Put("k1", "q", 1, nil); err != nil {
		t.Fatal(err)
	}

	if _, err := MigrateToSQLite(dir, true); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, MetadataJSONFile+".backup")); err != nil {
		t.Fatalf("expected backup copy: %v", err)
	}
}

func TestMigrateEmptyIndex(t *testing.T) {
	dir := t.TempDir()

	// No JSON file at all: an empty cache migrates to an empty database.
	migrated, err := MigrateToSQLite(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if migrated != 0 {
		t.Fatalf("migrated = %d, want 0", migrated)
	}
}
