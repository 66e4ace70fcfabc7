package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func newTestJSONIndex(t *testing.T, dir string) *jsonIndex {
	t.Helper()
	idx, err := newJSONIndex(filepath.Join(dir, MetadataJSONFile))
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestJSONIndexPutGet(t *testing.T) {
	idx := newTestJSONIndex(t, t.TempDir())

	extra := map[string]any{"source": "benchmark", "attempt": 1}
	if err := idx.Put("k1", "SELECT 1", 50, extra); err != nil {
		t.Fatal(err)
	}

	e, err := idx.Get("k1")
	if err != nil {
		t.Fatal(err)
	}
	if e == nil {
		t.Fatal("expected entry, got nil")
	}
	if e.Query != "SELECT 1" || e.NumRows != 50 {
		t.Fatalf("entry = %+v", e)
	}
	if e.Timestamp == "" {
		t.Fatal("Put should stamp a timestamp")
	}
	if e.Extra["source"] != "benchmark" {
		t.Fatalf("extra = %v", e.Extra)
	}

	missing, err := idx.Get("nope")
	if err != nil || missing != nil {
		t.Fatalf("Get(missing) = (%v, %v), want (nil, nil)", missing, err)
	}
}

func TestJSONIndexExtrasFullyReplaced(t *testing.T) {
	idx := newTestJSONIndex(t, t.TempDir())

	if err := idx.Put("k1", "q", 1, map[string]any{"a": 1, "b": 2}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Put("k1", "q", 1, map[string]any{"c": 3}); err != nil {
		t.Fatal(err)
	}

	e, err := idx.Get("k1")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.Extra["a"]; ok {
		t.Fatal("old extra field survived an update; extras must be replaced, not merged")
	}
	if e.Extra["c"] == nil {
		t.Fatalf("extra = %v", e.Extra)
	}
}

func TestJSONIndexPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	idx := newTestJSONIndex(t, dir)
	if err := idx.Put("k1", "q1", 10, map[string]any{"note": "hi"}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Put("k2", "q2", 20, nil); err != nil {
		t.Fatal(err)
	}

	reopened := newTestJSONIndex(t, dir)
	keys, err := reopened.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(keys, []string{"k1", "k2"}) {
		t.Fatalf("keys after reopen = %v", keys)
	}
	e, err := reopened.Get("k1")
	if err != nil || e == nil {
		t.Fatalf("Get after reopen = (%v, %v)", e, err)
	}
	if e.Extra["note"] != "hi" {
		t.Fatalf("extra after reopen = %v", e.Extra)
	}
}

func TestJSONIndexExtrasStoredAtTopLevel(t *testing.T) {
	dir := t.TempDir()

	idx := newTestJSONIndex(t, dir)
	if err := idx.Put("k1", "q1", 10, map[string]any{"source": "benchmark"}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, MetadataJSONFile))
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["k1"]["source"] != "benchmark" {
		t.Fatalf("extra fields must sit at the top level of the entry object, got %v", raw["k1"])
	}
	if raw["k1"]["query"] != "q1" {
		t.Fatalf("stored entry = %v", raw["k1"])
	}
}

func TestJSONIndexCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, MetadataJSONFile)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := newJSONIndex(path)
	if err == nil {
		t.Fatal("expected error for corrupt index")
	}
	if _, ok := err.(*CorruptionError); !ok {
		t.Fatalf("expected CorruptionError, got %T: %v", err, err)
	}

	// The corrupt file must not have been reset.
	data, readErr := os.ReadFile(path)
	if readErr != nil || string(data) != "{not json" {
		t.Fatal("corrupt index file must be left untouched")
	}
}

func TestJSONIndexDeleteAndCount(t *testing.T) {
	idx := newTestJSONIndex(t, t.TempDir())

	if err := idx.Put("k1", "q1", 1, nil); err != nil {
		t.Fatal(err)
	}
	n, err := idx.Count()
	if err != nil || n != 1 {
		t.Fatalf("Count = (%d, %v), want (1, nil)", n, err)
	}

	removed, err := idx.Delete("k1")
	if err != nil || !removed {
		t.Fatalf("Delete = (%v, %v), want (true, nil)", removed, err)
	}
	removed, err = idx.Delete("k1")
	if err != nil || removed {
		t.Fatalf("second Delete = (%v, %v), want (false, nil)", removed, err)
	}
	n, _ = idx.Count()
	if n != 0 {
		t.Fatalf("Count after delete = %d", n)
	}
}
