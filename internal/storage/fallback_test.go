package storage

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"
)

func newTestTiers(t *testing.T, mode WriteMode) (*FallbackStorage, *LocalStorage, *LocalStorage) {
	t.Helper()
	primary := newTestLocal(t)
	secondary := newTestLocal(t)
	fs, err := NewFallbackStorage(primary, secondary, mode)
	if err != nil {
		t.Fatal(err)
	}
	return fs, primary, secondary
}

func TestFallbackRejectsInvalidMode(t *testing.T) {
	primary := newTestLocal(t)
	secondary := newTestLocal(t)

	if _, err := NewFallbackStorage(primary, secondary, WriteMode("everywhere")); !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, err := NewFallbackStorage(primary, nil, WriteToPrimary); !IsValidation(err) {
		t.Fatalf("expected ValidationError for missing tier, got %v", err)
	}
}

func TestFallbackReadPrefersPrimary(t *testing.T) {
	fs, primary, secondary := newTestTiers(t, WriteToPrimary)

	if err := primary.Write("shared.txt", []byte("from primary")); err != nil {
		t.Fatal(err)
	}
	if err := secondary.Write("shared.txt", []byte("from secondary")); err != nil {
		t.Fatal(err)
	}
	if err := secondary.Write("only-secondary.txt", []byte("fallback")); err != nil {
		t.Fatal(err)
	}

	got, err := fs.Read("shared.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "from primary" {
		t.Fatalf("Read = %q, want primary copy", got)
	}

	got, err = fs.Read("only-secondary.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "fallback" {
		t.Fatalf("Read = %q, want secondary copy", got)
	}

	if _, err := fs.Read("nowhere.txt"); !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestFallbackWriteModes(t *testing.T) {
	cases := []struct {
		mode          WriteMode
		wantPrimary   bool
		wantSecondary bool
	}{
		{WriteToPrimary, true, false},
		{WriteToSecondary, false, true},
		{WriteToBoth, true, true},
	}
	for _, tc := range cases {
		fs, primary, secondary := newTestTiers(t, tc.mode)
		if err := fs.Write("f.txt", []byte("x")); err != nil {
			t.Fatalf("mode %s: %v", tc.mode, err)
		}
		if primary.Exists("f.txt") != tc.wantPrimary {
			t.Fatalf("mode %s: primary presence = %v, want %v", tc.mode, !tc.wantPrimary, tc.wantPrimary)
		}
		if secondary.Exists("f.txt") != tc.wantSecondary {
			t.Fatalf("mode %s: secondary presence = %v, want %v", tc.mode, !tc.wantSecondary, tc.wantSecondary)
		}
	}
}

func TestFallbackDeleteOrSemantics(t *testing.T) {
	fs, primary, secondary := newTestTiers(t, WriteToBoth)

	if err := fs.Write("both.txt", []byte("x")); err != nil {
		t.Fatal(err)
	}
	removed, err := fs.Delete("both.txt")
	if err != nil || !removed {
		t.Fatalf("Delete = (%v, %v), want (true, nil)", removed, err)
	}
	if primary.Exists("both.txt") || secondary.Exists("both.txt") {
		t.Fatal("delete should remove the file from both tiers")
	}

	// Absence from both tiers is not an error.
	removed, err = fs.Delete("both.txt")
	if err != nil {
		t.Fatalf("delete of missing file: %v", err)
	}
	if removed {
		t.Fatal("delete of missing file should report false")
	}
}

func TestFallbackListUnion(t *testing.T) {
	fs, primary, secondary := newTestTiers(t, WriteToPrimary)

	for _, id := range []string{"a.txt", "shared.txt"} {
		if err := primary.Write(id, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	for _, id := range []string{"b.txt", "shared.txt"} {
		if err := secondary.Write(id, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}

	got, err := fs.List("**")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a.txt", "b.txt", "shared.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
}

func TestFallbackMigrateToSecondary(t *testing.T) {
	fs, primary, secondary := newTestTiers(t, WriteToPrimary)

	if err := fs.Write("doc.pdf", []byte("content")); err != nil {
		t.Fatal(err)
	}

	// Copy without deleting the source.
	if err := fs.MigrateToSecondary("doc.pdf", false); err != nil {
		t.Fatal(err)
	}
	if !primary.Exists("doc.pdf") || !secondary.Exists("doc.pdf") {
		t.Fatal("migration without delete should leave both copies")
	}

	// Now move it for real.
	if err := fs.MigrateToSecondary("doc.pdf", true); err != nil {
		t.Fatal(err)
	}
	if primary.Exists("doc.pdf") {
		t.Fatal("migration with delete should remove the primary copy")
	}
	got, err := secondary.Read("doc.pdf")
	if err != nil || string(got) != "content" {
		t.Fatalf("secondary copy = (%q, %v)", got, err)
	}

	// Source must be in primary.
	if err := fs.MigrateToSecondary("doc.pdf", true); !IsNotFound(err) {
		t.Fatalf("expected NotFoundError for source outside primary, got %v", err)
	}
}

func TestFallbackMigrateToPrimary(t *testing.T) {
	fs, primary, secondary := newTestTiers(t, WriteToPrimary)

	if err := secondary.Write("remote.pdf", []byte("content")); err != nil {
		t.Fatal(err)
	}

	if err := fs.MigrateToPrimary("remote.pdf", true); err != nil {
		t.Fatal(err)
	}
	if secondary.Exists("remote.pdf") {
		t.Fatal("migration with delete should remove the secondary copy")
	}
	got, err := primary.Read("remote.pdf")
	if err != nil || string(got) != "content" {
		t.Fatalf("primary copy = (%q, %v)", got, err)
	}
}

// failingBackend rejects every write. Reads delegate to the wrapped
// backend.
type failingBackend struct {
	Backend
}

func (f *failingBackend) Write(identifier string, content []byte) error {
	return errors.New("disk full")
}

func TestFallbackMigrateKeepsSourceOnFailedWrite(t *testing.T) {
	primary := newTestLocal(t)
	secondary := &failingBackend{Backend: newTestLocal(t)}
	fs, err := NewFallbackStorage(primary, secondary, WriteToPrimary)
	if err != nil {
		t.Fatal(err)
	}

	if err := primary.Write("precious.pdf", []byte("content")); err != nil {
		t.Fatal(err)
	}
	if err := fs.MigrateToSecondary("precious.pdf", true); err == nil {
		t.Fatal("expected migration to fail when the destination write fails")
	}
	if !primary.Exists("precious.pdf") {
		t.Fatal("failed migration must not delete the source copy")
	}
}

func TestFallbackWriteBothFailsWhenOneTierFails(t *testing.T) {
	primary := newTestLocal(t)
	secondary := &failingBackend{Backend: newTestLocal(t)}
	fs, err := NewFallbackStorage(primary, secondary, WriteToBoth)
	if err != nil {
		t.Fatal(err)
	}

	if err := fs.Write("f.txt", []byte("x")); err == nil {
		t.Fatal("expected write-to-both to fail when one tier rejects the write")
	}
}
