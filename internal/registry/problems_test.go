package registry

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/pkg/errors"
)

func newTestBlacklist(t *testing.T) *ProblemPapers {
	t.Helper()
	p, err := LoadProblemPapers(filepath.Join(t.TempDir(), "problem_papers.json"))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestProblemPapersAddRemove(t *testing.T) {
	p := newTestBlacklist(t)

	if p.IsBlacklisted("10.1234/bad") {
		t.Fatal("fresh blacklist should be empty")
	}

	if err := p.Add("10.1234/bad", "always times out"); err != nil {
		t.Fatal(err)
	}
	if !p.IsBlacklisted("10.1234/bad") {
		t.Fatal("identifier should be blacklisted after Add")
	}
	if p.Reason("10.1234/bad") != "always times out" {
		t.Fatalf("reason = %q", p.Reason("10.1234/bad"))
	}

	removed, err := p.Remove("10.1234/bad")
	if err != nil || !removed {
		t.Fatalf("Remove = (%v, %v), want (true, nil)", removed, err)
	}
	if p.IsBlacklisted("10.1234/bad") {
		t.Fatal("identifier should be gone after Remove")
	}
	removed, err = p.Remove("10.1234/bad")
	if err != nil || removed {
		t.Fatalf("second Remove = (%v, %v), want (false, nil)", removed, err)
	}
}

func TestProblemPapersFilterBatch(t *testing.T) {
	p := newTestBlacklist(t)

	for _, id := range []string{"bad1", "bad2"} {
		if err := p.Add(id, "broken"); err != nil {
			t.Fatal(err)
		}
	}

	safe, blacklisted := p.FilterBatch([]string{"good1", "bad1", "good2", "bad2"})
	if !reflect.DeepEqual(safe, []string{"good1", "good2"}) {
		t.Fatalf("safe = %v", safe)
	}
	if !reflect.DeepEqual(blacklisted, []string{"bad1", "bad2"}) {
		t.Fatalf("blacklisted = %v", blacklisted)
	}
}

func TestProblemPapersPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "problem_papers.json")

	p, err := LoadProblemPapers(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Add("10.1/x", "parse failure"); err != nil {
		t.Fatal(err)
	}
	if err := p.Add("10.2/y", ""); err != nil {
		t.Fatal(err)
	}

	reloaded, err := LoadProblemPapers(path)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Count() != 2 {
		t.Fatalf("Count after reload = %d, want 2", reloaded.Count())
	}
	if reloaded.Reason("10.1/x") != "parse failure" {
		t.Fatalf("reason after reload = %q", reloaded.Reason("10.1/x"))
	}
	if !reloaded.IsBlacklisted("10.2/y") {
		t.Fatal("identifier without a reason must still be blacklisted")
	}
}

func TestUpdateProblemPapersSavesOnSuccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "problem_papers.json")

	err := UpdateProblemPapers(path, false, func(p *ProblemPapers) error {
		return p.Add("10.1/x", "broken")
	})
	if err != nil {
		t.Fatal(err)
	}

	reloaded, err := LoadProblemPapers(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reloaded.IsBlacklisted("10.1/x") {
		t.Fatal("update should have been persisted")
	}
}

func TestUpdateProblemPapersSavesDespiteError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "problem_papers.json")

	// Additions made before the failure survive by default.
	err := UpdateProblemPapers(path, false, func(p *ProblemPapers) error {
		if err := p.Add("10.1/x", "broken"); err != nil {
			return err
		}
		return errors.New("batch aborted")
	})
	if err == nil {
		t.Fatal("expected the batch error to propagate")
	}

	reloaded, err := LoadProblemPapers(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reloaded.IsBlacklisted("10.1/x") {
		t.Fatal("additions before the failure should have been saved")
	}
}

func TestProblemPapersClear(t *testing.T) {
	p := newTestBlacklist(t)

	if err := p.Add("x", "r"); err != nil {
		t.Fatal(err)
	}
	if err := p.Clear(); err != nil {
		t.Fatal(err)
	}
	if p.Count() != 0 {
		t.Fatalf("Count after clear = %d", p.Count())
	}
}
