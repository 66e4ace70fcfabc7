package registry

import (
	"path/filepath"
	"reflect"
	"testing"
)

func newTestPostponed(t *testing.T, dir string) *PostponedCache {
	t.Helper()
	pc, err := OpenPostponedCache(filepath.Join(dir, "postponed.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { pc.Close() })
	return pc
}

func TestPostponedPaperSkip(t *testing.T) {
	pc := newTestPostponed(t, t.TempDir())

	if err := pc.AddPaper("10.1234/stuck", "publisher returns 503"); err != nil {
		t.Fatal(err)
	}

	if !pc.ShouldSkipDOI("10.1234/stuck") {
		t.Fatal("postponed DOI should be skipped")
	}
	// Resolver URL forms and case normalize to the same DOI.
	if !pc.ShouldSkipDOI("https://doi.org/10.1234/STUCK") {
		t.Fatal("resolver URL form of a postponed DOI should be skipped")
	}
	if !pc.ShouldSkipDOI("doi:10.1234/stuck") {
		t.Fatal("doi: prefix form of a postponed DOI should be skipped")
	}
	if pc.ShouldSkipDOI("10.1234/other") {
		t.Fatal("sibling DOI should not be skipped")
	}
}

func TestPostponedPrefixSkip(t *testing.T) {
	pc := newTestPostponed(t, t.TempDir())

	if err := pc.AddDOIPrefix("10.9999", "registrant offline"); err != nil {
		t.Fatal(err)
	}

	if !pc.ShouldSkipDOI("10.9999/anything") {
		t.Fatal("any DOI under a postponed prefix should be skipped")
	}
	if pc.ShouldSkipDOI("10.1111/anything") {
		t.Fatal("DOI under a different prefix should not be skipped")
	}
	if pc.ShouldSkipDOI("not-a-doi") {
		t.Fatal("malformed DOI should not match any prefix")
	}
}

func TestPostponedDomainSkip(t *testing.T) {
	pc := newTestPostponed(t, t.TempDir())

	if err := pc.AddDomain("slow.example.com", "rate limited"); err != nil {
		t.Fatal(err)
	}

	if !pc.ShouldSkipURL("https://slow.example.com/papers/1.pdf") {
		t.Fatal("URL on a postponed domain should be skipped")
	}
	if !pc.ShouldSkipURL("http://SLOW.example.com:8080/x") {
		t.Fatal("host matching should ignore case and port")
	}
	if pc.ShouldSkipURL("https://fast.example.com/papers/1.pdf") {
		t.Fatal("other domains should not be skipped")
	}
	if pc.ShouldSkipURL("::not a url::") {
		t.Fatal("unparseable URL should not be skipped")
	}
}

func TestPostponedFilterBatch(t *testing.T) {
	pc := newTestPostponed(t, t.TempDir())

	if err := pc.AddPaper("10.1/skip", "broken"); err != nil {
		t.Fatal(err)
	}

	ready, postponed := pc.FilterBatch([]string{"10.1/ok", "10.1/skip", "10.2/ok"})
	if !reflect.DeepEqual(ready, []string{"10.1/ok", "10.2/ok"}) {
		t.Fatalf("ready = %v", ready)
	}
	if !reflect.DeepEqual(postponed, []string{"10.1/skip"}) {
		t.Fatalf("postponed = %v", postponed)
	}
}

func TestPostponedPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	pc := newTestPostponed(t, dir)
	if err := pc.AddDomain("down.example.com", "offline"); err != nil {
		t.Fatal(err)
	}
	if err := pc.AddPaper("10.1/x", "broken"); err != nil {
		t.Fatal(err)
	}
	if err := pc.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := newTestPostponed(t, dir)
	if !reopened.ShouldSkipURL("https://down.example.com/") {
		t.Fatal("postponed domain should survive reopen")
	}
	if !reopened.ShouldSkipDOI("10.1/x") {
		t.Fatal("postponed paper should survive reopen")
	}

	stats := reopened.Stats()
	if stats.Domains != 1 || stats.Papers != 1 || stats.DOIPrefixes != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestPostponedRepeatDetectionBumpsCount(t *testing.T) {
	dir := t.TempDir()
	pc := newTestPostponed(t, dir)

	if err := pc.AddDomain("flaky.example.com", "first failure"); err != nil {
		t.Fatal(err)
	}
	if err := pc.AddDomain("flaky.example.com", "second failure"); err != nil {
		t.Fatal(err)
	}

	var rec PostponedDomain
	if err := pc.db.First(&rec, "domain = ?", "flaky.example.com").Error; err != nil {
		t.Fatal(err)
	}
	if rec.DetectionCount != 2 {
		t.Fatalf("DetectionCount = %d, want 2", rec.DetectionCount)
	}
	if rec.Reason != "second failure" {
		t.Fatalf("Reason = %q, want latest reason", rec.Reason)
	}
	if rec.FirstDetected == "" || rec.LastDetected == "" {
		t.Fatalf("record = %+v", rec)
	}

	stats := pc.Stats()
	if stats.Domains != 1 {
		t.Fatalf("repeat detection must not duplicate the record, stats = %+v", stats)
	}
}

func TestPostponedClear(t *testing.T) {
	pc := newTestPostponed(t, t.TempDir())

	if err := pc.AddDomain("a.example.com", "x"); err != nil {
		t.Fatal(err)
	}
	if err := pc.AddDOIPrefix("10.5", "x"); err != nil {
		t.Fatal(err)
	}
	if err := pc.AddPaper("10.6/z", "x"); err != nil {
		t.Fatal(err)
	}

	if err := pc.Clear(); err != nil {
		t.Fatal(err)
	}
	stats := pc.Stats()
	if stats.Domains != 0 || stats.DOIPrefixes != 0 || stats.Papers != 0 {
		t.Fatalf("stats after clear = %+v", stats)
	}
	if pc.ShouldSkipDOI("10.6/z") {
		t.Fatal("cleared paper should no longer be skipped")
	}
}
