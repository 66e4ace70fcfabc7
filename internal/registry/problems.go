package registry

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ProblemPapers is a persistent blacklist of identifiers known to fail
// processing, each with a human-readable reason. It backs the "skip what
// keeps breaking" path: batch producers filter their inputs through it
// before doing any expensive work.
//
// The file format is a single JSON object with a "blacklist" array and a
// "reasons" map keyed by identifier.
type ProblemPapers struct {
	path    string
	mu      sync.Mutex
	reasons map[string]string
}

type problemPapersFile struct {
	Blacklist []string          `json:"blacklist"`
	Reasons   map[string]string `json:"reasons"`
}

// LoadProblemPapers opens the blacklist at path, starting empty when the
// file does not exist yet.
func LoadProblemPapers(path string) (*ProblemPapers, error) {
	p := &ProblemPapers{path: path, reasons: make(map[string]string)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return p, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not read blacklist file")
	}

	var raw problemPapersFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "could not parse blacklist file %s", path)
	}
	for id, reason := range raw.Reasons {
		p.reasons[id] = reason
	}
	// Identifiers listed without a recorded reason still count.
	for _, id := range raw.Blacklist {
		if _, ok := p.reasons[id]; !ok {
			p.reasons[id] = ""
		}
	}
	return p, nil
}

// IsBlacklisted reports whether identifier is on the blacklist.
func (p *ProblemPapers) IsBlacklisted(identifier string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.reasons[identifier]
	return ok
}

// Reason returns the recorded reason for identifier, or "" when it is not
// blacklisted.
func (p *ProblemPapers) Reason(identifier string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.reasons[identifier]
}

// Add blacklists identifier with the given reason and persists the change.
// Re-adding an identifier replaces its reason.
func (p *ProblemPapers) Add(identifier, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, existed := p.reasons[identifier]
	p.reasons[identifier] = reason
	if err := p.save(); err != nil {
		if existed {
			p.reasons[identifier] = prev
		} else {
			delete(p.reasons, identifier)
		}
		return err
	}
	log.Printf("Blacklisted %s: %s", identifier, reason)
	return nil
}

// Remove takes identifier off the blacklist, reporting whether it was on
// it.
func (p *ProblemPapers) Remove(identifier string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, existed := p.reasons[identifier]
	if !existed {
		return false, nil
	}
	delete(p.reasons, identifier)
	if err := p.save(); err != nil {
		p.reasons[identifier] = prev
		return false, err
	}
	return true, nil
}

// FilterBatch splits identifiers into those safe to process and those on
// the blacklist, preserving input order within each group.
func (p *ProblemPapers) FilterBatch(identifiers []string) (safe, blacklisted []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range identifiers {
		if _, ok := p.reasons[id]; ok {
			blacklisted = append(blacklisted, id)
		} else {
			safe = append(safe, id)
		}
	}
	return safe, blacklisted
}

// Identifiers returns all blacklisted identifiers, sorted.
func (p *ProblemPapers) Identifiers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.reasons))
	for id := range p.reasons {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of blacklisted identifiers.
func (p *ProblemPapers) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.reasons)
}

// Clear empties the blacklist and persists the change.
func (p *ProblemPapers) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.reasons
	p.reasons = make(map[string]string)
	if err := p.save(); err != nil {
		p.reasons = prev
		return err
	}
	log.Printf("Cleared blacklist %s (%d entries removed)", p.path, len(prev))
	return nil
}

// Save persists the current blacklist.
func (p *ProblemPapers) Save() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.save()
}

// save writes the blacklist file atomically. Caller holds the mutex.
func (p *ProblemPapers) save() error {
	raw := problemPapersFile{
		Blacklist: make([]string, 0, len(p.reasons)),
		Reasons:   make(map[string]string, len(p.reasons)),
	}
	for id, reason := range p.reasons {
		raw.Blacklist = append(raw.Blacklist, id)
		if reason != "" {
			raw.Reasons[id] = reason
		}
	}
	sort.Strings(raw.Blacklist)

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not serialize blacklist")
	}

	if dir := filepath.Dir(p.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "could not create blacklist directory")
		}
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "could not write blacklist file")
	}
	if err := os.Rename(tmp, p.path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "could not replace blacklist file")
	}
	return nil
}

// UpdateProblemPapers loads the blacklist at path, runs fn against it, and
// saves afterwards even when fn returns an error, so additions made before
// a mid-batch failure are not lost. Set skipSaveOnError to drop changes
// from a failed fn instead.
func UpdateProblemPapers(path string, skipSaveOnError bool, fn func(*ProblemPapers) error) error {
	p, err := LoadProblemPapers(path)
	if err != nil {
		return err
	}

	fnErr := fn(p)
	if fnErr != nil && skipSaveOnError {
		return fnErr
	}
	if err := p.Save(); err != nil {
		if fnErr != nil {
			log.Printf("Could not save blacklist after failed update: %v", err)
			return fnErr
		}
		return err
	}
	return fnErr
}
