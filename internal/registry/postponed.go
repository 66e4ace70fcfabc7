package registry

import (
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// PostponedDomain records a hostname whose fetches are postponed.
type PostponedDomain struct {
	Domain         string `gorm:"column:domain;primaryKey"`
	Reason         string `gorm:"column:reason"`
	FirstDetected  string `gorm:"column:first_detected"`
	LastDetected   string `gorm:"column:last_detected"`
	DetectionCount int    `gorm:"column:detection_count;default:1"`
}

func (PostponedDomain) TableName() string { return "postponed_domains" }

// PostponedDOIPrefix records a DOI registrant prefix whose fetches are
// postponed.
type PostponedDOIPrefix struct {
	Prefix         string `gorm:"column:prefix;primaryKey"`
	Reason         string `gorm:"column:reason"`
	FirstDetected  string `gorm:"column:first_detected"`
	LastDetected   string `gorm:"column:last_detected"`
	DetectionCount int    `gorm:"column:detection_count;default:1"`
}

func (PostponedDOIPrefix) TableName() string { return "postponed_doi_prefixes" }

// PostponedPaper records a single postponed DOI.
type PostponedPaper struct {
	DOI            string `gorm:"column:doi;primaryKey"`
	Reason         string `gorm:"column:reason"`
	FirstDetected  string `gorm:"column:first_detected"`
	LastDetected   string `gorm:"column:last_detected"`
	DetectionCount int    `gorm:"column:detection_count;default:1"`
}

func (PostponedPaper) TableName() string { return "postponed_papers" }

// PostponedStats summarizes the registry.
type PostponedStats struct {
	Domains     int `json:"domains"`
	DOIPrefixes int `json:"doi_prefixes"`
	Papers      int `json:"papers"`
}

// PostponedCache tracks sources that are temporarily not worth retrying:
// whole domains, DOI registrant prefixes, and individual papers. Unlike
// the blacklist, postponement is expected to be lifted eventually, so each
// record carries first/last detection timestamps and a detection count.
//
// Membership checks run against in-memory sets loaded at open time; the
// SQLite database is the durable record behind them.
type PostponedCache struct {
	db *gorm.DB
	mu sync.Mutex

	domains  map[string]struct{}
	prefixes map[string]struct{}
	papers   map[string]struct{}
}

// OpenPostponedCache opens (creating if needed) the registry database at
// path.
func OpenPostponedCache(path string) (*PostponedCache, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not open postponed registry %s", path)
	}
	if err := db.AutoMigrate(&PostponedDomain{}, &PostponedDOIPrefix{}, &PostponedPaper{}); err != nil {
		return nil, errors.Wrap(err, "could not migrate postponed registry schema")
	}

	pc := &PostponedCache{
		db:       db,
		domains:  make(map[string]struct{}),
		prefixes: make(map[string]struct{}),
		papers:   make(map[string]struct{}),
	}
	if err := pc.load(); err != nil {
		return nil, err
	}
	return pc, nil
}

func (pc *PostponedCache) load() error {
	var domains []string
	if err := pc.db.Model(&PostponedDomain{}).Pluck("domain", &domains).Error; err != nil {
		return errors.Wrap(err, "could not load postponed domains")
	}
	var prefixes []string
	if err := pc.db.Model(&PostponedDOIPrefix{}).Pluck("prefix", &prefixes).Error; err != nil {
		return errors.Wrap(err, "could not load postponed DOI prefixes")
	}
	var papers []string
	if err := pc.db.Model(&PostponedPaper{}).Pluck("doi", &papers).Error; err != nil {
		return errors.Wrap(err, "could not load postponed papers")
	}

	for _, d := range domains {
		pc.domains[d] = struct{}{}
	}
	for _, p := range prefixes {
		pc.prefixes[p] = struct{}{}
	}
	for _, p := range papers {
		pc.papers[p] = struct{}{}
	}
	return nil
}

// normalizeDOI strips resolver URL prefixes and lowercases the DOI.
func normalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		if strings.HasPrefix(strings.ToLower(doi), prefix) {
			doi = doi[len(prefix):]
			break
		}
	}
	return strings.ToLower(doi)
}

// doiPrefix returns the registrant prefix of a DOI ("10.1234" from
// "10.1234/abc"), or "" when the DOI does not look like one.
func doiPrefix(doi string) string {
	doi = normalizeDOI(doi)
	slash := strings.Index(doi, "/")
	if slash <= 0 {
		return ""
	}
	prefix := doi[:slash]
	if !strings.HasPrefix(prefix, "10.") {
		return ""
	}
	return prefix
}

// AddDomain postpones every fetch from domain. Repeated detections bump
// the count and last-detected timestamp.
func (pc *PostponedCache) AddDomain(domain, reason string) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	domain = strings.ToLower(strings.TrimSpace(domain))
	now := time.Now().Format(time.RFC3339)
	rec := PostponedDomain{Domain: domain, Reason: reason, FirstDetected: now, LastDetected: now, DetectionCount: 1}
	err := pc.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "domain"}},
		DoUpdates: clause.Assignments(map[string]any{
			"reason":          reason,
			"last_detected":   now,
			"detection_count": gorm.Expr("detection_count + 1"),
		}),
	}).Create(&rec).Error
	if err != nil {
		return errors.Wrap(err, "could not record postponed domain")
	}
	pc.domains[domain] = struct{}{}
	log.Printf("Postponed domain %s: %s", domain, reason)
	return nil
}

// AddDOIPrefix postpones every DOI under the given registrant prefix.
func (pc *PostponedCache) AddDOIPrefix(prefix, reason string) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	prefix = strings.ToLower(strings.TrimSpace(prefix))
	now := time.Now().Format(time.RFC3339)
	rec := PostponedDOIPrefix{Prefix: prefix, Reason: reason, FirstDetected: now, LastDetected: now, DetectionCount: 1}
	err := pc.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "prefix"}},
		DoUpdates: clause.Assignments(map[string]any{
			"reason":          reason,
			"last_detected":   now,
			"detection_count": gorm.Expr("detection_count + 1"),
		}),
	}).Create(&rec).Error
	if err != nil {
		return errors.Wrap(err, "could not record postponed DOI prefix")
	}
	pc.prefixes[prefix] = struct{}{}
	log.Printf("Postponed DOI prefix %s: %s", prefix, reason)
	return nil
}

// AddPaper postpones a single DOI.
func (pc *PostponedCache) AddPaper(doi, reason string) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	doi = normalizeDOI(doi)
	now := time.Now().Format(time.RFC3339)
	rec := PostponedPaper{DOI: doi, Reason: reason, FirstDetected: now, LastDetected: now, DetectionCount: 1}
	err := pc.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "doi"}},
		DoUpdates: clause.Assignments(map[string]any{
			"reason":          reason,
			"last_detected":   now,
			"detection_count": gorm.Expr("detection_count + 1"),
		}),
	}).Create(&rec).Error
	if err != nil {
		return errors.Wrap(err, "could not record postponed paper")
	}
	pc.papers[doi] = struct{}{}
	return nil
}

// ShouldSkipDOI reports whether the DOI itself or its registrant prefix is
// postponed.
func (pc *PostponedCache) ShouldSkipDOI(doi string) bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	normalized := normalizeDOI(doi)
	if _, ok := pc.papers[normalized]; ok {
		return true
	}
	if prefix := doiPrefix(normalized); prefix != "" {
		if _, ok := pc.prefixes[prefix]; ok {
			return true
		}
	}
	return false
}

// ShouldSkipURL reports whether the URL's host is a postponed domain.
func (pc *PostponedCache) ShouldSkipURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())

	pc.mu.Lock()
	defer pc.mu.Unlock()

	_, ok := pc.domains[host]
	return ok
}

// FilterBatch splits DOIs into those worth attempting and those currently
// postponed, preserving input order within each group.
func (pc *PostponedCache) FilterBatch(dois []string) (ready, postponed []string) {
	for _, doi := range dois {
		if pc.ShouldSkipDOI(doi) {
			postponed = append(postponed, doi)
		} else {
			ready = append(ready, doi)
		}
	}
	return ready, postponed
}

// Stats counts the registered postponements by kind.
func (pc *PostponedCache) Stats() PostponedStats {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	return PostponedStats{
		Domains:     len(pc.domains),
		DOIPrefixes: len(pc.prefixes),
		Papers:      len(pc.papers),
	}
}

// Clear removes every postponement.
func (pc *PostponedCache) Clear() error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if err := pc.db.Where("1 = 1").Delete(&PostponedDomain{}).Error; err != nil {
		return errors.Wrap(err, "could not clear postponed domains")
	}
	if err := pc.db.Where("1 = 1").Delete(&PostponedDOIPrefix{}).Error; err != nil {
		return errors.Wrap(err, "could not clear postponed DOI prefixes")
	}
	if err := pc.db.Where("1 = 1").Delete(&PostponedPaper{}).Error; err != nil {
		return errors.Wrap(err, "could not clear postponed papers")
	}

	pc.domains = make(map[string]struct{})
	pc.prefixes = make(map[string]struct{})
	pc.papers = make(map[string]struct{})
	return nil
}

// Close releases the registry database.
func (pc *PostponedCache) Close() error {
	sqlDB, err := pc.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
