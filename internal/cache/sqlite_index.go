package cache

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// metadataRow is the database shape of an Entry: fixed, indexed columns
// plus one text blob carrying all extra fields as JSON.
type metadataRow struct {
	CacheKey      string `gorm:"column:cache_key;primaryKey"`
	Query         string `gorm:"column:query"`
	Timestamp     string `gorm:"column:timestamp;index:idx_timestamp"`
	NumRows       int    `gorm:"column:num_rows"`
	ExtraMetadata string `gorm:"column:extra_metadata"`
}

func (metadataRow) TableName() string {
	return "cache_metadata"
}

// sqliteIndex is the indexed metadata backend. Same external contract as
// the flat-file backend, but lookups go through the primary key instead of
// loading the whole index, so it stays fast for caches with thousands of
// entries. GORM serializes writes through its shared connection pool,
// which keeps per-key operations linearizable within the process.
type sqliteIndex struct {
	db   *gorm.DB
	path string
}

func newSQLiteIndex(path string) (*sqliteIndex, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, &CorruptionError{Path: path, Err: err}
	}
	if err := db.AutoMigrate(&metadataRow{}); err != nil {
		return nil, &CorruptionError{Path: path, Err: err}
	}
	return &sqliteIndex{db: db, path: path}, nil
}

func rowFromEntry(e Entry) (metadataRow, error) {
	extraJSON, err := json.Marshal(copyExtra(e.Extra))
	if err != nil {
		return metadataRow{}, errors.Wrap(err, "could not serialize extra metadata")
	}
	return metadataRow{
		CacheKey:      e.Key,
		Query:         e.Query,
		Timestamp:     e.Timestamp,
		NumRows:       e.NumRows,
		ExtraMetadata: string(extraJSON),
	}, nil
}

func (idx *sqliteIndex) entryFromRow(row metadataRow) (Entry, error) {
	e := Entry{
		Key:       row.CacheKey,
		Query:     row.Query,
		Timestamp: row.Timestamp,
		NumRows:   row.NumRows,
		Extra:     make(map[string]any),
	}
	if row.ExtraMetadata != "" {
		if err := json.Unmarshal([]byte(row.ExtraMetadata), &e.Extra); err != nil {
			return e, &CorruptionError{Path: idx.path, Err: err}
		}
	}
	return e, nil
}

func (idx *sqliteIndex) Put(key, query string, numRows int, extra map[string]any) error {
	return idx.putEntry(Entry{
		Key:       key,
		Query:     query,
		Timestamp: time.Now().Format(time.RFC3339),
		NumRows:   numRows,
		Extra:     copyExtra(extra),
	})
}

func (idx *sqliteIndex) putEntry(e Entry) error {
	row, err := rowFromEntry(e)
	if err != nil {
		return err
	}
	err = idx.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	return errors.Wrap(err, "could not upsert metadata entry")
}

func (idx *sqliteIndex) Get(key string) (*Entry, error) {
	var row metadataRow
	err := idx.db.First(&row, "cache_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not query metadata entry")
	}

	e, err := idx.entryFromRow(row)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (idx *sqliteIndex) Has(key string) (bool, error) {
	var n int64
	err := idx.db.Model(&metadataRow{}).Where("cache_key = ?", key).Count(&n).Error
	if err != nil {
		return false, errors.Wrap(err, "could not query metadata entry")
	}
	return n > 0, nil
}

// Keys scans the single cache_key column instead of materializing whole
// rows.
func (idx *sqliteIndex) Keys() ([]string, error) {
	var keys []string
	err := idx.db.Model(&metadataRow{}).Order("cache_key").Pluck("cache_key", &keys).Error
	if err != nil {
		return nil, errors.Wrap(err, "could not list metadata keys")
	}
	return keys, nil
}

func (idx *sqliteIndex) Entries() ([]Entry, error) {
	var rows []metadataRow
	if err := idx.db.Order("cache_key").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "could not list metadata entries")
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		e, err := idx.entryFromRow(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (idx *sqliteIndex) Delete(key string) (bool, error) {
	res := idx.db.Delete(&metadataRow{}, "cache_key = ?", key)
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "could not delete metadata entry")
	}
	return res.RowsAffected > 0, nil
}

func (idx *sqliteIndex) Count() (int64, error) {
	var n int64
	err := idx.db.Model(&metadataRow{}).Count(&n).Error
	if err != nil {
		return 0, errors.Wrap(err, "could not count metadata entries")
	}
	return n, nil
}

func (idx *sqliteIndex) Close() error {
	sqlDB, err := idx.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
