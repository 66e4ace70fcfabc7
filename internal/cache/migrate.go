package cache

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"papercache/internal/storage"
)

// ReadJSONMetadata loads the flat-file metadata index of a cache root
// without opening the root as a cache. Used by the migration tool for
// dry runs.
func ReadJSONMetadata(cacheDir string) ([]Entry, error) {
	idx, err := newJSONIndex(filepath.Join(cacheDir, MetadataJSONFile))
	if err != nil {
		return nil, err
	}
	return idx.Entries()
}

// MigrateToSQLite converts the flat-file metadata index of cacheDir into
// the SQLite backend, preserving every entry including its original
// timestamp. Payload files are untouched; only the index representation
// changes.
//
// The migration refuses to run when a SQLite index already exists, and it
// verifies the row count before declaring success: on any failure the
// partial database is removed and the JSON index is left as it was, so
// the root stays usable on its original backend. Returns the number of
// entries migrated.
func MigrateToSQLite(cacheDir string, backup bool) (int, error) {
	jsonPath := filepath.Join(cacheDir, MetadataJSONFile)
	dbPath := filepath.Join(cacheDir, MetadataDBFile)

	if _, err := os.Stat(dbPath); err == nil {
		return 0, &storage.ValidationError{
			Reason: "SQLite index already exists at " + dbPath + ", remove it before migrating",
		}
	}

	src, err := newJSONIndex(jsonPath)
	if err != nil {
		return 0, err
	}
	entries, err := src.Entries()
	if err != nil {
		return 0, err
	}

	if backup {
		if err := copyFile(jsonPath, jsonPath+".backup"); err != nil {
			return 0, errors.Wrap(err, "could not back up metadata index")
		}
		log.Printf("Backed up %s to %s.backup", jsonPath, jsonPath)
	}

	dst, err := newSQLiteIndex(dbPath)
	if err != nil {
		return 0, err
	}

	migrated := 0
	for _, e := range entries {
		if err := dst.putEntry(e); err != nil {
			dst.Close()
			os.Remove(dbPath)
			return 0, errors.Wrapf(err, "could not migrate entry %s", e.Key)
		}
		migrated++
	}

	count, err := dst.Count()
	if err == nil && count != int64(len(entries)) {
		err = errors.Errorf("migrated index has %d entries, expected %d", count, len(entries))
	}
	if err != nil {
		dst.Close()
		os.Remove(dbPath)
		return 0, err
	}

	if err := dst.Close(); err != nil {
		return 0, err
	}

	log.Printf("Migrated %d metadata entries from %s to %s", migrated, jsonPath, dbPath)
	return migrated, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
