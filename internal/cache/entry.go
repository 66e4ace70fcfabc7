package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"unicode"
)

// Entry describes one cached payload in the metadata index.
//
// Key is derived from the query (see deriveKey) and uniquely identifies the
// entry within a cache root. Query keeps the original, human-readable query
// string. Extra carries arbitrary caller-supplied metadata; on update it
// fully replaces the previously stored extra fields, never merges with
// them.
type Entry struct {
	Key       string         `json:"cache_key"`
	Query     string         `json:"query"`
	Timestamp string         `json:"timestamp"`
	NumRows   int            `json:"num_rows"`
	Extra     map[string]any `json:"-"`
}

// fixed metadata fields; everything else in a stored entry object is an
// extra field.
const (
	fieldCacheKey  = "cache_key"
	fieldQuery     = "query"
	fieldTimestamp = "timestamp"
	fieldNumRows   = "num_rows"
)

// deriveKey generates a filesystem-safe key from a query string: a
// sanitized prefix keeps cache files human-readable, the hash guards
// against collisions between queries that differ only in characters
// invalid for filenames.
func deriveKey(query string) string {
	sum := md5.Sum([]byte(query))
	hash := hex.EncodeToString(sum[:])[:16]

	prefix := make([]rune, 0, 30)
	for _, r := range query {
		if len(prefix) == 30 {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			prefix = append(prefix, r)
		} else {
			prefix = append(prefix, '_')
		}
	}

	return fmt.Sprintf("%s_%s", string(prefix), hash)
}

// copyExtra returns a defensive copy so callers cannot mutate stored
// metadata through a retained map.
func copyExtra(extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(extra))
	for k, v := range extra {
		out[k] = v
	}
	return out
}
