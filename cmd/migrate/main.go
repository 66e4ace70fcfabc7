package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"papercache/internal/cache"
)

// migrate converts a cache root's flat-file metadata index to the SQLite
// backend. Payload files are untouched.
func main() {
	backup := flag.Bool("backup", true, "keep a .backup copy of the JSON index")
	dryRun := flag.Bool("dry-run", false, "list what would be migrated without writing anything")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <cache-dir>\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	cacheDir := flag.Arg(0)

	if *dryRun {
		entries, err := cache.ReadJSONMetadata(cacheDir)
		if err != nil {
			log.Fatalf("Could not read metadata index: %v", err)
		}
		fmt.Printf("Would migrate %d entries from %s:\n", len(entries), cacheDir)
		for i, e := range entries {
			if i >= 10 {
				fmt.Printf("  ... and %d more\n", len(entries)-i)
				break
			}
			query := e.Query
			if len(query) > 60 {
				query = query[:60] + "..."
			}
			fmt.Printf("  %s  (%d rows)  %s\n", e.Key, e.NumRows, query)
		}
		return
	}

	migrated, err := cache.MigrateToSQLite(cacheDir, *backup)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	fmt.Printf("Migrated %d entries to %s\n", migrated, filepath.Join(cacheDir, cache.MetadataDBFile))

	jsonPath := filepath.Join(cacheDir, cache.MetadataJSONFile)
	fmt.Printf("Remove old %s? [y/N] ", cache.MetadataJSONFile)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	if strings.EqualFold(strings.TrimSpace(answer), "y") {
		if err := os.Remove(jsonPath); err != nil {
			log.Fatalf("Could not remove %s: %v", jsonPath, err)
		}
		fmt.Println("Removed", jsonPath)
	} else {
		fmt.Printf("Kept %s; the cache will keep using it while CACHE_BACKEND=json\n", jsonPath)
	}
}
