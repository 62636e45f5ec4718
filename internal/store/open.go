package store

import (
	"fmt"
	"log"
	"path/filepath"
)

// DatabaseFile is the SQLite database filename under the data directory.
const DatabaseFile = "pointlab.db"

// Open resolves the storage backend exactly once, at startup. SQLite is
// preferred; when it cannot be opened the flat-file JSON document store takes
// over, unless requireSQLite demands a hard failure instead. Callers never
// branch on which backend came back.
func Open(dataDir string, requireSQLite bool) (Store, error) {
	s, err := NewSQLiteStore(filepath.Join(dataDir, DatabaseFile))
	if err == nil {
		return s, nil
	}
	if requireSQLite {
		return nil, fmt.Errorf("sqlite backend unavailable: %w", err)
	}

	log.Printf("sqlite backend unavailable (%v), falling back to JSON document store", err)
	return NewJSONStore(dataDir)
}
