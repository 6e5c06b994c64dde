// Package persist is the serialized shared-memory heap and stub snapshot
// of §6: a modernc.org/sqlite database, one table per artifact, each row
// tagged with the run epoch it was written under so a caller can detect a
// stale cache before trusting it. modernc.org/sqlite is the same
// cgo-free driver the sibling funxy evaluator reaches for when it needs
// SQL at all (internal/evaluator/builtins_sql.go), which matters here too
// since this binary is meant to ship to many machines without a C
// toolchain.
package persist

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store is a handle onto one project's cache database.
type Store struct {
	db *sql.DB
}

// Open creates the cache directory and database file if they don't exist
// yet and returns a ready Store.
func Open(cacheDir string) (*Store, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	dbPath := filepath.Join(cacheDir, "pyscope.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS models (
	target_hash BLOB PRIMARY KEY,
	target_repr TEXT NOT NULL,
	epoch       TEXT NOT NULL,
	data        BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS stub_snapshot (
	path  TEXT PRIMARY KEY,
	epoch TEXT NOT NULL,
	data  BLOB NOT NULL
);
`
	_, err := s.db.Exec(schema)
	return err
}
