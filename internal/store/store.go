// Package store provides SQLite persistence for the party room service:
// players, per-room player state, rate-limit windows, and the append-only
// event log.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"
)

// TimeFormat is the fixed-width RFC3339 timestamp layout stored in every
// table. Fixed width means string comparison is chronological comparison,
// which the spawn activity cutoff relies on.
const TimeFormat = "2006-01-02T15:04:05.000000000Z"

// Store is the SQLite-backed persistence layer. All methods are safe for
// concurrent use; single-statement writes are the unit of atomicity.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	// The path rides inside a file: URI, so characters like ? and # need
	// escaping.
	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		url.PathEscape(path))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// A handful of connections is plenty: WAL lets readers proceed while
	// the single writer at a time holds the lock.
	db.SetMaxOpenConns(4)

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// pragma reads a single-value PRAGMA.
func (s *Store) pragma(name string) (string, error) {
	var v string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&v); err != nil {
		return "", fmt.Errorf("pragma %s: %w", name, err)
	}
	return v, nil
}
