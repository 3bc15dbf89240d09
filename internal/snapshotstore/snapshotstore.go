// Package snapshotstore persists Context.ExportState snapshots (JSON blobs
// holding a provider name, system message, conversation history, and
// parameter overlay) under a caller-chosen name, so a conversation can be
// paused and resumed across process restarts without the library itself
// growing a server-side conversation store.
package snapshotstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	// Register SQLite SQL driver.
	_ "modernc.org/sqlite"
)

// Store persists named snapshots in a SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite-backed snapshot store at dsn,
// a file path or SQLite DSN. An empty dsn defaults to "hyni-snapshots.db".
func Open(dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "hyni-snapshots.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("snapshotstore: open sqlite store: %w", err)
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("snapshotstore: ping sqlite store: %w", err)
	}
	const ddl = `
CREATE TABLE IF NOT EXISTS snapshots (
	name TEXT PRIMARY KEY,
	provider TEXT NOT NULL,
	state TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("snapshotstore: initialize sqlite schema: %w", err)
	}
	return nil
}

// Save stores state (the raw bytes of a Context.ExportState call) under
// name, replacing any prior snapshot of the same name.
func (s *Store) Save(name, provider string, state []byte) error {
	if name == "" {
		return fmt.Errorf("snapshotstore: name is required")
	}
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO snapshots(name, provider, state, updated_at) VALUES(?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET provider = excluded.provider, state = excluded.state, updated_at = excluded.updated_at`,
		name, provider, string(state), now,
	)
	if err != nil {
		return fmt.Errorf("snapshotstore: save snapshot %q: %w", name, err)
	}
	return nil
}

// Load retrieves the snapshot stored under name, suitable for passing
// directly to Context.ImportState.
func (s *Store) Load(name string) (state []byte, provider string, ok bool) {
	row := s.db.QueryRow(`SELECT provider, state FROM snapshots WHERE name = ?`, name)
	var raw string
	if err := row.Scan(&provider, &raw); err != nil {
		return nil, "", false
	}
	return []byte(raw), provider, true
}

// List returns the names of every stored snapshot.
func (s *Store) List() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM snapshots ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("snapshotstore: list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("snapshotstore: scan snapshot name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete removes the snapshot stored under name.
func (s *Store) Delete(name string) error {
	res, err := s.db.Exec(`DELETE FROM snapshots WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("snapshotstore: delete snapshot %q: %w", name, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("snapshotstore: snapshot not found: %s", name)
	}
	return nil
}
