package credstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	// Register SQLite SQL driver.
	_ "modernc.org/sqlite"

	"github.com/google/uuid"
)

// SQLiteStore persists credentials in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if necessary) a SQLite-backed credential
// vault at dsn, a file path or SQLite DSN. An empty dsn defaults to
// "hyni-credentials.db" in the working directory.
func OpenSQLiteStore(dsn string) (*SQLiteStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "hyni-credentials.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("credstore: open sqlite store: %w", err)
	}
	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("credstore: ping sqlite store: %w", err)
	}
	const ddl = `
CREATE TABLE IF NOT EXISTS credentials (
	id TEXT PRIMARY KEY,
	name TEXT UNIQUE NOT NULL,
	provider TEXT NOT NULL,
	api_key TEXT NOT NULL,
	extra_headers TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	rotated_at DATETIME NULL
);
CREATE INDEX IF NOT EXISTS idx_credentials_name ON credentials(name);`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("credstore: initialize sqlite schema: %w", err)
	}
	return nil
}

// Put creates or replaces the credential under name.
func (s *SQLiteStore) Put(name, provider, apiKey string, extraHeaders map[string]string) (Credential, error) {
	if name == "" {
		return Credential{}, fmt.Errorf("credstore: name is required")
	}
	if provider == "" {
		return Credential{}, fmt.Errorf("credstore: provider is required")
	}
	headersJSON, err := encodeHeaders(extraHeaders)
	if err != nil {
		return Credential{}, err
	}

	if existing, ok := s.Get(name); ok {
		now := time.Now().UTC()
		_, err := s.db.Exec(
			`UPDATE credentials SET provider = ?, api_key = ?, extra_headers = ?, rotated_at = ? WHERE name = ?`,
			provider, apiKey, headersJSON, now, name,
		)
		if err != nil {
			return Credential{}, fmt.Errorf("credstore: update credential: %w", err)
		}
		existing.Provider = provider
		existing.APIKey = apiKey
		existing.ExtraHeaders = extraHeaders
		existing.RotatedAt = &now
		return existing, nil
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	_, err = s.db.Exec(
		`INSERT INTO credentials(id, name, provider, api_key, extra_headers, created_at, rotated_at) VALUES(?, ?, ?, ?, ?, ?, NULL)`,
		id, name, provider, apiKey, headersJSON, now,
	)
	if err != nil {
		return Credential{}, fmt.Errorf("credstore: insert credential: %w", err)
	}
	return Credential{
		ID:           id,
		Name:         name,
		Provider:     provider,
		APIKey:       apiKey,
		ExtraHeaders: extraHeaders,
		CreatedAt:    now,
	}, nil
}

// Get retrieves the credential stored under name.
func (s *SQLiteStore) Get(name string) (Credential, bool) {
	row := s.db.QueryRow(
		`SELECT id, name, provider, api_key, extra_headers, created_at, rotated_at FROM credentials WHERE name = ?`,
		name,
	)
	cred, err := scanCredential(row)
	if err != nil {
		return Credential{}, false
	}
	return cred, true
}

// List returns every stored credential, with APIKey masked.
func (s *SQLiteStore) List() []Credential {
	rows, err := s.db.Query(`SELECT id, name, provider, api_key, extra_headers, created_at, rotated_at FROM credentials`)
	if err != nil {
		return []Credential{}
	}
	defer func() { _ = rows.Close() }()

	out := make([]Credential, 0)
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			continue
		}
		out = append(out, cred.Masked())
	}
	return out
}

// Delete removes the credential stored under name.
func (s *SQLiteStore) Delete(name string) error {
	res, err := s.db.Exec(`DELETE FROM credentials WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("credstore: delete credential: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("credstore: credential not found: %s", name)
	}
	return nil
}

func scanCredential(scanner interface{ Scan(dest ...any) error }) (Credential, error) {
	var (
		c             Credential
		extraHeaders  string
		rotated       sql.NullTime
	)
	err := scanner.Scan(&c.ID, &c.Name, &c.Provider, &c.APIKey, &extraHeaders, &c.CreatedAt, &rotated)
	if err != nil {
		return Credential{}, err
	}
	headers, err := decodeHeaders(extraHeaders)
	if err != nil {
		return Credential{}, err
	}
	c.ExtraHeaders = headers
	if rotated.Valid {
		t := rotated.Time
		c.RotatedAt = &t
	}
	return c, nil
}
