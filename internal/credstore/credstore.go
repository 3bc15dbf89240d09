// Package credstore persists named provider credentials (an API key plus
// optional extra headers) so a caller can keep several provider accounts
// configured — e.g. "work-openai" and "personal-openai" — and load one by
// name instead of wiring environment variables through every call site.
//
// It is deliberately SQLite-only: this is an embeddable client-side vault,
// not a multi-tenant service, so it should not force a Postgres server
// dependency on every importer. An in-memory Store is also provided for
// tests and for callers who don't want a file on disk at all.
package credstore

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Credential is one named provider credential.
type Credential struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Provider     string            `json:"provider"`
	APIKey       string            `json:"api_key"`
	ExtraHeaders map[string]string `json:"extra_headers,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	RotatedAt    *time.Time        `json:"rotated_at,omitempty"`
}

// Masked returns a copy of c with APIKey truncated for display/logging.
func (c Credential) Masked() Credential {
	m := c
	if len(m.APIKey) > 8 {
		m.APIKey = m.APIKey[:8] + "..."
	}
	return m
}

// Store is an in-memory credential vault, keyed by name.
type Store struct {
	mu    sync.RWMutex
	byID  map[string]*Credential
	byName map[string]string // name -> ID
}

// NewStore creates an empty in-memory Store.
func NewStore() *Store {
	return &Store{
		byID:   make(map[string]*Credential),
		byName: make(map[string]string),
	}
}

// Put creates or replaces the credential under name.
func (s *Store) Put(name, provider, apiKey string, extraHeaders map[string]string) (Credential, error) {
	if name == "" {
		return Credential{}, fmt.Errorf("credstore: name is required")
	}
	if provider == "" {
		return Credential{}, fmt.Errorf("credstore: provider is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.byName[name]; ok {
		now := time.Now().UTC()
		existing := s.byID[existingID]
		existing.Provider = provider
		existing.APIKey = apiKey
		existing.ExtraHeaders = extraHeaders
		existing.RotatedAt = &now
		return *existing, nil
	}

	id := uuid.NewString()
	cred := &Credential{
		ID:           id,
		Name:         name,
		Provider:     provider,
		APIKey:       apiKey,
		ExtraHeaders: extraHeaders,
		CreatedAt:    time.Now().UTC(),
	}
	s.byID[id] = cred
	s.byName[name] = id
	return *cred, nil
}

// Get retrieves the credential stored under name.
func (s *Store) Get(name string) (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[name]
	if !ok {
		return Credential{}, false
	}
	return *s.byID[id], true
}

// List returns every stored credential, with APIKey masked.
func (s *Store) List() []Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Credential, 0, len(s.byID))
	for _, c := range s.byID {
		out = append(out, c.Masked())
	}
	return out
}

// Delete removes the credential stored under name.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("credstore: credential not found: %s", name)
	}
	delete(s.byID, id)
	delete(s.byName, name)
	return nil
}

func encodeHeaders(h map[string]string) (string, error) {
	if len(h) == 0 {
		return "", nil
	}
	b, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("credstore: encode extra headers: %w", err)
	}
	return string(b), nil
}

func decodeHeaders(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}
	var h map[string]string
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return nil, fmt.Errorf("credstore: decode extra headers: %w", err)
	}
	return h, nil
}
