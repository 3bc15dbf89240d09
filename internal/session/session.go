// Package session gives Factory a Go-idiomatic stand-in for the
// thread-local-storage lifecycle described for other languages: instead of
// an OS thread ID, callers carry an explicit scope token on a
// context.Context, and a mutex-guarded map hands back the same cached
// value for the same token until it is explicitly released.
//
// Goroutines have no stable identity to key off implicitly — two calls on
// the same goroutine are not even guaranteed to run on the same OS thread —
// so the scope token is the caller's responsibility, the same way a worker
// pool assigns its own worker IDs.
package session

import (
	"context"
	"sync"
)

type contextKey string

const scopeKey contextKey = "hyni_scope"

// WithScope attaches a scope token to ctx. Two calls to
// Factory.GetScopedContext with contexts carrying the same token receive the same cached value.
func WithScope(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, scopeKey, token)
}

// ScopeFromContext retrieves the scope token attached by WithScope, if any.
func ScopeFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(scopeKey).(string)
	return v, ok
}

// Store caches values of type T by scope token, created on first access and
// retained until explicitly released — the equivalent of "created on first
// access in that thread" / "destroyed at thread exit" for a caller-defined
// scope rather than an OS thread.
type Store[T any] struct {
	mu    sync.Mutex
	items map[string]T
}

// NewStore creates an empty scoped store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{items: make(map[string]T)}
}

// GetOrCreate returns the cached value for token, calling create to
// populate the cache on first access for that token. create reports
// whether construction succeeded as its second return; on false, nothing
// is cached, so the next call for the same token retries create instead
// of replaying the failure.
func (s *Store[T]) GetOrCreate(token string, create func() (T, bool)) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.items[token]; ok {
		return v, true
	}
	v, ok := create()
	if !ok {
		return v, false
	}
	s.items[token] = v
	return v, true
}

// Release discards the cached value for token, if any, returning true if
// one was present.
func (s *Store[T]) Release(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[token]; !ok {
		return false
	}
	delete(s.items, token)
	return true
}

// CloseAll discards every cached value and calls onEach for each one, in
// unspecified order, so callers can run cleanup (e.g. closing a Sink) before
// the store is abandoned.
func (s *Store[T]) CloseAll(onEach func(T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, v := range s.items {
		if onEach != nil {
			onEach(v)
		}
		delete(s.items, token)
	}
}

// Len reports the number of currently cached values. Intended for tests and
// diagnostics.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
