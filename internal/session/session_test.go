package session

import (
	"context"
	"testing"
)

func TestWithScope_RoundTrip(t *testing.T) {
	ctx := WithScope(context.Background(), "worker-1")
	got, ok := ScopeFromContext(ctx)
	if !ok || got != "worker-1" {
		t.Fatalf("got (%q, %v), want (worker-1, true)", got, ok)
	}

	_, ok = ScopeFromContext(context.Background())
	if ok {
		t.Error("expected no scope on a bare context")
	}
}

func TestStore_GetOrCreateCachesPerToken(t *testing.T) {
	s := NewStore[int]()
	calls := 0
	create := func() (int, bool) {
		calls++
		return calls, true
	}

	a, ok := s.GetOrCreate("x", create)
	if !ok {
		t.Fatal("expected ok for a successful create")
	}
	b, ok := s.GetOrCreate("x", create)
	if !ok {
		t.Fatal("expected ok for a cached value")
	}
	if a != b {
		t.Errorf("expected same cached value for repeated token, got %d and %d", a, b)
	}
	if calls != 1 {
		t.Errorf("expected create to run once, ran %d times", calls)
	}

	c, _ := s.GetOrCreate("y", create)
	if c == a {
		t.Error("expected a distinct value for a distinct token")
	}
	if s.Len() != 2 {
		t.Errorf("got %d cached entries, want 2", s.Len())
	}
}

func TestStore_GetOrCreate_DoesNotCacheOnFailure(t *testing.T) {
	s := NewStore[int]()
	calls := 0
	failTwice := func() (int, bool) {
		calls++
		if calls <= 2 {
			return 0, false
		}
		return calls, true
	}

	if _, ok := s.GetOrCreate("x", failTwice); ok {
		t.Fatal("expected the first create to fail")
	}
	if s.Len() != 0 {
		t.Fatalf("got %d cached entries after a failed create, want 0", s.Len())
	}

	if _, ok := s.GetOrCreate("x", failTwice); ok {
		t.Fatal("expected the second create to fail")
	}
	if s.Len() != 0 {
		t.Fatalf("got %d cached entries after a second failed create, want 0", s.Len())
	}

	v, ok := s.GetOrCreate("x", failTwice)
	if !ok {
		t.Fatal("expected the third create to succeed")
	}
	if v != 3 {
		t.Errorf("got %d, want 3", v)
	}
	if s.Len() != 1 {
		t.Errorf("got %d cached entries, want 1", s.Len())
	}
}

func TestStore_Release(t *testing.T) {
	s := NewStore[int]()
	s.GetOrCreate("x", func() (int, bool) { return 1, true })

	if !s.Release("x") {
		t.Fatal("expected Release to report true for a present token")
	}
	if s.Release("x") {
		t.Error("expected second Release of the same token to report false")
	}
	if s.Len() != 0 {
		t.Errorf("got %d entries after release, want 0", s.Len())
	}
}

func TestStore_CloseAll(t *testing.T) {
	s := NewStore[int]()
	s.GetOrCreate("a", func() (int, bool) { return 1, true })
	s.GetOrCreate("b", func() (int, bool) { return 2, true })

	var closed []int
	s.CloseAll(func(v int) { closed = append(closed, v) })

	if len(closed) != 2 {
		t.Errorf("got %d closed values, want 2", len(closed))
	}
	if s.Len() != 0 {
		t.Errorf("expected store empty after CloseAll, got %d entries", s.Len())
	}
}
