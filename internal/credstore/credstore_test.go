package credstore

import (
	"strings"
	"testing"
)

func TestStore_Put_CreatesCredential(t *testing.T) {
	s := NewStore()
	cred, err := s.Put("work-openai", "openai", "sk-abc123", nil)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if cred.ID == "" {
		t.Error("expected a non-empty ID")
	}
	if cred.Provider != "openai" {
		t.Errorf("got provider %q", cred.Provider)
	}
}

func TestStore_Put_RejectsMissingName(t *testing.T) {
	s := NewStore()
	if _, err := s.Put("", "openai", "sk-abc", nil); err == nil {
		t.Fatal("expected an error for an empty name")
	}
}

func TestStore_Put_ReplacesExistingByName(t *testing.T) {
	s := NewStore()
	first, _ := s.Put("work-openai", "openai", "sk-old", nil)
	second, err := s.Put("work-openai", "openai", "sk-new", nil)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if second.ID != first.ID {
		t.Error("expected replacing by name to keep the same ID")
	}
	if second.APIKey != "sk-new" {
		t.Errorf("got APIKey %q, want sk-new", second.APIKey)
	}
	if second.RotatedAt == nil {
		t.Error("expected RotatedAt to be set after a replace")
	}
}

func TestStore_Get_NonExisting(t *testing.T) {
	s := NewStore()
	if _, ok := s.Get("missing"); ok {
		t.Error("expected not found")
	}
}

func TestStore_List_MasksAPIKey(t *testing.T) {
	s := NewStore()
	_, _ = s.Put("a", "openai", "sk-1234567890", nil)

	creds := s.List()
	if len(creds) != 1 {
		t.Fatalf("got %d credentials, want 1", len(creds))
	}
	if !strings.HasSuffix(creds[0].APIKey, "...") {
		t.Errorf("expected masked APIKey, got %q", creds[0].APIKey)
	}
}

func TestStore_Delete(t *testing.T) {
	s := NewStore()
	_, _ = s.Put("a", "openai", "sk-1", nil)

	if err := s.Delete("a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := s.Get("a"); ok {
		t.Error("expected credential to be gone after Delete")
	}
}

func TestStore_Delete_NonExisting(t *testing.T) {
	s := NewStore()
	if err := s.Delete("missing"); err == nil {
		t.Fatal("expected an error deleting a missing credential")
	}
}

func TestStore_Put_PreservesExtraHeaders(t *testing.T) {
	s := NewStore()
	cred, err := s.Put("a", "anthropic", "sk-ant", map[string]string{"anthropic-version": "2023-06-01"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if cred.ExtraHeaders["anthropic-version"] != "2023-06-01" {
		t.Errorf("got extra headers %+v", cred.ExtraHeaders)
	}
}
