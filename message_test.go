package hyni

import "testing"

func TestMessage_Text_SingleTextPart(t *testing.T) {
	m := Message{Role: "user", Content: []ContentPart{TextPart("hello")}}
	if got := m.Text(); got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
}

func TestMessage_Text_ConcatenatesMultipleParts(t *testing.T) {
	m := Message{Role: "user", Content: []ContentPart{TextPart("a"), TextPart("b")}}
	if got := m.Text(); got != "ab" {
		t.Errorf("got %q, want %q", got, "ab")
	}
}

func TestMessage_Text_IgnoresImageParts(t *testing.T) {
	m := Message{Role: "user", Content: []ContentPart{TextPart("caption"), ImagePart("image/png", "AAAA")}}
	if got := m.Text(); got != "caption" {
		t.Errorf("got %q, want %q", got, "caption")
	}
}

func TestMessage_HasImage(t *testing.T) {
	withImage := Message{Content: []ContentPart{TextPart("x"), ImagePart("image/png", "AAAA")}}
	withoutImage := Message{Content: []ContentPart{TextPart("x")}}

	if !withImage.HasImage() {
		t.Error("expected HasImage true")
	}
	if withoutImage.HasImage() {
		t.Error("expected HasImage false")
	}
}
