package hyni

// ContentPart is one leaf payload inside a Message: either Text or Image.
// Exactly one of the accessor pairs is meaningful, selected by Kind.
type ContentPart struct {
	Kind      ContentKind
	Text      string
	MediaType string // e.g. "image/png"; set only when Kind == ContentImage
	MediaData string // base64-encoded bytes; set only when Kind == ContentImage
}

// ContentKind discriminates a ContentPart's payload.
type ContentKind int

const (
	ContentText ContentKind = iota
	ContentImage
)

// TextPart builds a text ContentPart.
func TextPart(text string) ContentPart {
	return ContentPart{Kind: ContentText, Text: text}
}

// ImagePart builds an image ContentPart from a media type and base64 data.
func ImagePart(mediaType, base64Data string) ContentPart {
	return ContentPart{Kind: ContentImage, MediaType: mediaType, MediaData: base64Data}
}

// Message is one conversation turn: a role drawn from the bound schema's
// message_roles, and an ordered list of content parts.
type Message struct {
	Role    string
	Content []ContentPart
}

// Text concatenates every text ContentPart in the message, in order. It
// ignores image parts, and is the convenience accessor tests and examples
// reach for when a message is known to be text-only.
func (m Message) Text() string {
	if len(m.Content) == 1 && m.Content[0].Kind == ContentText {
		return m.Content[0].Text
	}
	var out string
	for _, p := range m.Content {
		if p.Kind == ContentText {
			out += p.Text
		}
	}
	return out
}

// HasImage reports whether any content part of the message is an image.
func (m Message) HasImage() bool {
	for _, p := range m.Content {
		if p.Kind == ContentImage {
			return true
		}
	}
	return false
}
