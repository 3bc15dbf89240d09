package router

import (
	"context"
	"fmt"

	"github.com/hynigo/hyni/transport"
)

// Single always routes to one named Chat.
type Single struct {
	target Target
	lookup Lookup
}

// NewSingle creates a single-target strategy.
func NewSingle(target Target, lookup Lookup) *Single {
	return &Single{target: target, lookup: lookup}
}

// Send implements Strategy.
func (s *Single) Send(ctx context.Context, model, text, mediaType, mediaData string, cancel transport.CancelPredicate) (string, error) {
	chat, ok := s.lookup(s.target.Name)
	if !ok {
		return "", fmt.Errorf("router: target %q not found", s.target.Name)
	}
	if !supportsModel(chat, model) {
		return "", fmt.Errorf("router: target %q does not support model %q", s.target.Name, model)
	}
	return sendWithModel(ctx, chat, model, text, mediaType, mediaData, cancel)
}
