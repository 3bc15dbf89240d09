package transport

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/clientcredentials"
)

// OAuth2Sink decorates another Sink, fetching and refreshing a
// client-credentials OAuth2 token and attaching it as a Bearer
// Authorization header on every call. Callers wrap their Sink with it
// explicitly for schemas whose authentication.type is "oauth2"; Context
// does not select or construct it.
type OAuth2Sink struct {
	next   Sink
	config clientcredentials.Config
}

// NewOAuth2Sink wraps next with client-credentials OAuth2 authentication.
func NewOAuth2Sink(next Sink, clientID, clientSecret, tokenURL string, scopes []string) *OAuth2Sink {
	return &OAuth2Sink{
		next: next,
		config: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			Scopes:       scopes,
		},
	}
}

func (s *OAuth2Sink) authorize(ctx context.Context, headers map[string]string) (map[string]string, error) {
	token, err := s.config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: fetching oauth2 token: %w", err)
	}
	out := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}
	out["Authorization"] = token.Type() + " " + token.AccessToken
	return out, nil
}

// Post implements Sink.
func (s *OAuth2Sink) Post(ctx context.Context, url string, headers map[string]string, body []byte, cancel CancelPredicate) (*Response, error) {
	authed, err := s.authorize(ctx, headers)
	if err != nil {
		return nil, err
	}
	return s.next.Post(ctx, url, authed, body, cancel)
}

// PostStream implements Sink.
func (s *OAuth2Sink) PostStream(ctx context.Context, url string, headers map[string]string, body []byte, onChunk ChunkFunc, onComplete func(*Response, error), cancel CancelPredicate) error {
	authed, err := s.authorize(ctx, headers)
	if err != nil {
		onComplete(nil, err)
		return err
	}
	return s.next.PostStream(ctx, url, authed, body, onChunk, onComplete, cancel)
}
