// Package router implements routing strategies over a set of named
// hyni.Chat instances: always-one, ordered-fallback-with-retry,
// weighted-random load balancing, and rule-based conditional dispatch.
// None of this is required to use hyni directly — it exists for callers
// juggling more than one configured provider behind one call site.
package router

import (
	"context"
	"fmt"

	"github.com/hynigo/hyni"
	"github.com/hynigo/hyni/transport"
)

// Target names one configured Chat and its relative weight under
// LoadBalance (ignored by the other strategies).
type Target struct {
	Name   string
	Weight float64
}

// Lookup resolves a Target's Name to a live Chat.
type Lookup func(name string) (*hyni.Chat, bool)

// Strategy routes one send to whichever underlying Chat it selects.
type Strategy interface {
	Send(ctx context.Context, model, text, mediaType, mediaData string, cancel transport.CancelPredicate) (string, error)
}

// supportsModel reports whether chat's bound schema accepts model, treating
// an empty Models.Available list as "accepts anything" (many schemas don't
// enumerate every valid model).
func supportsModel(chat *hyni.Chat, model string) bool {
	available := chat.Context().Schema().Models.Available
	if len(available) == 0 || model == "" {
		return true
	}
	for _, m := range available {
		if m == model {
			return true
		}
	}
	return false
}

func sendWithModel(ctx context.Context, chat *hyni.Chat, model, text, mediaType, mediaData string, cancel transport.CancelPredicate) (string, error) {
	if model != "" {
		if _, err := chat.Context().SetModel(model); err != nil {
			return "", err
		}
	}
	return chat.Send(ctx, text, mediaType, mediaData, cancel)
}

func noTargetsErr(strategy string) error {
	return fmt.Errorf("router: no targets configured for %s", strategy)
}
