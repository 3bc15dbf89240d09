package router

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hynigo/hyni/internal/logging"
	"github.com/hynigo/hyni/transport"
)

// Fallback tries each target in order, making up to a configurable number
// of attempts per target (exponential backoff between attempts) before
// moving to the next.
type Fallback struct {
	targets    []Target
	lookup     Lookup
	maxRetries int
}

// NewFallback creates a fallback strategy with one attempt per target (no
// retry).
func NewFallback(targets []Target, lookup Lookup) *Fallback {
	return &Fallback{targets: targets, lookup: lookup, maxRetries: 1}
}

// WithMaxRetries sets the number of attempts per target before moving on.
func (f *Fallback) WithMaxRetries(n int) *Fallback {
	f.maxRetries = n
	return f
}

// Send implements Strategy.
func (f *Fallback) Send(ctx context.Context, model, text, mediaType, mediaData string, cancel transport.CancelPredicate) (string, error) {
	if len(f.targets) == 0 {
		return "", noTargetsErr("fallback")
	}

	var lastErr error
	for _, target := range f.targets {
		chat, ok := f.lookup(target.Name)
		if !ok {
			logging.Logger.Warn("router: target not found, skipping", "target", target.Name)
			lastErr = fmt.Errorf("target not found: %s", target.Name)
			continue
		}
		if !supportsModel(chat, model) {
			continue
		}

		for attempt := 0; attempt < f.maxRetries; attempt++ {
			if attempt > 0 {
				backoff := time.Duration(math.Pow(2, float64(attempt-1))) * 100 * time.Millisecond
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(backoff):
				}
				logging.Logger.Info("router: retrying target", "target", target.Name, "attempt", attempt+1)
			}

			reply, err := sendWithModel(ctx, chat, model, text, mediaType, mediaData, cancel)
			if err == nil {
				return reply, nil
			}
			lastErr = fmt.Errorf("target %s attempt %d: %w", target.Name, attempt+1, err)
		}
	}

	return "", fmt.Errorf("router: all targets failed: %w", lastErr)
}
