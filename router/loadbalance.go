package router

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/hynigo/hyni/transport"
)

// LoadBalance distributes sends across targets by weighted random
// selection, restricted to targets whose Chat supports the requested
// model.
type LoadBalance struct {
	targets []Target
	lookup  Lookup
	mu      sync.Mutex
}

// NewLoadBalance creates a weighted load-balancing strategy.
func NewLoadBalance(targets []Target, lookup Lookup) *LoadBalance {
	return &LoadBalance{targets: targets, lookup: lookup}
}

// Send implements Strategy.
func (lb *LoadBalance) Send(ctx context.Context, model, text, mediaType, mediaData string, cancel transport.CancelPredicate) (string, error) {
	if len(lb.targets) == 0 {
		return "", noTargetsErr("loadbalance")
	}

	var compatible []Target
	for _, t := range lb.targets {
		chat, ok := lb.lookup(t.Name)
		if ok && supportsModel(chat, model) {
			compatible = append(compatible, t)
		}
	}
	if len(compatible) == 0 {
		return "", fmt.Errorf("router: no target supports model %q", model)
	}

	target := lb.selectFromTargets(compatible)
	chat, _ := lb.lookup(target.Name)
	return sendWithModel(ctx, chat, model, text, mediaType, mediaData, cancel)
}

func (lb *LoadBalance) selectFromTargets(targets []Target) Target {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	total := 0.0
	for _, t := range targets {
		total += weightOrOne(t.Weight)
	}

	r := rand.Float64() * total //nolint:gosec
	cumulative := 0.0
	for _, t := range targets {
		cumulative += weightOrOne(t.Weight)
		if r < cumulative {
			return t
		}
	}
	return targets[len(targets)-1]
}

func weightOrOne(w float64) float64 {
	if w <= 0 {
		return 1
	}
	return w
}
