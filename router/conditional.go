package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/hynigo/hyni/transport"
)

// ConditionRule maps a match rule to a target. Key is "model" (exact
// match) or "model_prefix".
type ConditionRule struct {
	Key    string
	Value  string
	Target Target
}

// Conditional routes based on the requested model, evaluating rules in
// order; the first match wins, falling back to Fallback when none match.
type Conditional struct {
	rules    []ConditionRule
	fallback Target
	lookup   Lookup
}

// NewConditional creates a rule-based routing strategy.
func NewConditional(rules []ConditionRule, fallback Target, lookup Lookup) *Conditional {
	return &Conditional{rules: rules, fallback: fallback, lookup: lookup}
}

// Send implements Strategy.
func (c *Conditional) Send(ctx context.Context, model, text, mediaType, mediaData string, cancel transport.CancelPredicate) (string, error) {
	target := c.matchTarget(model)
	chat, ok := c.lookup(target.Name)
	if !ok {
		return "", fmt.Errorf("router: target not found: %s", target.Name)
	}
	return sendWithModel(ctx, chat, model, text, mediaType, mediaData, cancel)
}

func (c *Conditional) matchTarget(model string) Target {
	for _, rule := range c.rules {
		if matches(rule, model) {
			return rule.Target
		}
	}
	return c.fallback
}

func matches(rule ConditionRule, model string) bool {
	switch rule.Key {
	case "model":
		return model == rule.Value
	case "model_prefix":
		return strings.HasPrefix(model, rule.Value)
	default:
		return false
	}
}
