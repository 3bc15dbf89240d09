// Package pricing multiplies the token counts a provider already reported
// in a response by a per-model price table. It never counts tokens
// itself — that stays entirely the provider's job, surfaced through a
// schema's usage_path.
package pricing

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
)

//go:embed catalog_default.json
var bundledCatalog []byte

// Usage carries the token counts extracted from one response's usage_path.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Price is one model's per-million-token rates in USD. A nil rate means
// the catalog has no opinion on that side and it is costed as zero.
type Price struct {
	InputPerMTokens  *float64 `json:"input_per_m_tokens"`
	OutputPerMTokens *float64 `json:"output_per_m_tokens"`
}

// Catalog maps "provider/model" to its Price.
type Catalog struct {
	mu     sync.RWMutex
	prices map[string]Price
}

// NewCatalog loads the catalog bundled with the module.
func NewCatalog() (*Catalog, error) {
	c := &Catalog{}
	if err := c.loadJSON(bundledCatalog); err != nil {
		return nil, fmt.Errorf("pricing: parsing bundled catalog: %w", err)
	}
	return c, nil
}

// LoadOverride replaces the catalog's contents with data, a JSON object
// shaped like catalog_default.json. Useful for enterprise custom pricing
// or air-gapped deployments that cannot rely on the bundled rates staying
// current.
func (c *Catalog) LoadOverride(data []byte) error {
	return c.loadJSON(data)
}

func (c *Catalog) loadJSON(data []byte) error {
	var prices map[string]Price
	if err := json.Unmarshal(data, &prices); err != nil {
		return err
	}
	c.mu.Lock()
	c.prices = prices
	c.mu.Unlock()
	return nil
}

// Get returns the Price for "provider/model", if known.
func (c *Catalog) Get(modelKey string) (Price, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.prices[modelKey]
	return p, ok
}

// Cost computes the USD cost of one completed send. ok is false when the
// catalog has no entry for modelKey, in which case cost is always zero.
func Cost(catalog *Catalog, modelKey string, usage Usage) (cost float64, ok bool) {
	price, found := catalog.Get(modelKey)
	if !found {
		return 0, false
	}
	cost += perMillion(price.InputPerMTokens, usage.PromptTokens)
	cost += perMillion(price.OutputPerMTokens, usage.CompletionTokens)
	return cost, true
}

func perMillion(rate *float64, tokens int) float64 {
	if rate == nil || tokens == 0 {
		return 0
	}
	return *rate * float64(tokens) / 1_000_000
}
