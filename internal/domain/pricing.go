package domain

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultPricingKey names the fallback entry of a pricing table.
const DefaultPricingKey = "default"

var (
	// ErrMissingDefaultPrice indicates a pricing table without a default entry.
	ErrMissingDefaultPrice = errors.New("pricing table has no default entry")

	// ErrInvalidPrice indicates a malformed pricing entry.
	ErrInvalidPrice = errors.New("invalid pricing entry")
)

// ModelPrice is the price of a model in USD per million tokens.
type ModelPrice struct {
	Input  float64 `json:"input"  yaml:"input"`
	Output float64 `json:"output" yaml:"output"`
}

// PricingEntry binds a model-name substring to a price.
type PricingEntry struct {
	Key   string     `json:"key"`
	Price ModelPrice `json:"price"`
}

// PricingTable resolves model names to prices.
//
// Entries are matched in declaration order: the first key that is a
// case-insensitive substring of the model name wins. Models matching no key
// use the default entry.
type PricingTable struct {
	entries  []PricingEntry
	fallback ModelPrice
}

// NewPricingTable validates entries and builds a table. Exactly one entry must
// use DefaultPricingKey; it may appear anywhere and never takes part in matching.
func NewPricingTable(entries []PricingEntry) (*PricingTable, error) {
	table := &PricingTable{
		entries: make([]PricingEntry, 0, len(entries)),
	}

	seen := make(map[string]bool, len(entries))
	hasDefault := false

	for _, entry := range entries {
		key := strings.ToLower(strings.TrimSpace(entry.Key))
		if key == "" {
			return nil, fmt.Errorf("%w: empty key", ErrInvalidPrice)
		}
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidPrice, key)
		}
		seen[key] = true

		if entry.Price.Input < 0 || entry.Price.Output < 0 {
			return nil, fmt.Errorf("%w: negative price for %q", ErrInvalidPrice, key)
		}

		if key == DefaultPricingKey {
			table.fallback = entry.Price
			hasDefault = true
			continue
		}

		table.entries = append(table.entries, PricingEntry{Key: key, Price: entry.Price})
	}

	if !hasDefault {
		return nil, ErrMissingDefaultPrice
	}

	return table, nil
}

// Resolve returns the price for a model and the key that matched it.
func (t *PricingTable) Resolve(model string) (ModelPrice, string) {
	lowered := strings.ToLower(model)
	for _, entry := range t.entries {
		if strings.Contains(lowered, entry.Key) {
			return entry.Price, entry.Key
		}
	}
	return t.fallback, DefaultPricingKey
}

// Default returns the fallback price.
func (t *PricingTable) Default() ModelPrice {
	return t.fallback
}

// Entries returns the matchable entries in declaration order.
func (t *PricingTable) Entries() []PricingEntry {
	out := make([]PricingEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Shadowed lists keys that can never match because they contain an earlier key.
func (t *PricingTable) Shadowed() []string {
	var shadowed []string
	for i, later := range t.entries {
		for _, earlier := range t.entries[:i] {
			if strings.Contains(later.Key, earlier.Key) {
				shadowed = append(shadowed, later.Key)
				break
			}
		}
	}
	return shadowed
}
