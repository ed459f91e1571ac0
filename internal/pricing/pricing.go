// Package pricing loads ordered model pricing tables from YAML.
package pricing

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/marutilai/open-deep-research/internal/domain"
	"github.com/marutilai/open-deep-research/internal/observability"
)

//go:embed default.yaml
var defaultYAML []byte

// priceNode detects missing fields, which a plain ModelPrice would read as zero.
type priceNode struct {
	Input  *float64 `yaml:"input"`
	Output *float64 `yaml:"output"`
}

// Parse reads a YAML mapping of model key to price, keeping declaration order.
func Parse(data []byte) (*domain.PricingTable, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse pricing: %w", err)
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("pricing document is empty")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("pricing must be a mapping, got line %d", root.Line)
	}

	entries := make([]domain.PricingEntry, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: non-scalar key at line %d", domain.ErrInvalidPrice, keyNode.Line)
		}

		var price priceNode
		if err := valueNode.Decode(&price); err != nil {
			return nil, fmt.Errorf("%w: %q at line %d: %w", domain.ErrInvalidPrice, keyNode.Value, valueNode.Line, err)
		}
		if price.Input == nil || price.Output == nil {
			return nil, fmt.Errorf("%w: %q at line %d needs input and output",
				domain.ErrInvalidPrice, keyNode.Value, valueNode.Line)
		}

		entries = append(entries, domain.PricingEntry{
			Key:   keyNode.Value,
			Price: domain.ModelPrice{Input: *price.Input, Output: *price.Output},
		})
	}

	table, err := domain.NewPricingTable(entries)
	if err != nil {
		return nil, err
	}

	if shadowed := table.Shadowed(); len(shadowed) > 0 {
		observability.FromContext(context.Background()).Warn(
			"pricing keys can never match because an earlier key is contained in them",
			observability.Strings("keys", shadowed))
	}

	return table, nil
}

// Load reads a pricing table from a YAML file.
func Load(path string) (*domain.PricingTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing file: %w", err)
	}

	table, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("pricing file %s: %w", path, err)
	}
	return table, nil
}

// Default returns the built-in pricing table.
func Default() *domain.PricingTable {
	table, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded pricing is invalid: %v", err))
	}
	return table
}

// LoadOrDefault loads path, or the built-in table when path is empty.
func LoadOrDefault(path string) (*domain.PricingTable, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
