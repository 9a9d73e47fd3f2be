// Package file loads a conversation graph definition from a YAML file
// into the stores. Seeding is idempotent: exchanges and keywords are
// upserts, and tangents carry explicit IDs so reloading a file never
// duplicates rows.
package file

import (
	"context"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// Graph is the seed file layout.
type Graph struct {
	Exchanges []ExchangeDef `mapstructure:"exchanges"`
	Tangents  []TangentDef  `mapstructure:"tangents"`
}

// ExchangeDef is one exchange row plus its keyword table.
type ExchangeDef struct {
	Name     string            `mapstructure:"name"`
	Prompt   string            `mapstructure:"prompt"`
	Default  string            `mapstructure:"default"`
	Rank     int               `mapstructure:"rank"`
	Type     string            `mapstructure:"type"`
	Keywords map[string]string `mapstructure:"keywords"`
}

// TangentDef is one tangent row. ID is optional; explicit IDs make
// reloads replace instead of append.
type TangentDef struct {
	ID   int64  `mapstructure:"id"`
	Rank int    `mapstructure:"rank"`
	Text string `mapstructure:"text"`
}

// Parse decodes a graph definition from YAML bytes.
func Parse(data []byte) (*Graph, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse graph yaml: %w", err)
	}

	var g Graph
	if err := mapstructure.Decode(raw, &g); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}

	for i, ex := range g.Exchanges {
		if ex.Name == "" {
			return nil, fmt.Errorf("exchange %d missing name", i)
		}
	}
	for i, t := range g.Tangents {
		if t.Text == "" {
			return nil, fmt.Errorf("tangent %d missing text", i)
		}
	}
	return &g, nil
}

// Load reads and parses a graph file.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph file: %w", err)
	}
	return Parse(data)
}

// Seed writes the graph into the stores.
func Seed(ctx context.Context, stores ports.Stores, g *Graph) error {
	for _, ex := range g.Exchanges {
		err := stores.Prompts.Set(ctx, domain.Exchange{
			Name:    ex.Name,
			Prompt:  ex.Prompt,
			Default: ex.Default,
			Rank:    ex.Rank,
			Type:    domain.ExchangeType(ex.Type).Normalize(),
		})
		if err != nil {
			return fmt.Errorf("seed exchange %q: %w", ex.Name, err)
		}
		if len(ex.Keywords) > 0 {
			if err := stores.Keywords.SetMany(ctx, ex.Name, ex.Keywords); err != nil {
				return fmt.Errorf("seed keywords of %q: %w", ex.Name, err)
			}
		}
	}

	for _, t := range g.Tangents {
		_, err := stores.Tangents.Set(ctx, domain.Tangent{ID: t.ID, Rank: t.Rank, Text: t.Text})
		if err != nil {
			return fmt.Errorf("seed tangent %q: %w", t.Text, err)
		}
	}
	return nil
}

// LoadAndSeed is the one-call form used by the CLI.
func LoadAndSeed(ctx context.Context, stores ports.Stores, path string) (*Graph, error) {
	g, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := Seed(ctx, stores, g); err != nil {
		return nil, err
	}
	return g, nil
}
