package dsl

import (
	"context"
	"fmt"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// Builder accumulates a conversation graph.
type Builder struct {
	order    []string
	nodes    map[string]*ExchangeBuilder
	tangents []string
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[string]*ExchangeBuilder),
	}
}

// Exchange creates a new exchange in the graph.
// If the exchange already exists, it returns the existing builder.
func (b *Builder) Exchange(name string) *ExchangeBuilder {
	if eb, ok := b.nodes[name]; ok {
		return eb
	}
	eb := &ExchangeBuilder{
		exchange: domain.Exchange{Name: name},
		keywords: make(map[string]string),
		builder:  b,
	}
	b.nodes[name] = eb
	b.order = append(b.order, name)
	return eb
}

// Start is shorthand for Exchange(domain.StartExchange).
func (b *Builder) Start() *ExchangeBuilder {
	return b.Exchange(domain.StartExchange)
}

// Tangent appends an aside to the rotation, in call order.
func (b *Builder) Tangent(text string) *Builder {
	b.tangents = append(b.tangents, text)
	return b
}

// Seed writes the accumulated graph into the stores. Ranks follow
// declaration order. Like file seeding, it is idempotent for exchanges
// and keywords but appends tangents on every call.
func (b *Builder) Seed(ctx context.Context, stores ports.Stores) error {
	for rank, name := range b.order {
		eb := b.nodes[name]
		ex := eb.exchange
		ex.Rank = rank
		ex.Type = ex.Type.Normalize()

		if err := stores.Prompts.Set(ctx, ex); err != nil {
			return fmt.Errorf("seed exchange %q: %w", name, err)
		}
		if len(eb.keywords) > 0 {
			if err := stores.Keywords.SetMany(ctx, name, eb.keywords); err != nil {
				return fmt.Errorf("seed keywords of %q: %w", name, err)
			}
		}
	}

	for rank, text := range b.tangents {
		if _, err := stores.Tangents.Set(ctx, domain.Tangent{Rank: rank, Text: text}); err != nil {
			return fmt.Errorf("seed tangent %d: %w", rank, err)
		}
	}

	return nil
}

// Exchanges returns the accumulated exchanges in declaration order,
// for validation or rendering without touching a store.
func (b *Builder) Exchanges() []domain.Exchange {
	out := make([]domain.Exchange, 0, len(b.order))
	for rank, name := range b.order {
		ex := b.nodes[name].exchange
		ex.Rank = rank
		ex.Type = ex.Type.Normalize()
		out = append(out, ex)
	}
	return out
}

// Keywords returns the accumulated keyword tables keyed by exchange name.
func (b *Builder) Keywords() map[string]map[string]string {
	out := make(map[string]map[string]string, len(b.nodes))
	for name, eb := range b.nodes {
		if len(eb.keywords) == 0 {
			continue
		}
		kw := make(map[string]string, len(eb.keywords))
		for k, v := range eb.keywords {
			kw[k] = v
		}
		out[name] = kw
	}
	return out
}
