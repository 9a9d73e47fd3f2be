// Package parley is a scripted conversational agent: it walks a directed
// graph of exchanges, each carrying a prompt and keyword-triggered
// transitions, and holds one persisted session per remote party.
//
// The package is the high-level entry point for embedders. It wraps the
// internal engine and wires default in-memory stores so a bot can run
// with zero configuration:
//
//	bot, _ := parley.New()
//	reply, ok, _ := bot.Converse(ctx, "+15550100", "hi there")
//
// Production deployments inject durable stores (Redis, Postgres), an
// outbound deliverer, and a distributed session locker via options.
package parley

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/parley/internal/adapters/memory"
	"github.com/aretw0/parley/internal/engine"
	"github.com/aretw0/parley/internal/metrics"
	"github.com/aretw0/parley/internal/names"
	"github.com/aretw0/parley/pkg/ports"
)

// Version is the release version reported by the CLI.
const Version = "0.1.0"

// Bot is the embeddable dialogue engine.
type Bot struct {
	engine *engine.Engine
	stores ports.Stores
}

// Option configures a Bot.
type Option func(*config)

type config struct {
	stores     *ports.Stores
	logger     *slog.Logger
	deliverer  ports.Deliverer
	locker     ports.DistributedLocker
	lockTTL    time.Duration
	registerer prometheus.Registerer
	nameWords  []string
}

// WithStores injects persistence adapters. Fields left nil fall back to
// in-memory implementations.
func WithStores(s ports.Stores) Option {
	return func(c *config) { c.stores = &s }
}

// WithLogger sets a structured logger for engine events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithDeliverer sets the out-of-band transport for autofollow pushes.
func WithDeliverer(d ports.Deliverer) Option {
	return func(c *config) { c.deliverer = d }
}

// WithLocker extends per-session serialization across replicas.
func WithLocker(l ports.DistributedLocker) Option {
	return func(c *config) { c.locker = l }
}

// WithLockTTL bounds how long a crashed replica can hold a session's
// distributed lock. Only meaningful together with WithLocker.
func WithLockTTL(ttl time.Duration) Option {
	return func(c *config) { c.lockTTL = ttl }
}

// WithMetrics registers engine counters with the given registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *config) { c.registerer = reg }
}

// WithNameDictionary replaces the embedded first-name dictionary used by
// name-capture exchanges.
func WithNameDictionary(words []string) Option {
	return func(c *config) { c.nameWords = words }
}

// New creates a Bot.
func New(opts ...Option) (*Bot, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	stores := memory.NewStores()
	if cfg.stores != nil {
		if cfg.stores.Prompts != nil {
			stores.Prompts = cfg.stores.Prompts
		}
		if cfg.stores.Keywords != nil {
			stores.Keywords = cfg.stores.Keywords
		}
		if cfg.stores.Tangents != nil {
			stores.Tangents = cfg.stores.Tangents
		}
		if cfg.stores.Seen != nil {
			stores.Seen = cfg.stores.Seen
		}
		if cfg.stores.Sessions != nil {
			stores.Sessions = cfg.stores.Sessions
		}
		if cfg.stores.Log != nil {
			stores.Log = cfg.stores.Log
		}
	}

	engOpts := []engine.Option{}
	if cfg.logger != nil {
		engOpts = append(engOpts, engine.WithLogger(cfg.logger))
	}
	if cfg.deliverer != nil {
		engOpts = append(engOpts, engine.WithDeliverer(cfg.deliverer))
	}
	if cfg.locker != nil {
		engOpts = append(engOpts, engine.WithLocker(cfg.locker))
	}
	if cfg.lockTTL > 0 {
		engOpts = append(engOpts, engine.WithLockTTL(cfg.lockTTL))
	}
	if cfg.registerer != nil {
		engOpts = append(engOpts, engine.WithMetrics(metrics.New(cfg.registerer)))
	}
	if cfg.nameWords != nil {
		engOpts = append(engOpts, engine.WithNames(names.New(cfg.nameWords)))
	}

	return &Bot{
		engine: engine.New(stores, engOpts...),
		stores: stores,
	}, nil
}

// Converse processes one inbound message end to end: one state
// transition plus the autofollow loop. It returns the reply and whether
// one was produced; silence is not an error.
func (b *Bot) Converse(ctx context.Context, sessionID, message string) (string, bool, error) {
	return b.engine.Converse(ctx, sessionID, message)
}

// Advance processes exactly one turn without autofollowing.
func (b *Bot) Advance(ctx context.Context, sessionID, message string) (string, bool, error) {
	return b.engine.Advance(ctx, sessionID, message)
}

// Autofollow resumes the push loop for a response already in hand.
func (b *Bot) Autofollow(ctx context.Context, sessionID, response string) (string, bool, error) {
	return b.engine.Autofollow(ctx, sessionID, response)
}

// GetPrompt computes the response for entering an exchange without
// moving the session.
func (b *Bot) GetPrompt(ctx context.Context, sessionID, exchange string, data map[string]string) (string, bool, error) {
	return b.engine.GetPrompt(ctx, sessionID, exchange, data)
}

// Jump moves a session to an exchange unconditionally and returns the
// entry response.
func (b *Bot) Jump(ctx context.Context, sessionID, exchange string) (string, bool, error) {
	return b.engine.Jump(ctx, sessionID, exchange)
}

// ClearSession forgets a session and restarts its tangent rotation.
func (b *Bot) ClearSession(ctx context.Context, sessionID string) error {
	return b.engine.ClearSession(ctx, sessionID)
}

// Stores exposes the persistence ports for admin surfaces: exchange
// editing, transcript views, session listings.
func (b *Bot) Stores() ports.Stores {
	return b.stores
}
