// Package engine implements the dialogue state machine: per-turn keyword
// transitions, variant exchange handlers, and the autofollow loop.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/internal/metrics"
	"github.com/aretw0/parley/internal/names"
	"github.com/aretw0/parley/internal/prompt"
	"github.com/aretw0/parley/internal/textutil"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/session"
)

// messageHandler processes a full turn for a variant exchange type.
// It receives the loaded session state and returns the reply, whether a
// reply was produced, and an error. It persists state itself.
type messageHandler func(ctx context.Context, sessionID string, state *domain.SessionState, message string) (string, bool, error)

// promptHandler produces the response for entering a variant exchange,
// replacing plain template rendering.
type promptHandler func(ctx context.Context, sessionID string) (string, bool, error)

// Engine drives conversations. It is stateless between calls: all turn
// state lives in the session store. Turns for the same session ID are
// serialized through an internal lock manager; turns for different
// sessions run in parallel.
type Engine struct {
	stores     ports.Stores
	locks      *session.Manager
	distLocker ports.DistributedLocker
	lockTTL    time.Duration
	deliverer  ports.Deliverer
	logger     *slog.Logger
	metrics    *metrics.Metrics
	names      *names.Set

	message     map[domain.ExchangeType]messageHandler
	promptFetch map[domain.ExchangeType]promptHandler
	autofollow  map[domain.ExchangeType]bool
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithDeliverer sets the out-of-band transport used by autofollow pushes.
// Without one, an autofollow exchange returns its first response to the
// caller and stops.
func WithDeliverer(d ports.Deliverer) Option {
	return func(e *Engine) { e.deliverer = d }
}

// WithMetrics sets the Prometheus metric set.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithNames replaces the embedded name dictionary.
func WithNames(s *names.Set) Option {
	return func(e *Engine) { e.names = s }
}

// WithLocker extends per-session serialization across replicas.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) { e.distLocker = l }
}

// WithLockTTL bounds how long a crashed replica can hold a session's
// distributed lock. Only meaningful together with WithLocker.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) { e.lockTTL = ttl }
}

// New creates an Engine over the given stores.
func New(stores ports.Stores, opts ...Option) *Engine {
	e := &Engine{
		stores:  stores,
		locks:   session.NewManager(),
		logger:  logging.NewNop(),
		metrics: metrics.NewNop(),
		names:   names.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.distLocker != nil {
		mopts := []session.Option{
			session.WithLocker(e.distLocker),
			session.WithLogger(e.logger),
		}
		if e.lockTTL > 0 {
			mopts = append(mopts, session.WithLockTTL(e.lockTTL))
		}
		e.locks = session.NewManager(mopts...)
	}

	// Variant dispatch tables. Adding an autofollow-flagged type is a
	// table edit, not an engine change.
	e.message = map[domain.ExchangeType]messageHandler{
		domain.TypeName:    e.nameTurn,
		domain.TypeQueue:   e.queueTurn,
		domain.TypeTangent: e.tangentTurn,
	}
	e.promptFetch = map[domain.ExchangeType]promptHandler{
		domain.TypeQueue:   e.queuePrompt,
		domain.TypeTangent: e.tangentPrompt,
	}
	e.autofollow = map[domain.ExchangeType]bool{
		domain.TypeTangent: true,
	}
	return e
}

// Converse processes one inbound message end to end: a single advance
// plus the autofollow loop. This is the entry point for transports.
func (e *Engine) Converse(ctx context.Context, sessionID, message string) (string, bool, error) {
	var reply string
	var ok bool
	err := e.locks.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		reply, ok, err = e.advance(ctx, sessionID, message)
		if err != nil || !ok {
			return err
		}
		reply, ok, err = e.autofollowLoop(ctx, sessionID, reply)
		return err
	})
	if err != nil {
		return "", false, err
	}
	return reply, ok, nil
}

// Advance processes exactly one turn without autofollowing.
func (e *Engine) Advance(ctx context.Context, sessionID, message string) (string, bool, error) {
	var reply string
	var ok bool
	err := e.locks.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		reply, ok, err = e.advance(ctx, sessionID, message)
		return err
	})
	if err != nil {
		return "", false, err
	}
	return reply, ok, nil
}

// Autofollow runs the push loop for an already-produced response: while
// the session sits on an autofollow-flagged exchange, the response is
// delivered out-of-band and the engine advances on an empty message.
func (e *Engine) Autofollow(ctx context.Context, sessionID, response string) (string, bool, error) {
	var reply string
	var ok bool
	err := e.locks.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		reply, ok, err = e.autofollowLoop(ctx, sessionID, response)
		return err
	})
	if err != nil {
		return "", false, err
	}
	return reply, ok, nil
}

// GetPrompt computes the response for entering an exchange: a variant
// prompt handler if one is registered, otherwise the exchange's template
// rendered against data. Used by the admin jump action.
func (e *Engine) GetPrompt(ctx context.Context, sessionID, exchange string, data map[string]string) (string, bool, error) {
	var reply string
	var ok bool
	err := e.locks.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		reply, ok, err = e.getPrompt(ctx, sessionID, exchange, data)
		return err
	})
	if err != nil {
		return "", false, err
	}
	return reply, ok, nil
}

// Jump moves a session to an exchange unconditionally and returns the
// entry response, logging it as a bot message if one is produced.
func (e *Engine) Jump(ctx context.Context, sessionID, exchange string) (string, bool, error) {
	var reply string
	var ok bool
	err := e.locks.WithLock(ctx, sessionID, func(ctx context.Context) error {
		state, err := e.loadState(ctx, sessionID)
		if err != nil {
			return err
		}
		state.Exchange = exchange
		if err := e.stores.Sessions.Set(ctx, sessionID, state); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
		reply, ok, err = e.getPrompt(ctx, sessionID, exchange, state.Data)
		if err != nil || !ok {
			return err
		}
		return e.logMessage(ctx, sessionID, reply, false)
	})
	if err != nil {
		return "", false, err
	}
	return reply, ok, nil
}

// ClearSession forgets a session entirely, including its tangent
// rotation, so the next inbound message starts from scratch.
func (e *Engine) ClearSession(ctx context.Context, sessionID string) error {
	return e.locks.WithLock(ctx, sessionID, func(ctx context.Context) error {
		if err := e.stores.Sessions.Delete(ctx, sessionID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if err := e.stores.Seen.ClearUser(ctx, sessionID); err != nil {
			return fmt.Errorf("clear tangent rotation: %w", err)
		}
		return nil
	})
}

// advance is one turn: load, log inbound, dispatch, log outbound.
func (e *Engine) advance(ctx context.Context, sessionID, message string) (string, bool, error) {
	state, err := e.loadState(ctx, sessionID)
	if err != nil {
		return "", false, err
	}

	// Inbound is logged unconditionally, before we know whether the
	// turn produces anything.
	if err := e.logMessage(ctx, sessionID, message, true); err != nil {
		return "", false, err
	}

	ex, err := e.currentExchange(ctx, state.Exchange)
	if err != nil {
		return "", false, err
	}

	var reply string
	var ok bool
	if h, found := e.message[ex.Type.Normalize()]; found {
		reply, ok, err = h(ctx, sessionID, state, message)
	} else {
		reply, ok, err = e.standardTurn(ctx, sessionID, state, ex, message)
	}
	if err != nil {
		e.metrics.Turns.WithLabelValues("error").Inc()
		return "", false, err
	}
	if !ok {
		e.metrics.Turns.WithLabelValues("silence").Inc()
		return "", false, nil
	}

	if err := e.logMessage(ctx, sessionID, reply, false); err != nil {
		return "", false, err
	}
	e.metrics.Turns.WithLabelValues("reply").Inc()
	return reply, true, nil
}

// standardTurn matches normalized tokens against the keyword table,
// falling back to the exchange's default successor.
func (e *Engine) standardTurn(ctx context.Context, sessionID string, state *domain.SessionState, ex domain.Exchange, message string) (string, bool, error) {
	mapping, err := e.stores.Keywords.Mapping(ctx, ex.Name)
	if err != nil {
		return "", false, fmt.Errorf("load keywords for %q: %w", ex.Name, err)
	}

	dest := ex.Default
	via := "default"
	for _, token := range textutil.Tokenize(message) {
		if d, found := mapping[token]; found {
			// First token present in the table wins.
			dest = d
			via = "keyword"
			break
		}
	}

	if dest == "" {
		e.logger.Debug("no keyword match and no default; staying silent",
			"session_id", sessionID, "exchange", ex.Name)
		return "", false, nil
	}

	state.Exchange = dest
	if err := e.stores.Sessions.Set(ctx, sessionID, state); err != nil {
		return "", false, fmt.Errorf("persist session: %w", err)
	}
	e.metrics.Transitions.WithLabelValues(via).Inc()

	return e.getPrompt(ctx, sessionID, dest, state.Data)
}

// autofollowLoop pushes responses out-of-band while the session sits on
// an autofollow-flagged exchange. Strictly sequential: each delivery
// completes before the next advance reads the just-written state.
func (e *Engine) autofollowLoop(ctx context.Context, sessionID, response string) (string, bool, error) {
	for {
		state, err := e.loadState(ctx, sessionID)
		if err != nil {
			return "", false, err
		}
		ex, err := e.currentExchange(ctx, state.Exchange)
		if err != nil {
			return "", false, err
		}
		if !e.autofollow[ex.Type.Normalize()] {
			return response, true, nil
		}
		if e.deliverer == nil {
			e.logger.Warn("autofollow exchange reached without a deliverer",
				"session_id", sessionID, "exchange", ex.Name)
			return response, true, nil
		}

		if err := e.deliverer.Deliver(ctx, sessionID, response); err != nil {
			return "", false, fmt.Errorf("autofollow delivery: %w", err)
		}
		e.metrics.AutofollowPushes.Inc()

		next, ok, err := e.advance(ctx, sessionID, "")
		if err != nil {
			return "", false, err
		}
		if !ok {
			return "", false, nil
		}
		response = next
	}
}

// getPrompt is the prompt-fetch path: variant handler first, template
// rendering second. A dangling exchange reference is a configuration
// error surfaced as silence, never a crash.
func (e *Engine) getPrompt(ctx context.Context, sessionID, exchange string, data map[string]string) (string, bool, error) {
	ex, err := e.stores.Prompts.Get(ctx, exchange)
	if errors.Is(err, domain.ErrExchangeNotFound) {
		e.metrics.ConfigErrors.Inc()
		e.logger.Error("dangling exchange reference",
			"session_id", sessionID, "exchange", exchange)
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load exchange %q: %w", exchange, err)
	}

	if h, found := e.promptFetch[ex.Type.Normalize()]; found {
		return h(ctx, sessionID)
	}

	if data == nil {
		data = make(map[string]string)
	}
	return prompt.Render(ex.Prompt, data), true, nil
}

// currentExchange loads the session's active exchange row. A session
// parked on an undefined exchange behaves as a standard exchange with no
// prompt and no default; its keyword rows, if any, still apply.
func (e *Engine) currentExchange(ctx context.Context, name string) (domain.Exchange, error) {
	ex, err := e.stores.Prompts.Get(ctx, name)
	if errors.Is(err, domain.ErrExchangeNotFound) {
		return domain.Exchange{Name: name}, nil
	}
	if err != nil {
		return domain.Exchange{}, fmt.Errorf("load exchange %q: %w", name, err)
	}
	return ex, nil
}

// loadState fetches session state, defaulting unknown sessions to the
// start sentinel and normalizing data to a non-nil map.
func (e *Engine) loadState(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	state, err := e.stores.Sessions.Get(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.NewSessionState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if state.Data == nil {
		state.Data = make(map[string]string)
	}
	return state, nil
}

func (e *Engine) logMessage(ctx context.Context, sessionID, message string, fromUser bool) error {
	entry := domain.LogEntry{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Message:   message,
		FromUser:  fromUser,
		At:        time.Now().UTC(),
	}
	if err := e.stores.Log.Append(ctx, entry); err != nil {
		return fmt.Errorf("append conversation log: %w", err)
	}
	return nil
}
