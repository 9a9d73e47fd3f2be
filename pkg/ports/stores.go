package ports

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// PromptStore persists exchange rows: prompt template, default successor,
// rank, and type tag. Writes come from the admin surface only and use
// last-writer-wins replace semantics.
type PromptStore interface {
	// Get retrieves an exchange by name.
	// Returns domain.ErrExchangeNotFound if no row exists.
	Get(ctx context.Context, name string) (domain.Exchange, error)

	// Set inserts or replaces an exchange row.
	Set(ctx context.Context, ex domain.Exchange) error

	// Delete removes an exchange row. Deleting a missing row is not an error.
	Delete(ctx context.Context, name string) error

	// List returns all exchanges ordered by rank ascending.
	List(ctx context.Context) ([]domain.Exchange, error)
}

// KeywordStore persists the keyword-to-destination transitions of each
// exchange. Keywords are stored as given; normalization happens before
// lookup, not before storage.
type KeywordStore interface {
	// Mapping returns the keyword table of an exchange. An exchange with
	// no keywords yields an empty, non-nil map.
	Mapping(ctx context.Context, exchange string) (map[string]string, error)

	// SetMany upserts a batch of keyword rows for an exchange: missing
	// pairs are inserted, changed destinations are updated, identical
	// pairs are left alone. Idempotent; never creates duplicate rows.
	SetMany(ctx context.Context, exchange string, mapping map[string]string) error

	// Delete removes every keyword row of an exchange.
	Delete(ctx context.Context, exchange string) error
}

// TangentStore persists the ordered list of tangent texts.
type TangentStore interface {
	// List returns all tangents ordered by rank ascending.
	List(ctx context.Context) ([]domain.Tangent, error)

	// Set inserts a tangent (ID zero) or replaces an existing one,
	// returning the tangent's ID.
	Set(ctx context.Context, t domain.Tangent) (int64, error)

	// Delete removes a tangent by ID.
	Delete(ctx context.Context, id int64) error
}

// SeenTracker records which tangents each user has already received.
// The set grows monotonically per user until the session is cleared.
type SeenTracker interface {
	// Seen returns the IDs of all tangents the user has received.
	Seen(ctx context.Context, userID string) ([]int64, error)

	// MarkSeen records a delivery.
	MarkSeen(ctx context.Context, tangentID int64, userID string) error

	// ClearUser forgets every delivery for a user, restarting the rotation.
	ClearUser(ctx context.Context, userID string) error
}

// SessionStore persists per-conversation state.
type SessionStore interface {
	// Get retrieves a session's state.
	// Returns domain.ErrSessionNotFound if the session has no row.
	Get(ctx context.Context, sessionID string) (*domain.SessionState, error)

	// Set inserts or replaces a session's state.
	Set(ctx context.Context, sessionID string, state *domain.SessionState) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all known sessions.
	List(ctx context.Context) ([]string, error)
}

// ConversationLog is the append-only transcript record.
// Within a session, timestamps are monotonically non-decreasing.
type ConversationLog interface {
	// Append adds one entry.
	Append(ctx context.Context, entry domain.LogEntry) error

	// History returns a session's transcript ordered by time ascending.
	History(ctx context.Context, sessionID string) ([]domain.LogEntry, error)

	// Sessions returns the distinct session IDs that have ever conversed.
	Sessions(ctx context.Context) ([]string, error)

	// HasConversed reports whether a session has any transcript at all.
	HasConversed(ctx context.Context, sessionID string) (bool, error)
}

// Stores bundles every persistence port the engine needs. Adapters may
// back different fields with different engines (e.g. sessions in Redis,
// exchanges in Postgres).
type Stores struct {
	Prompts  PromptStore
	Keywords KeywordStore
	Tangents TangentStore
	Seen     SeenTracker
	Sessions SessionStore
	Log      ConversationLog
}
