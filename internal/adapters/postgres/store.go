// Package postgres provides pgx-backed adapters for every persistence
// port. One Store implements all six; deployments that keep hot session
// state in Redis still use this package for the graph tables and the
// durable transcript.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// Store holds the connection pool shared by all adapters.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database and verifies the connection.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewFromPool wraps an existing pool.
func NewFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Stores bundles this store into every port slot. Ports whose method
// names collide on Store (Get, Set, Delete, List mean different things
// for prompts, tangents, and sessions) go through thin wrappers.
func (s *Store) Stores() ports.Stores {
	return ports.Stores{
		Prompts:  s,
		Keywords: keywordAdapter{s},
		Tangents: tangentAdapter{s},
		Seen:     s,
		Sessions: sessionAdapter{s},
		Log:      s,
	}
}

type keywordAdapter struct{ s *Store }

func (a keywordAdapter) Mapping(ctx context.Context, exchange string) (map[string]string, error) {
	return a.s.Mapping(ctx, exchange)
}

func (a keywordAdapter) SetMany(ctx context.Context, exchange string, mapping map[string]string) error {
	return a.s.SetMany(ctx, exchange, mapping)
}

func (a keywordAdapter) Delete(ctx context.Context, exchange string) error {
	return a.s.DeleteKeywords(ctx, exchange)
}

type tangentAdapter struct{ s *Store }

func (a tangentAdapter) List(ctx context.Context) ([]domain.Tangent, error) {
	return a.s.ListTangents(ctx)
}

func (a tangentAdapter) Set(ctx context.Context, t domain.Tangent) (int64, error) {
	return a.s.SetTangent(ctx, t)
}

func (a tangentAdapter) Delete(ctx context.Context, id int64) error {
	return a.s.DeleteTangent(ctx, id)
}

type sessionAdapter struct{ s *Store }

func (a sessionAdapter) Get(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	return a.s.GetSession(ctx, sessionID)
}

func (a sessionAdapter) Set(ctx context.Context, sessionID string, state *domain.SessionState) error {
	return a.s.SetSession(ctx, sessionID, state)
}

func (a sessionAdapter) Delete(ctx context.Context, sessionID string) error {
	return a.s.DeleteSession(ctx, sessionID)
}

func (a sessionAdapter) List(ctx context.Context) ([]string, error) {
	return a.s.ListSessions(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
	name         TEXT PRIMARY KEY,
	prompt       TEXT NOT NULL DEFAULT '',
	default_dest TEXT NOT NULL DEFAULT '',
	rank         INTEGER NOT NULL DEFAULT 0,
	type         TEXT NOT NULL DEFAULT 'standard'
);

CREATE TABLE IF NOT EXISTS keywords (
	exchange    TEXT NOT NULL,
	keyword     TEXT NOT NULL,
	destination TEXT NOT NULL,
	PRIMARY KEY (exchange, keyword)
);

CREATE TABLE IF NOT EXISTS tangents (
	id   BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	rank INTEGER NOT NULL DEFAULT 0,
	text TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tangent_seen (
	user_id    TEXT NOT NULL,
	tangent_id BIGINT NOT NULL,
	PRIMARY KEY (user_id, tangent_id)
);

CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	exchange   TEXT NOT NULL,
	data       JSONB NOT NULL DEFAULT '{}'::jsonb
);

CREATE TABLE IF NOT EXISTS chatlog (
	seq        BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	id         TEXT NOT NULL,
	session_id TEXT NOT NULL,
	message    TEXT NOT NULL,
	from_user  BOOLEAN NOT NULL,
	at         TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS chatlog_session_idx ON chatlog (session_id, seq);
`

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Get retrieves an exchange row.
func (s *Store) Get(ctx context.Context, name string) (domain.Exchange, error) {
	var ex domain.Exchange
	var typ string
	err := s.pool.QueryRow(ctx, `
		SELECT name, prompt, default_dest, rank, type
		FROM exchanges WHERE name = $1`,
		name,
	).Scan(&ex.Name, &ex.Prompt, &ex.Default, &ex.Rank, &typ)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Exchange{}, domain.ErrExchangeNotFound
		}
		return domain.Exchange{}, fmt.Errorf("select exchange: %w", err)
	}
	ex.Type = domain.ExchangeType(typ)
	return ex, nil
}

// Set inserts or replaces an exchange row.
func (s *Store) Set(ctx context.Context, ex domain.Exchange) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO exchanges (name, prompt, default_dest, rank, type)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE SET
			prompt = EXCLUDED.prompt,
			default_dest = EXCLUDED.default_dest,
			rank = EXCLUDED.rank,
			type = EXCLUDED.type`,
		ex.Name, ex.Prompt, ex.Default, ex.Rank, string(ex.Type),
	)
	if err != nil {
		return fmt.Errorf("upsert exchange: %w", err)
	}
	return nil
}

// Delete removes an exchange row.
func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM exchanges WHERE name = $1`, name); err != nil {
		return fmt.Errorf("delete exchange: %w", err)
	}
	return nil
}

// List returns all exchanges ordered by rank.
func (s *Store) List(ctx context.Context) ([]domain.Exchange, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name, prompt, default_dest, rank, type
		FROM exchanges ORDER BY rank, name`)
	if err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}
	defer rows.Close()

	var out []domain.Exchange
	for rows.Next() {
		var ex domain.Exchange
		var typ string
		if err := rows.Scan(&ex.Name, &ex.Prompt, &ex.Default, &ex.Rank, &typ); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		ex.Type = domain.ExchangeType(typ)
		out = append(out, ex)
	}
	return out, rows.Err()
}

// Mapping returns the keyword table of an exchange.
func (s *Store) Mapping(ctx context.Context, exchange string) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT keyword, destination FROM keywords WHERE exchange = $1`,
		exchange)
	if err != nil {
		return nil, fmt.Errorf("select keywords: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var kw, dest string
		if err := rows.Scan(&kw, &dest); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		out[kw] = dest
	}
	return out, rows.Err()
}

// SetMany upserts keyword rows for an exchange. The primary key makes
// the operation idempotent: repeated loads never duplicate rows.
func (s *Store) SetMany(ctx context.Context, exchange string, mapping map[string]string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for kw, dest := range mapping {
		_, err := tx.Exec(ctx, `
			INSERT INTO keywords (exchange, keyword, destination)
			VALUES ($1, $2, $3)
			ON CONFLICT (exchange, keyword) DO UPDATE SET destination = EXCLUDED.destination`,
			exchange, kw, dest,
		)
		if err != nil {
			return fmt.Errorf("upsert keyword: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DeleteKeywords removes every keyword row of an exchange.
func (s *Store) DeleteKeywords(ctx context.Context, exchange string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM keywords WHERE exchange = $1`, exchange); err != nil {
		return fmt.Errorf("delete keywords: %w", err)
	}
	return nil
}

// ListTangents returns all tangents ordered by rank.
func (s *Store) ListTangents(ctx context.Context) ([]domain.Tangent, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, rank, text FROM tangents ORDER BY rank, id`)
	if err != nil {
		return nil, fmt.Errorf("list tangents: %w", err)
	}
	defer rows.Close()

	var out []domain.Tangent
	for rows.Next() {
		var t domain.Tangent
		if err := rows.Scan(&t.ID, &t.Rank, &t.Text); err != nil {
			return nil, fmt.Errorf("scan tangent: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetTangent inserts a tangent (ID zero) or replaces an existing one.
func (s *Store) SetTangent(ctx context.Context, t domain.Tangent) (int64, error) {
	if t.ID == 0 {
		var id int64
		err := s.pool.QueryRow(ctx, `
			INSERT INTO tangents (rank, text) VALUES ($1, $2) RETURNING id`,
			t.Rank, t.Text,
		).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("insert tangent: %w", err)
		}
		return id, nil
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO tangents (id, rank, text) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET rank = EXCLUDED.rank, text = EXCLUDED.text`,
		t.ID, t.Rank, t.Text,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert tangent: %w", err)
	}
	return t.ID, nil
}

// DeleteTangent removes a tangent by ID.
func (s *Store) DeleteTangent(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM tangents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete tangent: %w", err)
	}
	return nil
}

// Seen returns the IDs of all tangents the user has received.
func (s *Store) Seen(ctx context.Context, userID string) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT tangent_id FROM tangent_seen WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("select seen: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan seen: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// MarkSeen records a tangent delivery.
func (s *Store) MarkSeen(ctx context.Context, tangentID int64, userID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tangent_seen (user_id, tangent_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		userID, tangentID,
	)
	if err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}

// ClearUser forgets every delivery for a user.
func (s *Store) ClearUser(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM tangent_seen WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear seen: %w", err)
	}
	return nil
}

// GetSession retrieves a session snapshot.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	var state domain.SessionState
	var raw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT exchange, data FROM sessions WHERE session_id = $1`,
		sessionID,
	).Scan(&state.Exchange, &raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("select session: %w", err)
	}
	// The exchange column is authoritative; a data payload that is not a
	// flat string map degrades to empty instead of failing the turn.
	if err := json.Unmarshal(raw, &state.Data); err != nil {
		state.Data = make(map[string]string)
	}
	if state.Data == nil {
		state.Data = make(map[string]string)
	}
	return &state, nil
}

// SetSession inserts or replaces a session snapshot.
func (s *Store) SetSession(ctx context.Context, sessionID string, state *domain.SessionState) error {
	raw, err := json.Marshal(state.Data)
	if err != nil {
		return fmt.Errorf("marshal session data: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, exchange, data) VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET exchange = EXCLUDED.exchange, data = EXCLUDED.data`,
		sessionID, state.Exchange, raw,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// DeleteSession removes a session.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ListSessions returns the IDs of all known sessions.
func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT session_id FROM sessions ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Append adds one transcript entry. The timestamp is clamped against the
// session's newest entry so transcripts never run backwards.
func (s *Store) Append(ctx context.Context, entry domain.LogEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chatlog (id, session_id, message, from_user, at)
		VALUES ($1, $2, $3, $4, GREATEST(
			$5::timestamptz,
			COALESCE((SELECT max(at) FROM chatlog WHERE session_id = $2), $5::timestamptz)
		))`,
		entry.ID, entry.SessionID, entry.Message, entry.FromUser, entry.At,
	)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

// History returns a session's transcript in append order.
func (s *Store) History(ctx context.Context, sessionID string) ([]domain.LogEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, message, from_user, at
		FROM chatlog WHERE session_id = $1 ORDER BY seq`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("select transcript: %w", err)
	}
	defer rows.Close()

	var out []domain.LogEntry
	for rows.Next() {
		var e domain.LogEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Message, &e.FromUser, &e.At); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Sessions returns the distinct session IDs that have ever conversed.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT session_id FROM chatlog ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("list transcript sessions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// HasConversed reports whether a session has any transcript.
func (s *Store) HasConversed(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM chatlog WHERE session_id = $1)`,
		sessionID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check transcript: %w", err)
	}
	return exists, nil
}
