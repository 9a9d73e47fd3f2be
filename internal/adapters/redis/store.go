// Package redis provides Redis-backed adapters for the hot,
// per-conversation state: session snapshots, tangent rotation tracking,
// and the transcript log. Graph content (exchanges, keywords, tangents)
// is cold admin data and lives in Postgres or memory instead.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/parley/pkg/domain"
)

// Store implements ports.SessionStore, ports.SeenTracker, and
// ports.ConversationLog on one Redis client.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for session snapshots. Zero means no
// expiration. Transcripts never expire regardless.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "parley:",
		ttl:    0,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) sessionKey(sessionID string) string {
	return s.prefix + "session:" + sessionID
}

func (s *Store) sessionIndexKey() string {
	return s.prefix + "session:index"
}

func (s *Store) seenKey(userID string) string {
	return s.prefix + "seen:" + userID
}

func (s *Store) logKey(sessionID string) string {
	return s.prefix + "log:" + sessionID
}

func (s *Store) logIndexKey() string {
	return s.prefix + "log:index"
}

// Get retrieves a session snapshot.
func (s *Store) Get(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	val, err := s.client.Get(ctx, s.sessionKey(sessionID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session from redis: %w", err)
	}

	// A corrupt value degrades to a usable state instead of wedging the
	// session on every turn.
	return domain.DecodeSessionState([]byte(val)), nil
}

// Set persists a session snapshot and indexes it for listing.
func (s *Store) Set(ctx context.Context, sessionID string, state *domain.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.sessionKey(sessionID), data, s.ttl)

	// Index score is the expiry time so List can prune lazily.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, s.sessionIndexKey(), backend.Z{
		Score:  score,
		Member: sessionID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session to redis: %w", err)
	}
	return nil
}

// Delete removes a session snapshot.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.sessionKey(sessionID))
	pipe.ZRem(ctx, s.sessionIndexKey(), sessionID)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns the IDs of live sessions, pruning expired index entries.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.sessionIndexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	sessions, err := s.client.ZRange(ctx, s.sessionIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Seen returns the IDs of all tangents the user has received.
func (s *Store) Seen(ctx context.Context, userID string) ([]int64, error) {
	members, err := s.client.SMembers(ctx, s.seenKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read seen set: %w", err)
	}
	out := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt seen member %q: %w", m, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// MarkSeen records a tangent delivery.
func (s *Store) MarkSeen(ctx context.Context, tangentID int64, userID string) error {
	if err := s.client.SAdd(ctx, s.seenKey(userID), strconv.FormatInt(tangentID, 10)).Err(); err != nil {
		return fmt.Errorf("failed to mark tangent seen: %w", err)
	}
	return nil
}

// ClearUser forgets every delivery for a user.
func (s *Store) ClearUser(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.seenKey(userID)).Err()
}

// Append adds one transcript entry. The entry timestamp is clamped so it
// never precedes the last entry of the same session.
func (s *Store) Append(ctx context.Context, entry domain.LogEntry) error {
	last, err := s.client.LIndex(ctx, s.logKey(entry.SessionID), -1).Result()
	if err != nil && err != backend.Nil {
		return fmt.Errorf("failed to read transcript tail: %w", err)
	}
	if err == nil {
		var prev domain.LogEntry
		if jsonErr := json.Unmarshal([]byte(last), &prev); jsonErr == nil && entry.At.Before(prev.At) {
			entry.At = prev.At
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, s.logKey(entry.SessionID), data)
	pipe.SAdd(ctx, s.logIndexKey(), entry.SessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}
	return nil
}

// History returns a session's transcript in append order.
func (s *Store) History(ctx context.Context, sessionID string) ([]domain.LogEntry, error) {
	raw, err := s.client.LRange(ctx, s.logKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	out := make([]domain.LogEntry, 0, len(raw))
	for _, item := range raw {
		var entry domain.LogEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("corrupt log entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, nil
}

// Sessions returns the distinct session IDs that have ever conversed.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.logIndexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list transcript sessions: %w", err)
	}
	return ids, nil
}

// HasConversed reports whether a session has any transcript.
func (s *Store) HasConversed(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.LLen(ctx, s.logKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check transcript: %w", err)
	}
	return n > 0, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
