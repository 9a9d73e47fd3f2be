// Package memory provides in-memory store adapters. They back the
// interactive chat loop and tests; nothing survives a restart.
// All types are safe for concurrent use.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// NewStores bundles a full set of fresh in-memory adapters.
func NewStores() ports.Stores {
	return ports.Stores{
		Prompts:  NewPrompts(),
		Keywords: NewKeywords(),
		Tangents: NewTangents(),
		Seen:     NewSeen(),
		Sessions: NewSessions(),
		Log:      NewLog(),
	}
}

// Prompts implements ports.PromptStore.
type Prompts struct {
	mu   sync.RWMutex
	rows map[string]domain.Exchange
}

// NewPrompts creates an empty prompt store.
func NewPrompts() *Prompts {
	return &Prompts{rows: make(map[string]domain.Exchange)}
}

func (p *Prompts) Get(ctx context.Context, name string) (domain.Exchange, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ex, ok := p.rows[name]
	if !ok {
		return domain.Exchange{}, domain.ErrExchangeNotFound
	}
	return ex, nil
}

func (p *Prompts) Set(ctx context.Context, ex domain.Exchange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rows[ex.Name] = ex
	return nil
}

func (p *Prompts) Delete(ctx context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.rows, name)
	return nil
}

func (p *Prompts) List(ctx context.Context) ([]domain.Exchange, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.Exchange, 0, len(p.rows))
	for _, ex := range p.rows {
		out = append(out, ex)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Keywords implements ports.KeywordStore.
type Keywords struct {
	mu   sync.RWMutex
	rows map[string]map[string]string
}

// NewKeywords creates an empty keyword store.
func NewKeywords() *Keywords {
	return &Keywords{rows: make(map[string]map[string]string)}
}

func (k *Keywords) Mapping(ctx context.Context, exchange string) (map[string]string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make(map[string]string, len(k.rows[exchange]))
	for kw, dest := range k.rows[exchange] {
		out[kw] = dest
	}
	return out, nil
}

func (k *Keywords) SetMany(ctx context.Context, exchange string, mapping map[string]string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	row, ok := k.rows[exchange]
	if !ok {
		row = make(map[string]string, len(mapping))
		k.rows[exchange] = row
	}
	for kw, dest := range mapping {
		row[kw] = dest
	}
	return nil
}

func (k *Keywords) Delete(ctx context.Context, exchange string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.rows, exchange)
	return nil
}

// Tangents implements ports.TangentStore.
type Tangents struct {
	mu     sync.RWMutex
	rows   map[int64]domain.Tangent
	nextID int64
}

// NewTangents creates an empty tangent store.
func NewTangents() *Tangents {
	return &Tangents{rows: make(map[int64]domain.Tangent), nextID: 1}
}

func (t *Tangents) List(ctx context.Context) ([]domain.Tangent, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.Tangent, 0, len(t.rows))
	for _, tg := range t.rows {
		out = append(out, tg)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *Tangents) Set(ctx context.Context, tg domain.Tangent) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tg.ID == 0 {
		tg.ID = t.nextID
		t.nextID++
	} else if tg.ID >= t.nextID {
		t.nextID = tg.ID + 1
	}
	t.rows[tg.ID] = tg
	return tg.ID, nil
}

func (t *Tangents) Delete(ctx context.Context, id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rows, id)
	return nil
}

// Seen implements ports.SeenTracker.
type Seen struct {
	mu   sync.RWMutex
	rows map[string]map[int64]struct{}
}

// NewSeen creates an empty seen tracker.
func NewSeen() *Seen {
	return &Seen{rows: make(map[string]map[int64]struct{})}
}

func (s *Seen) Seen(ctx context.Context, userID string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int64, 0, len(s.rows[userID]))
	for id := range s.rows[userID] {
		out = append(out, id)
	}
	return out, nil
}

func (s *Seen) MarkSeen(ctx context.Context, tangentID int64, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.rows[userID]
	if !ok {
		set = make(map[int64]struct{})
		s.rows[userID] = set
	}
	set[tangentID] = struct{}{}
	return nil
}

func (s *Seen) ClearUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, userID)
	return nil
}

// Sessions implements ports.SessionStore.
type Sessions struct {
	mu   sync.RWMutex
	rows map[string]*domain.SessionState
}

// NewSessions creates an empty session store.
func NewSessions() *Sessions {
	return &Sessions{rows: make(map[string]*domain.SessionState)}
}

func (s *Sessions) Get(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.rows[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	// Copy on read so callers cannot mutate store state by pointer.
	return state.Clone(), nil
}

func (s *Sessions) Set(ctx context.Context, sessionID string, state *domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[sessionID] = state.Clone()
	return nil
}

func (s *Sessions) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, sessionID)
	return nil
}

func (s *Sessions) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.rows))
	for id := range s.rows {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Log implements ports.ConversationLog.
type Log struct {
	mu   sync.RWMutex
	rows map[string][]domain.LogEntry
}

// NewLog creates an empty conversation log.
func NewLog() *Log {
	return &Log{rows: make(map[string][]domain.LogEntry)}
}

func (l *Log) Append(ctx context.Context, entry domain.LogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	history := l.rows[entry.SessionID]
	// Clamp so timestamps never regress within a session.
	if n := len(history); n > 0 && entry.At.Before(history[n-1].At) {
		entry.At = history[n-1].At
	}
	l.rows[entry.SessionID] = append(history, entry)
	return nil
}

func (l *Log) History(ctx context.Context, sessionID string) ([]domain.LogEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.LogEntry, len(l.rows[sessionID]))
	copy(out, l.rows[sessionID])
	return out, nil
}

func (l *Log) Sessions(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.rows))
	for id := range l.rows {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (l *Log) HasConversed(ctx context.Context, sessionID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rows[sessionID]) > 0, nil
}
