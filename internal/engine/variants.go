package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/parley/internal/names"
	"github.com/aretw0/parley/internal/prompt"
	"github.com/aretw0/parley/internal/textutil"
	"github.com/aretw0/parley/pkg/domain"
)

// Branch keywords of a name-capture exchange. The admin surface stores
// these two pseudo-keywords instead of user-typed ones.
const (
	KeywordYesName = "yes_name"
	KeywordNoName  = "no_name"
)

// nameTurn scans the message for a known first name. On a hit the
// title-cased name lands in the session data and the yes_name branch is
// taken; otherwise no_name. The destination's prompt is rendered
// directly, without the variant prompt-fetch path.
func (e *Engine) nameTurn(ctx context.Context, sessionID string, state *domain.SessionState, message string) (string, bool, error) {
	mapping, err := e.stores.Keywords.Mapping(ctx, state.Exchange)
	if err != nil {
		return "", false, fmt.Errorf("load keywords for %q: %w", state.Exchange, err)
	}

	dest := mapping[KeywordNoName]
	if name := e.findName(message); name != "" {
		state.Data[domain.KeyName] = name
		dest = mapping[KeywordYesName]
	}
	if dest == "" {
		e.metrics.ConfigErrors.Inc()
		e.logger.Error("name exchange missing branch keyword",
			"session_id", sessionID, "exchange", state.Exchange)
		return "", false, nil
	}

	state.Exchange = dest
	if err := e.stores.Sessions.Set(ctx, sessionID, state); err != nil {
		return "", false, fmt.Errorf("persist session: %w", err)
	}

	ex, err := e.stores.Prompts.Get(ctx, dest)
	if errors.Is(err, domain.ErrExchangeNotFound) {
		e.metrics.ConfigErrors.Inc()
		e.logger.Error("dangling exchange reference",
			"session_id", sessionID, "exchange", dest)
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load exchange %q: %w", dest, err)
	}
	return prompt.Render(ex.Prompt, state.Data), true, nil
}

// findName returns the display form of the first token that appears in
// the name dictionary, or empty. No question-token synthesis here.
func (e *Engine) findName(message string) string {
	for _, word := range textutil.Words(message) {
		if e.names.Contains(word) {
			return names.Title(word)
		}
	}
	return ""
}

// queueTurn parks the session: queued flag on, same exchange, silence.
func (e *Engine) queueTurn(ctx context.Context, sessionID string, state *domain.SessionState, message string) (string, bool, error) {
	state.SetQueued(true)
	if err := e.stores.Sessions.Set(ctx, sessionID, state); err != nil {
		return "", false, fmt.Errorf("persist session: %w", err)
	}
	return "", false, nil
}

// queuePrompt handles *entering* a queue exchange from elsewhere.
// Re-entrant and idempotent: sets the flag, yields silence.
func (e *Engine) queuePrompt(ctx context.Context, sessionID string) (string, bool, error) {
	if err := e.markQueued(ctx, sessionID); err != nil {
		return "", false, err
	}
	return "", false, nil
}

// tangentTurn advances past a tangent exchange on a user message: if the
// session is queued we stay parked, otherwise follow the default
// successor and fetch its entry response.
func (e *Engine) tangentTurn(ctx context.Context, sessionID string, state *domain.SessionState, message string) (string, bool, error) {
	if state.Queued() {
		return "", false, nil
	}

	ex, err := e.currentExchange(ctx, state.Exchange)
	if err != nil {
		return "", false, err
	}
	if ex.Default == "" {
		return "", false, nil
	}

	state.Exchange = ex.Default
	if err := e.stores.Sessions.Set(ctx, sessionID, state); err != nil {
		return "", false, fmt.Errorf("persist session: %w", err)
	}
	return e.getPrompt(ctx, sessionID, ex.Default, state.Data)
}

// tangentPrompt delivers the next tangent of the user's rotation. When
// the rotation is exhausted the session degrades into the queued hold
// state.
func (e *Engine) tangentPrompt(ctx context.Context, sessionID string) (string, bool, error) {
	t, err := e.nextTangent(ctx, sessionID)
	if errors.Is(err, domain.ErrNoTangents) {
		e.logger.Info("tangent rotation exhausted; queueing session", "session_id", sessionID)
		if err := e.markQueued(ctx, sessionID); err != nil {
			return "", false, err
		}
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	e.metrics.TangentsDelivered.Inc()
	return t.Text, true, nil
}

// nextTangent picks the least-rank tangent the user hasn't seen and
// marks it seen. Returns domain.ErrNoTangents once the rotation is
// exhausted (or was empty to begin with).
func (e *Engine) nextTangent(ctx context.Context, sessionID string) (domain.Tangent, error) {
	all, err := e.stores.Tangents.List(ctx)
	if err != nil {
		return domain.Tangent{}, fmt.Errorf("list tangents: %w", err)
	}
	seenIDs, err := e.stores.Seen.Seen(ctx, sessionID)
	if err != nil {
		return domain.Tangent{}, fmt.Errorf("load seen tangents: %w", err)
	}
	seen := make(map[int64]bool, len(seenIDs))
	for _, id := range seenIDs {
		seen[id] = true
	}

	for _, t := range all {
		if seen[t.ID] {
			continue
		}
		if err := e.stores.Seen.MarkSeen(ctx, t.ID, sessionID); err != nil {
			return domain.Tangent{}, fmt.Errorf("mark tangent seen: %w", err)
		}
		return t, nil
	}
	return domain.Tangent{}, domain.ErrNoTangents
}

// markQueued loads the session, sets the queued flag, and persists,
// keeping the current exchange.
func (e *Engine) markQueued(ctx context.Context, sessionID string) error {
	state, err := e.loadState(ctx, sessionID)
	if err != nil {
		return err
	}
	state.SetQueued(true)
	if err := e.stores.Sessions.Set(ctx, sessionID, state); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}
