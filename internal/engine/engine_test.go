package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/internal/adapters/memory"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// recordingDeliverer captures out-of-band pushes.
type recordingDeliverer struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingDeliverer) Deliver(ctx context.Context, sessionID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, text)
	return nil
}

func (r *recordingDeliverer) delivered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func seedGraph(t *testing.T, stores ports.Stores, exchanges []domain.Exchange, keywords map[string]map[string]string) {
	t.Helper()
	ctx := context.Background()
	for _, ex := range exchanges {
		require.NoError(t, stores.Prompts.Set(ctx, ex))
	}
	for name, kw := range keywords {
		require.NoError(t, stores.Keywords.SetMany(ctx, name, kw))
	}
}

func TestAdvanceKeywordTransition(t *testing.T) {
	stores := memory.NewStores()
	seedGraph(t, stores,
		[]domain.Exchange{
			{Name: "start", Prompt: "Welcome", Default: "fallback"},
			{Name: "greet", Prompt: "Hello {{name}}!"},
			{Name: "fallback", Prompt: "Sorry?"},
		},
		map[string]map[string]string{
			"start": {"hi": "greet"},
		},
	)
	e := New(stores)
	ctx := context.Background()

	reply, ok, err := e.Advance(ctx, "s1", "hi there")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Hello !", reply, "missing data keys render empty")

	state, err := stores.Sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "greet", state.Exchange)

	// Both sides of the turn are in the transcript.
	history, err := stores.Log.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hi there", history[0].Message)
	assert.True(t, history[0].FromUser)
	assert.Equal(t, "Hello !", history[1].Message)
	assert.False(t, history[1].FromUser)
}

func TestAdvanceFirstTokenMatchWins(t *testing.T) {
	stores := memory.NewStores()
	seedGraph(t, stores,
		[]domain.Exchange{
			{Name: "start", Prompt: ""},
			{Name: "a", Prompt: "went a"},
			{Name: "b", Prompt: "went b"},
		},
		map[string]map[string]string{
			"start": {"apple": "a", "banana": "b"},
		},
	)
	e := New(stores)

	// "banana" comes first in the message, so it wins even though
	// "apple" is also present.
	reply, ok, err := e.Advance(context.Background(), "s1", "banana before apple")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "went b", reply)
}

func TestAdvanceDefaultFallback(t *testing.T) {
	stores := memory.NewStores()
	seedGraph(t, stores,
		[]domain.Exchange{
			{Name: "start", Prompt: "", Default: "fallback"},
			{Name: "fallback", Prompt: "Sorry, what?"},
		},
		map[string]map[string]string{
			"start": {"hi": "greet"},
		},
	)
	e := New(stores)
	ctx := context.Background()

	reply, ok, err := e.Advance(ctx, "s1", "gibberish")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Sorry, what?", reply)

	state, err := stores.Sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "fallback", state.Exchange)
}

func TestAdvanceNoMatchNoDefaultIsSilence(t *testing.T) {
	stores := memory.NewStores()
	seedGraph(t, stores,
		[]domain.Exchange{{Name: "start", Prompt: ""}},
		map[string]map[string]string{"start": {"hi": "greet"}},
	)
	e := New(stores)
	ctx := context.Background()

	_, ok, err := e.Advance(ctx, "s1", "gibberish")
	require.NoError(t, err)
	assert.False(t, ok)

	// Session state is untouched: no row was ever created.
	_, err = stores.Sessions.Get(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// The inbound message is still logged.
	history, err := stores.Log.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].FromUser)
}

func TestAdvanceQuestionToken(t *testing.T) {
	stores := memory.NewStores()
	seedGraph(t, stores,
		[]domain.Exchange{
			{Name: "start", Prompt: "", Default: "fallback"},
			{Name: "faq", Prompt: "Good question."},
			{Name: "fallback", Prompt: "Hm."},
		},
		map[string]map[string]string{
			"start": {"question": "faq"},
		},
	)
	e := New(stores)

	reply, ok, err := e.Advance(context.Background(), "s1", "why is the sky blue?")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Good question.", reply)
}

func TestAdvanceRendersSessionData(t *testing.T) {
	stores := memory.NewStores()
	seedGraph(t, stores,
		[]domain.Exchange{
			{Name: "start", Prompt: ""},
			{Name: "greet", Prompt: "Hello {{ name }}!"},
		},
		map[string]map[string]string{"start": {"hi": "greet"}},
	)
	ctx := context.Background()
	require.NoError(t, stores.Sessions.Set(ctx, "s1", &domain.SessionState{
		Exchange: "start",
		Data:     map[string]string{"name": "Ada"},
	}))

	e := New(stores)
	reply, ok, err := e.Advance(ctx, "s1", "hi")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Hello Ada!", reply)
}

func TestAdvanceDanglingDestinationIsSilence(t *testing.T) {
	stores := memory.NewStores()
	seedGraph(t, stores,
		[]domain.Exchange{{Name: "start", Prompt: "", Default: "ghost"}},
		nil,
	)
	e := New(stores)
	ctx := context.Background()

	_, ok, err := e.Advance(ctx, "s1", "anything")
	require.NoError(t, err, "a dangling reference must not crash the turn")
	assert.False(t, ok)
}

func TestAdvanceUndefinedCurrentExchangeStillMatchesKeywords(t *testing.T) {
	// The session sits on an exchange with no prompt row; its keyword
	// rows still drive transitions.
	stores := memory.NewStores()
	seedGraph(t, stores,
		[]domain.Exchange{{Name: "greet", Prompt: "Hi!"}},
		map[string]map[string]string{"start": {"hi": "greet"}},
	)
	e := New(stores)

	reply, ok, err := e.Advance(context.Background(), "s1", "hi")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Hi!", reply)
}

func TestJumpMovesSessionAndReturnsPrompt(t *testing.T) {
	stores := memory.NewStores()
	seedGraph(t, stores,
		[]domain.Exchange{
			{Name: "start", Prompt: ""},
			{Name: "promo", Prompt: "Big news, {{name}}!"},
		},
		nil,
	)
	ctx := context.Background()
	require.NoError(t, stores.Sessions.Set(ctx, "s1", &domain.SessionState{
		Exchange: "start",
		Data:     map[string]string{"name": "Ada"},
	}))

	e := New(stores)
	reply, ok, err := e.Jump(ctx, "s1", "promo")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Big news, Ada!", reply)

	state, err := stores.Sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "promo", state.Exchange)

	history, err := stores.Log.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].FromUser)
}

func TestClearSessionResetsStateAndRotation(t *testing.T) {
	stores := memory.NewStores()
	ctx := context.Background()
	require.NoError(t, stores.Sessions.Set(ctx, "s1", &domain.SessionState{Exchange: "deep", Data: map[string]string{}}))
	id, err := stores.Tangents.Set(ctx, domain.Tangent{Rank: 1, Text: "X"})
	require.NoError(t, err)
	require.NoError(t, stores.Seen.MarkSeen(ctx, id, "s1"))

	e := New(stores)
	require.NoError(t, e.ClearSession(ctx, "s1"))

	_, err = stores.Sessions.Get(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	seen, err := stores.Seen.Seen(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, seen)
}

func TestConverseSerializesConcurrentTurns(t *testing.T) {
	stores := memory.NewStores()
	seedGraph(t, stores,
		[]domain.Exchange{
			{Name: "start", Prompt: "", Default: "start"},
		},
		nil,
	)
	e := New(stores)
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := e.Converse(ctx, "s1", "ping")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Every inbound and every reply made it into the transcript intact.
	history, err := stores.Log.History(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, history, 2*n)
}
