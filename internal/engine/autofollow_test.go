package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/internal/adapters/memory"
	"github.com/aretw0/parley/pkg/domain"
)

func TestConverseAutofollowsThroughTangents(t *testing.T) {
	stores := memory.NewStores()
	seedGraph(t, stores,
		[]domain.Exchange{
			{Name: "start", Prompt: ""},
			{Name: "news", Prompt: "", Type: domain.TypeTangent, Default: "after"},
			{Name: "after", Prompt: "That's all for now."},
		},
		map[string]map[string]string{"start": {"news": "news"}},
	)
	ctx := context.Background()
	_, err := stores.Tangents.Set(ctx, domain.Tangent{Rank: 1, Text: "Did you know X"})
	require.NoError(t, err)

	sink := &recordingDeliverer{}
	e := New(stores, WithDeliverer(sink))

	reply, ok, err := e.Converse(ctx, "s1", "any news?")
	require.NoError(t, err)
	require.True(t, ok)

	// The tangent went out-of-band; the caller gets the follow-up.
	assert.Equal(t, []string{"Did you know X"}, sink.delivered())
	assert.Equal(t, "That's all for now.", reply)

	state, err := stores.Sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "after", state.Exchange)
}

func TestConverseAutofollowSelfLoopDrainsRotation(t *testing.T) {
	stores := memory.NewStores()
	seedGraph(t, stores,
		[]domain.Exchange{
			{Name: "start", Prompt: ""},
			{Name: "news", Prompt: "", Type: domain.TypeTangent, Default: "news"},
		},
		map[string]map[string]string{"start": {"news": "news"}},
	)
	ctx := context.Background()
	for i, text := range []string{"one", "two", "three"} {
		_, err := stores.Tangents.Set(ctx, domain.Tangent{Rank: i + 1, Text: text})
		require.NoError(t, err)
	}

	sink := &recordingDeliverer{}
	e := New(stores, WithDeliverer(sink))

	_, ok, err := e.Converse(ctx, "s1", "news please")
	require.NoError(t, err)

	// All three tangents are pushed in rank order; the exhausted
	// rotation ends the conversation in silence.
	assert.False(t, ok)
	assert.Equal(t, []string{"one", "two", "three"}, sink.delivered())

	state, err := stores.Sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, state.Queued())

	// Parked for good: further messages stay silent.
	_, ok, err = e.Converse(ctx, "s1", "more?")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, sink.delivered(), 3)
}

func TestConverseAutofollowLogsEveryResponse(t *testing.T) {
	stores := memory.NewStores()
	seedGraph(t, stores,
		[]domain.Exchange{
			{Name: "start", Prompt: ""},
			{Name: "news", Prompt: "", Type: domain.TypeTangent, Default: "after"},
			{Name: "after", Prompt: "Done."},
		},
		map[string]map[string]string{"start": {"news": "news"}},
	)
	ctx := context.Background()
	_, err := stores.Tangents.Set(ctx, domain.Tangent{Rank: 1, Text: "X"})
	require.NoError(t, err)

	e := New(stores, WithDeliverer(&recordingDeliverer{}))

	_, ok, err := e.Converse(ctx, "s1", "news")
	require.NoError(t, err)
	require.True(t, ok)

	history, err := stores.Log.History(ctx, "s1")
	require.NoError(t, err)

	var bot, user []string
	for _, entry := range history {
		if entry.FromUser {
			user = append(user, entry.Message)
		} else {
			bot = append(bot, entry.Message)
		}
	}
	// The pushed tangent and the final reply are both logged, as is the
	// synthetic empty inbound of the autofollow spin.
	assert.Equal(t, []string{"X", "Done."}, bot)
	assert.Equal(t, []string{"news", ""}, user)
}

func TestAutofollowWithoutDelivererStops(t *testing.T) {
	stores := memory.NewStores()
	seedGraph(t, stores,
		[]domain.Exchange{
			{Name: "start", Prompt: ""},
			{Name: "news", Prompt: "", Type: domain.TypeTangent, Default: "after"},
			{Name: "after", Prompt: "unreachable"},
		},
		map[string]map[string]string{"start": {"news": "news"}},
	)
	ctx := context.Background()
	_, err := stores.Tangents.Set(ctx, domain.Tangent{Rank: 1, Text: "X"})
	require.NoError(t, err)

	e := New(stores) // no deliverer

	reply, ok, err := e.Converse(ctx, "s1", "news")
	require.NoError(t, err)
	require.True(t, ok)
	// Without a push transport the first response is returned directly.
	assert.Equal(t, "X", reply)
}
