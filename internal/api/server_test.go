package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/api"
	"github.com/aretw0/parley/pkg/domain"
)

func newTestServer(t *testing.T, token string) (*api.Server, *parley.Bot) {
	t.Helper()
	bot, err := parley.New()
	require.NoError(t, err)

	ctx := context.Background()
	stores := bot.Stores()
	require.NoError(t, stores.Prompts.Set(ctx, domain.Exchange{Name: "start", Prompt: "", Default: "fallback", Rank: 1}))
	require.NoError(t, stores.Prompts.Set(ctx, domain.Exchange{Name: "greet", Prompt: "Hello {{name}}!", Rank: 2}))
	require.NoError(t, stores.Prompts.Set(ctx, domain.Exchange{Name: "fallback", Prompt: "Come again?", Rank: 3}))
	require.NoError(t, stores.Keywords.SetMany(ctx, "start", map[string]string{"hi": "greet"}))

	return api.NewServer(bot, token, nil), bot
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, "")
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChat(t *testing.T) {
	srv, _ := newTestServer(t, "")

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/chat", "", api.ChatRequest{
		SessionID: "s1", Message: "hi there",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Hello !", resp.Reply)
	assert.False(t, resp.Silent)
}

func TestChatSilence(t *testing.T) {
	srv, bot := newTestServer(t, "")
	ctx := context.Background()

	// Strip the fallback so an unmatched message yields silence.
	require.NoError(t, bot.Stores().Prompts.Set(ctx, domain.Exchange{Name: "start"}))

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/chat", "", api.ChatRequest{
		SessionID: "s1", Message: "gibberish",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Silent)
	assert.Empty(t, resp.Reply)
}

func TestChatRequiresSessionID(t *testing.T) {
	srv, _ := newTestServer(t, "")
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/chat", "", api.ChatRequest{Message: "hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRequiresToken(t *testing.T) {
	srv, _ := newTestServer(t, "sekrit")

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/exchanges", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/exchanges", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/exchanges", "sekrit", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExchangeCRUD(t *testing.T) {
	srv, _ := newTestServer(t, "")
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPut, "/api/v1/exchanges/promo", "", api.ExchangeRequest{
		Prompt:   "Big news!",
		Default:  "start",
		Rank:     9,
		Keywords: map[string]string{"more": "promo"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/exchanges/promo", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got api.ExchangeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "Big news!", got.Prompt)
	assert.Equal(t, domain.TypeStandard, got.Type)
	assert.Equal(t, map[string]string{"more": "promo"}, got.Keywords)

	rec = doJSON(t, h, http.MethodDelete, "/api/v1/exchanges/promo", "", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/exchanges/promo", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTangentEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, "")
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/v1/tangents", "", domain.Tangent{Rank: 1, Text: "Did you know X"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.Tangent
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.NotZero(t, created.ID)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/tangents", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []domain.Tangent
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&all))
	require.Len(t, all, 1)

	rec = doJSON(t, h, http.MethodDelete, "/api/v1/tangents/1", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSessionAdmin(t *testing.T) {
	srv, _ := newTestServer(t, "")
	h := srv.Handler()

	// Create a session by conversing.
	rec := doJSON(t, h, http.MethodPost, "/chat", "", api.ChatRequest{SessionID: "s1", Message: "hi"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/sessions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ids []string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ids))
	assert.Contains(t, ids, "s1")

	rec = doJSON(t, h, http.MethodGet, "/api/v1/sessions/s1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sess api.SessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sess))
	assert.Equal(t, "greet", sess.Exchange)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/sessions/s1/transcript", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var transcript []api.TranscriptEntry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&transcript))
	require.Len(t, transcript, 2)
	assert.True(t, transcript[0].FromUser)
	assert.False(t, transcript[1].FromUser)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/sessions/s1/jump", "", api.JumpRequest{Exchange: "fallback"})
	require.Equal(t, http.StatusOK, rec.Code)
	var jumped api.ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&jumped))
	assert.Equal(t, "Come again?", jumped.Reply)

	rec = doJSON(t, h, http.MethodDelete, "/api/v1/sessions/s1", "", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/sessions/s1", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
