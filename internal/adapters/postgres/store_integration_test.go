//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/pkg/ports/tests"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, s.Migrate(ctx))
	_, err = s.pool.Exec(ctx, `
		TRUNCATE exchanges, keywords, tangents, tangent_seen, sessions, chatlog`)
	require.NoError(t, err)
	return s
}

func TestIntegration_PromptStoreContract(t *testing.T) {
	s := setupTestStore(t)
	tests.RunPromptStoreContract(t, s.Stores().Prompts)
}

func TestIntegration_KeywordStoreContract(t *testing.T) {
	s := setupTestStore(t)
	tests.RunKeywordStoreContract(t, s.Stores().Keywords)
}

func TestIntegration_TangentContract(t *testing.T) {
	s := setupTestStore(t)
	stores := s.Stores()
	tests.RunTangentContract(t, stores.Tangents, stores.Seen)
}

func TestIntegration_SessionStoreContract(t *testing.T) {
	s := setupTestStore(t)
	tests.RunSessionStoreContract(t, s.Stores().Sessions)
}

func TestIntegration_ConversationLogContract(t *testing.T) {
	s := setupTestStore(t)
	tests.RunConversationLogContract(t, s.Stores().Log)
}

func TestIntegration_SessionDegradesCorruptData(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// Valid JSONB that is not a flat string map.
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, exchange, data) VALUES ('s1', 'greet', '123'::jsonb)`)
	require.NoError(t, err)

	state, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "greet", state.Exchange)
	require.Empty(t, state.Data)
}
