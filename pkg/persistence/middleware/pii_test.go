package middleware_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/internal/adapters/memory"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/persistence/middleware"
)

func TestPIIMasksMatchingKeys(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStores().Sessions
	mask, err := middleware.NewPIIMiddleware([]string{"(?i)phone", "(?i)email"})
	require.NoError(t, err)
	store := mask(backend)

	state := &domain.SessionState{
		Exchange: "greet",
		Data: map[string]string{
			"name":         "Ada",
			"phone_number": "+15550100",
			"Email":        "ada@example.com",
		},
	}
	require.NoError(t, store.Set(ctx, "s1", state))

	raw, err := backend.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", raw.Data["name"])
	assert.Equal(t, "***", raw.Data["phone_number"])
	assert.Equal(t, "***", raw.Data["Email"])

	// The engine's in-memory state is never touched.
	assert.Equal(t, "+15550100", state.Data["phone_number"])
}

func TestRejectsInvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"(unclosed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(unclosed")
}

func TestChainMasksThenEncrypts(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStores().Sessions
	mask, err := middleware.NewPIIMiddleware([]string{"phone"})
	require.NoError(t, err)
	store := middleware.Chain(backend,
		mask,
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: testKey(7)}),
	)

	require.NoError(t, store.Set(ctx, "s1", &domain.SessionState{
		Exchange: "start",
		Data:     map[string]string{"phone": "+15550100", "name": "Ada"},
	}))

	raw, err := backend.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Contains(t, raw.Data, "__encrypted__")

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "***", got.Data["phone"], "masking happens before encryption")
	assert.Equal(t, "Ada", got.Data["name"])
}
