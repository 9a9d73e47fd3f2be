package validator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/internal/adapters/memory"
	"github.com/aretw0/parley/internal/validator"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

func seed(t *testing.T, exchanges []domain.Exchange, keywords map[string]map[string]string) ports.Stores {
	t.Helper()
	stores := memory.NewStores()
	ctx := context.Background()
	for _, ex := range exchanges {
		require.NoError(t, stores.Prompts.Set(ctx, ex))
	}
	for name, kw := range keywords {
		require.NoError(t, stores.Keywords.SetMany(ctx, name, kw))
	}
	return stores
}

func TestValidGraphHasNoErrors(t *testing.T) {
	stores := seed(t,
		[]domain.Exchange{
			{Name: "start", Default: "fallback"},
			{Name: "greet"},
			{Name: "fallback"},
		},
		map[string]map[string]string{"start": {"hi": "greet"}},
	)

	issues, err := validator.ValidateGraph(context.Background(), stores)
	require.NoError(t, err)
	assert.NoError(t, validator.Summarize(issues))
}

func TestDanglingReferencesAreErrors(t *testing.T) {
	stores := seed(t,
		[]domain.Exchange{{Name: "start", Default: "ghost"}},
		map[string]map[string]string{"start": {"hi": "phantom"}},
	)

	issues, err := validator.ValidateGraph(context.Background(), stores)
	require.NoError(t, err)

	summary := validator.Summarize(issues)
	require.Error(t, summary)
	assert.Contains(t, summary.Error(), "ghost")
	assert.Contains(t, summary.Error(), "phantom")
}

func TestNameExchangeNeedsBranches(t *testing.T) {
	stores := seed(t,
		[]domain.Exchange{
			{Name: "start", Type: domain.TypeName},
			{Name: "yes"},
		},
		map[string]map[string]string{"start": {"yes_name": "yes"}},
	)

	issues, err := validator.ValidateGraph(context.Background(), stores)
	require.NoError(t, err)

	summary := validator.Summarize(issues)
	require.Error(t, summary)
	assert.Contains(t, summary.Error(), "no_name")
}

func TestUnreachableExchangeIsWarningOnly(t *testing.T) {
	stores := seed(t,
		[]domain.Exchange{
			{Name: "start"},
			{Name: "island"},
		},
		nil,
	)

	issues, err := validator.ValidateGraph(context.Background(), stores)
	require.NoError(t, err)

	var warned bool
	for _, i := range issues {
		if i.Exchange == "island" && i.Warning {
			warned = true
		}
	}
	assert.True(t, warned)
	assert.NoError(t, validator.Summarize(issues), "warnings alone do not fail validation")
}

func TestTangentWithoutContentIsWarning(t *testing.T) {
	stores := seed(t,
		[]domain.Exchange{
			{Name: "start", Default: "news"},
			{Name: "news", Type: domain.TypeTangent, Default: "start"},
		},
		nil,
	)

	issues, err := validator.ValidateGraph(context.Background(), stores)
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	assert.True(t, issues[0].Warning)
	assert.NoError(t, validator.Summarize(issues))
}
