package dsl_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/internal/adapters/memory"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/dsl"
)

func TestBuilderSeedsStores(t *testing.T) {
	g := dsl.New()
	g.Start().
		Prompt("Hello there!").
		Keyword("news", "news").
		Default("bye")
	g.Exchange("news").
		Prompt("One sec.").
		TangentStop().
		Default("bye")
	g.Exchange("bye").
		Prompt("See you!")
	g.Tangent("First aside.")
	g.Tangent("Second aside.")

	stores := memory.NewStores()
	ctx := context.Background()
	require.NoError(t, g.Seed(ctx, stores))

	exchanges, err := stores.Prompts.List(ctx)
	require.NoError(t, err)
	require.Len(t, exchanges, 3)
	assert.Equal(t, "start", exchanges[0].Name, "ranks follow declaration order")
	assert.Equal(t, domain.TypeStandard, exchanges[0].Type)
	assert.Equal(t, domain.TypeTangent, exchanges[1].Type)

	kw, err := stores.Keywords.Mapping(ctx, "start")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"news": "news"}, kw)

	tangents, err := stores.Tangents.List(ctx)
	require.NoError(t, err)
	require.Len(t, tangents, 2)
	assert.Equal(t, "First aside.", tangents[0].Text)
}

func TestExchangeIsIdempotent(t *testing.T) {
	g := dsl.New()
	first := g.Exchange("start").Prompt("Hi")
	second := g.Exchange("start")

	assert.Same(t, first, second)
	assert.Len(t, g.Exchanges(), 1)
}

func TestCaptureNameWiresBranches(t *testing.T) {
	g := dsl.New()
	g.Start().
		Prompt("What's your name?").
		CaptureName("greet", "sorry")
	g.Exchange("greet").Prompt("Hi {{ name }}!")
	g.Exchange("sorry").Prompt("Didn't catch that.")

	ex := g.Exchanges()[0]
	assert.Equal(t, domain.TypeName, ex.Type)
	assert.Equal(t, map[string]string{
		"yes_name": "greet",
		"no_name":  "sorry",
	}, g.Keywords()["start"])
}
