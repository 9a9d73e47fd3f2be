package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	data := map[string]string{"name": "Ada", "city": "London"}

	assert.Equal(t, "Hello Ada!", Render("Hello {{ name }}!", data))
	assert.Equal(t, "Hello Ada!", Render("Hello {{name}}!", data))
	assert.Equal(t, "Ada from London", Render("{{name}} from {{ city }}", data))
}

func TestRenderMissingKeyIsEmpty(t *testing.T) {
	assert.Equal(t, "Hello !", Render("Hello {{name}}!", map[string]string{}))
}

func TestRenderNilDataPassesThrough(t *testing.T) {
	assert.Equal(t, "Hello {{name}}!", Render("Hello {{name}}!", nil))
}

func TestRenderNoPlaceholders(t *testing.T) {
	assert.Equal(t, "plain text", Render("plain text", map[string]string{"x": "y"}))
}
