// Package tui holds the terminal presentation pieces of the local chat
// loop: markdown rendering and the startup banner.
package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders a bot reply as markdown
// for the terminal. When the renderer cannot be built, or a particular
// reply fails to render, text passes through unchanged.
func NewRenderer() func(string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)
	if err != nil {
		return PlainRenderer()
	}

	return func(markdown string) string {
		out, err := r.Render(markdown)
		if err != nil {
			return markdown
		}
		return strings.TrimRight(out, "\n")
	}
}

// PlainRenderer passes replies through untouched, for --plain mode and
// non-TTY output.
func PlainRenderer() func(string) string {
	return func(s string) string { return s }
}
