package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// newMarkdownRenderer builds a glamour renderer for chat replies.
// style is "dark", "light" or "notty" (plain text, no ANSI); anything else
// falls back to dark.
func newMarkdownRenderer(style string, width int) (*glamour.TermRenderer, error) {
	switch style {
	case "light", "notty":
	default:
		style = "dark"
	}
	return glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
}

// renderMarkdown renders text, falling back to the raw string when the
// renderer is unavailable or fails.
func renderMarkdown(r *glamour.TermRenderer, text string) string {
	if r == nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
