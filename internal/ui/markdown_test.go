package ui

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarkdownRenderer_NottyIsPlain(t *testing.T) {
	r, err := newMarkdownRenderer("notty", 60)
	require.NoError(t, err)

	out := renderMarkdown(r, "workflow started")
	require.Contains(t, out, "workflow started")
	require.NotContains(t, out, "\x1b[", "notty output must carry no ANSI sequences")
}

func TestMarkdownRenderer_UnknownStyleFallsBack(t *testing.T) {
	r, err := newMarkdownRenderer("sepia", 60)
	require.NoError(t, err)
	require.NotNil(t, r)
}

func TestRenderMarkdown_NilRendererReturnsRaw(t *testing.T) {
	require.Equal(t, "plain text", renderMarkdown(nil, "plain text"))
}
