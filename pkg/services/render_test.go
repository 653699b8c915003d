package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown(t *testing.T) {
	html, err := RenderMarkdown([]byte("# Query Plans\n\n- [x] add index\n\nSee https://example.com\n\n<div class=\"note\">raw</div>\n"))
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, `<h1 id="query-plans">Query Plans</h1>`)
	assert.Contains(t, out, `<input checked="" disabled="" type="checkbox"`)
	assert.Contains(t, out, `<a href="https://example.com">https://example.com</a>`)
	assert.Contains(t, out, `<div class="note">raw</div>`)
}

func TestSummarize(t *testing.T) {
	html, err := RenderMarkdown([]byte("![cover](/img/cover.png)\n\nFirst   paragraph with *emphasis*.\n\nSecond paragraph.\n"))
	require.NoError(t, err)

	summary, err := Summarize(html)
	require.NoError(t, err)
	assert.Equal(t, "First paragraph with emphasis.", summary.Text)
	assert.Equal(t, "/img/cover.png", summary.Image)
}

func TestSummarize_Empty(t *testing.T) {
	summary, err := Summarize(nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", truncateRunes("short", 10))

	long := strings.Repeat("word ", 100)
	got := truncateRunes(long, 50)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, utf8.RuneCountInString(got), 51)
	assert.False(t, strings.HasSuffix(strings.TrimSuffix(got, "…"), " "))

	assert.Equal(t, "ääää…", truncateRunes("äääääääää", 4))
	// The last space sits before half the limit in runes, not in bytes.
	assert.Equal(t, "äää bbbbbb…", truncateRunes("äää bbbbbbbbbbbbbbbb", 10))
}
