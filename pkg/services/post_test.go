package services

import (
	"testing"

	"blog-cms/pkg/frontmatter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) frontmatter.Document {
	t.Helper()
	doc, err := frontmatter.ParseString(src)
	require.NoError(t, err)
	return doc
}

func TestParsePostFilename(t *testing.T) {
	date, slug, ok := parsePostFilename("2025/2025-01-30-sql-query-optimization.md")
	require.True(t, ok)
	assert.Equal(t, "2025-01-30", date.Format("2006-01-02"))
	assert.Equal(t, "sql-query-optimization", slug)

	_, _, ok = parsePostFilename("about.md")
	assert.False(t, ok)
	_, _, ok = parsePostFilename("2025-13-45-bad-date.md")
	assert.False(t, ok)
}

func TestPostSlug(t *testing.T) {
	assert.Equal(t, "custom", postSlug("2025-01-30-x.md", mustParse(t, "---\nslug: custom\n---\n")))
	assert.Equal(t, "x", postSlug("2025-01-30-x.md", mustParse(t, "---\ntitle: Ignored\n---\n")))
	assert.Equal(t, "hello-world", postSlug("notes.md", mustParse(t, "---\ntitle: Hello World\n---\n")))
	assert.Equal(t, "notes", postSlug("notes.md", mustParse(t, "no header")))
}

func TestPostFromDocument(t *testing.T) {
	doc := mustParse(t, "---\nlayout: post\ntitle: T\ncategories: life growth\ntags: [a]\nexcerpt: Short\nimage: /i.png\n---\nbody\n")
	post := postFromDocument("2025-02-14-t.md", doc)

	assert.Equal(t, "T", post.Title)
	assert.Equal(t, "post", post.Layout)
	assert.Equal(t, []string{"life", "growth"}, post.Categories)
	assert.Equal(t, []string{"a"}, post.Tags)
	assert.Equal(t, "Short", post.Summary)
	assert.Equal(t, "/i.png", post.Image)
	assert.Equal(t, "yaml", post.Format)
	require.NotNil(t, post.Date)
	assert.Equal(t, "2025-02-14", post.Date.Format("2006-01-02"))
	assert.False(t, post.Draft)
}

func TestPostFromDocument_Drafts(t *testing.T) {
	assert.True(t, postFromDocument("a.md", mustParse(t, "---\npublished: false\n---\n")).Draft)
	assert.True(t, postFromDocument("a.md", mustParse(t, "+++\ndraft = true\n+++\n")).Draft)
	assert.False(t, postFromDocument("a.md", mustParse(t, "---\npublished: true\n---\n")).Draft)

	untitled := postFromDocument("a.md", mustParse(t, "body only"))
	assert.Equal(t, "a.md", untitled.Title)
	assert.Nil(t, untitled.Date)
}
