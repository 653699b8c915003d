package frontmatter_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog-cms/pkg/frontmatter"
)

func TestParse_SamplePost(t *testing.T) {
	t.Parallel()

	doc, err := frontmatter.Parse(readFixture(t, "2025-01-30-sql-query-optimization.md"))
	require.NoError(t, err)

	assert.Equal(t, frontmatter.FormatYAML, doc.Format)
	assert.Equal(t, "post", doc.String("layout"))
	assert.Equal(t, "SQL Query Optimization Techniques", doc.Title())
	assert.Equal(t, []string{"SQL", "Query", "Optimization", "PSQL", "MySQL"}, doc.Metadata["tags"])
	assert.Equal(t, []string{"Database"}, doc.Strings("categories"))
	assert.Equal(t, "https://images.unsplash.com/photo-1544383835-bda2bc66a55d", doc.String("image"))

	date, ok := doc.Date()
	require.True(t, ok, "date should decode to time.Time")
	assert.True(t, date.Equal(time.Date(2025, time.January, 30, 0, 0, 0, 0, time.UTC)), "got %v", date)

	assert.True(t, strings.HasPrefix(doc.Body, "\nSlow queries are rarely slow"))
	assert.Contains(t, doc.Body, "---\n\nThat horizontal rule above is body text")
}

func TestParse_QuotedTitleAndJekyllCategories(t *testing.T) {
	t.Parallel()

	doc, err := frontmatter.Parse(readFixture(t, "2025-02-14-be-the-best-version-of-yourself.md"))
	require.NoError(t, err)

	assert.Equal(t, "Be the Best Version of Yourself", doc.Title())
	assert.Equal(t, []string{"life", "growth"}, doc.Metadata["categories"])

	date, ok := doc.Date()
	require.True(t, ok)
	want := time.Date(2025, time.February, 14, 8, 30, 0, 0, time.UTC)
	assert.True(t, date.Equal(want), "got %v want %v", date, want)
}

func TestParse_NoHeader(t *testing.T) {
	t.Parallel()

	src := readFixture(t, "no-header.md")

	doc, err := frontmatter.Parse(src)
	require.NoError(t, err)

	assert.NotNil(t, doc.Metadata)
	assert.Empty(t, doc.Metadata)
	assert.Equal(t, frontmatter.FormatNone, doc.Format)
	assert.Equal(t, string(src), doc.Body)
	assert.False(t, doc.HasHeader())
}

func TestParse_Unterminated(t *testing.T) {
	t.Parallel()

	_, err := frontmatter.Parse(readFixture(t, "unterminated.md"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, frontmatter.ErrMalformedHeader))

	var mh *frontmatter.MalformedHeaderError
	require.True(t, errors.As(err, &mh))
	assert.Contains(t, mh.Reason, "no closing marker")
	assert.Equal(t, 5, mh.Line)
}

func TestParse_MalformedHeaders(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		src  string
	}{
		{name: "only opening marker", src: "---\n"},
		{name: "opening marker at eof", src: "---"},
		{name: "header is a list", src: "---\n- a\n- b\n---\nbody\n"},
		{name: "broken flow sequence", src: "---\ntags: [a, b\n---\nbody\n"},
		{name: "duplicate key", src: "---\ntitle: a\ntitle: b\n---\n"},
		{name: "bad date", src: "---\ndate: someday\n---\n"},
		{name: "bad toml", src: "+++\ntitle = \n+++\n"},
		{name: "unbalanced json", src: "{\n  \"title\": \"x\"\n"},
		{name: "toml marker closed by yaml marker", src: "+++\ntitle = \"x\"\n---\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := frontmatter.ParseString(tc.src)
			require.Error(t, err)
			assert.ErrorIs(t, err, frontmatter.ErrMalformedHeader)
		})
	}
}

func TestParse_EdgeCases(t *testing.T) {
	t.Parallel()

	t.Run("empty header", func(t *testing.T) {
		doc, err := frontmatter.ParseString("---\n---\nbody")
		require.NoError(t, err)
		assert.Empty(t, doc.Metadata)
		assert.Equal(t, frontmatter.FormatYAML, doc.Format)
		assert.Equal(t, "body", doc.Body)
	})

	t.Run("closing marker at eof", func(t *testing.T) {
		doc, err := frontmatter.ParseString("---\ntitle: x\n---")
		require.NoError(t, err)
		assert.Equal(t, "x", doc.Title())
		assert.Equal(t, "", doc.Body)
	})

	t.Run("crlf line endings", func(t *testing.T) {
		doc, err := frontmatter.ParseString("---\r\ntitle: x\r\n---\r\nline one\r\n")
		require.NoError(t, err)
		assert.Equal(t, "x", doc.Title())
		assert.Equal(t, "line one\r\n", doc.Body)
	})

	t.Run("byte order mark", func(t *testing.T) {
		doc, err := frontmatter.ParseString("\ufeff---\ntitle: x\n---\nbody\n")
		require.NoError(t, err)
		assert.Equal(t, "x", doc.Title())
	})

	t.Run("marker with trailing spaces", func(t *testing.T) {
		doc, err := frontmatter.ParseString("---  \ntitle: x\n--- \nbody\n")
		require.NoError(t, err)
		assert.Equal(t, "body\n", doc.Body)
	})

	t.Run("unknown keys preserved", func(t *testing.T) {
		doc, err := frontmatter.ParseString("---\ncomments: true\nseries:\n  name: perf\n  part: 2\n---\n")
		require.NoError(t, err)
		assert.Equal(t, true, doc.Metadata["comments"])
		assert.Equal(t, map[string]any{"name": "perf", "part": 2}, doc.Metadata["series"])
	})

	t.Run("liquid tag is body", func(t *testing.T) {
		src := "{% raw %}{{ page.title }}{% endraw %}\n"
		doc, err := frontmatter.ParseString(src)
		require.NoError(t, err)
		assert.Equal(t, frontmatter.FormatNone, doc.Format)
		assert.Equal(t, src, doc.Body)
	})

	t.Run("empty input", func(t *testing.T) {
		doc, err := frontmatter.ParseString("")
		require.NoError(t, err)
		assert.Empty(t, doc.Metadata)
		assert.Equal(t, "", doc.Body)
	})
}

func TestParse_OtherFormats(t *testing.T) {
	t.Parallel()

	toml, err := frontmatter.Parse(readFixture(t, "hugo-toml.md"))
	require.NoError(t, err)
	assert.Equal(t, frontmatter.FormatTOML, toml.Format)
	assert.Equal(t, "TOML header", toml.Title())
	assert.Equal(t, []string{"go", "hugo"}, toml.Strings("tags"))
	draft, ok := toml.Bool("draft")
	assert.True(t, ok && draft)
	date, ok := toml.Date()
	require.True(t, ok)
	assert.True(t, date.Equal(time.Date(2024, time.November, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Body after TOML.\n", toml.Body)

	js, err := frontmatter.Parse(readFixture(t, "hugo-json.md"))
	require.NoError(t, err)
	assert.Equal(t, frontmatter.FormatJSON, js.Format)
	assert.Equal(t, "JSON header", js.Title())
	assert.Equal(t, []string{"json"}, js.Strings("tags"))
	assert.Equal(t, "Body after JSON.\n", js.Body)
}

func TestMarshal_ReproducesSamplePost(t *testing.T) {
	t.Parallel()

	src := readFixture(t, "2025-01-30-sql-query-optimization.md")

	doc, err := frontmatter.Parse(src)
	require.NoError(t, err)

	out, err := frontmatter.Marshal(doc)
	require.NoError(t, err)

	if diff := cmp.Diff(string(src), string(out)); diff != "" {
		t.Fatalf("marshal output mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshal_RoundTripIsIdempotent(t *testing.T) {
	t.Parallel()

	fixtures := []string{
		"2025-01-30-sql-query-optimization.md",
		"2025-02-14-be-the-best-version-of-yourself.md",
		"no-header.md",
		"hugo-toml.md",
		"hugo-json.md",
		"hugo-toml-nested-dates.md",
	}

	for _, name := range fixtures {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			first, err := frontmatter.Parse(readFixture(t, name))
			require.NoError(t, err)

			out, err := frontmatter.Marshal(first)
			require.NoError(t, err)

			second, err := frontmatter.Parse(out)
			require.NoError(t, err)

			if diff := cmp.Diff(first, second); diff != "" {
				t.Fatalf("document changed after round trip (-first +second):\n%s", diff)
			}
		})
	}
}

func TestMarshal_KeepsNestedTOMLDates(t *testing.T) {
	t.Parallel()

	doc, err := frontmatter.Parse(readFixture(t, "hugo-toml-nested-dates.md"))
	require.NoError(t, err)

	day := time.Date(2025, time.January, 30, 0, 0, 0, 0, time.UTC)
	params, ok := doc.Metadata["params"].(map[string]any)
	require.True(t, ok, "params should decode to a table")
	updated, ok := params["updated"].(time.Time)
	require.True(t, ok, "params.updated should decode to time.Time, got %T", params["updated"])
	assert.True(t, updated.Equal(day))

	seen, ok := doc.Metadata["seen"].([]any)
	require.True(t, ok, "seen should stay a list of dates, got %T", doc.Metadata["seen"])
	require.Len(t, seen, 2)
	assert.IsType(t, time.Time{}, seen[0])

	out, err := frontmatter.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), "updated = 2025-01-30\n")
	assert.NotContains(t, string(out), "'2025-01-30'")
}

func TestParse_JSONHeaderWithComments(t *testing.T) {
	t.Parallel()

	src := "{\n  // a } brace in a comment\n  /* and \" a quote */\n  \"title\": \"x\"\n}\nbody\n"
	doc, err := frontmatter.ParseString(src)
	require.NoError(t, err)
	assert.Equal(t, frontmatter.FormatJSON, doc.Format)
	assert.Equal(t, "x", doc.Title())
	assert.Equal(t, "body\n", doc.Body)
}

func TestMarshal_DefaultsToYAML(t *testing.T) {
	t.Parallel()

	out, err := frontmatter.Marshal(frontmatter.Document{
		Metadata: frontmatter.Metadata{
			"title": "Hello",
			"date":  time.Date(2025, time.March, 1, 18, 5, 0, 0, time.UTC),
			"tags":  []string{"a", "b"},
			"zzz":   1,
		},
		Body: "Hi\n",
	})
	require.NoError(t, err)

	want := strings.Join([]string{
		"---",
		"title: Hello",
		"date: 2025-03-01 18:05:00 +0000",
		"tags: [a, b]",
		"zzz: 1",
		"---",
		"Hi",
		"",
	}, "\n")
	assert.Equal(t, want, string(out))
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, err := frontmatter.ParseFormat("toml-frontmatter")
	require.NoError(t, err)
	assert.Equal(t, frontmatter.FormatTOML, f)
	assert.Equal(t, "+++", frontmatter.MarkerFor(f))

	_, err = frontmatter.ParseFormat("xml")
	assert.Error(t, err)
}

func readFixture(tb testing.TB, name string) []byte {
	tb.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		tb.Fatalf("read fixture %s: %v", name, err)
	}
	return data
}
