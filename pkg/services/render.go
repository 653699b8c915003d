package services

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// summaryLimit caps generated excerpts, in runes.
const summaryLimit = 280

// markdown is safe for concurrent use; goldmark engines hold no per-call state.
var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
		extension.TaskList,
		extension.Footnote,
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	// Posts embed raw HTML the same way kramdown allows it.
	goldmark.WithRendererOptions(
		html.WithUnsafe(),
	),
)

// RenderMarkdown converts a post body to HTML.
func RenderMarkdown(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdown.Convert(body, &buf); err != nil {
		return nil, fmt.Errorf("markdown render: %w", err)
	}
	return buf.Bytes(), nil
}

// Summary is the excerpt and lead image found in rendered HTML.
type Summary struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// Summarize takes the first non-empty paragraph as the excerpt, trimmed to
// summaryLimit runes, and the first image as the lead image.
func Summarize(renderedHTML []byte) (Summary, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(renderedHTML))
	if err != nil {
		return Summary{}, fmt.Errorf("summarize: %w", err)
	}

	var summary Summary
	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return true
		}
		summary.Text = truncateRunes(text, summaryLimit)
		return false
	})

	if src, ok := doc.Find("img").First().Attr("src"); ok {
		summary.Image = src
	}
	return summary, nil
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := strings.TrimRight(string(runes[:limit]), " ,.;:")
	if i := strings.LastIndexByte(cut, ' '); i >= 0 && utf8.RuneCountInString(cut[:i]) > limit/2 {
		cut = cut[:i]
	}
	return cut + "…"
}
