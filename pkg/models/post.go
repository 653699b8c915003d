package models

import "time"

// Post represents a blog post file in the CMS.
type Post struct {
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Date        *time.Time     `json:"date,omitempty"`
	Layout      string         `json:"layout,omitempty"`
	Image       string         `json:"image,omitempty"`
	Categories  []string       `json:"categories,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	Draft       bool           `json:"draft,omitempty"`
	Content     string         `json:"content,omitempty"` // Raw file, used when the header could not be parsed
	FrontMatter map[string]any `json:"frontmatter,omitempty"`
	Body        string         `json:"body,omitempty"`
	Format      string         `json:"format,omitempty"` // yaml, toml, json
	IsDirty     bool           `json:"is_dirty"`
	ParseError  string         `json:"parse_error,omitempty"`
}
