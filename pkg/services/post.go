package services

import (
	"path"
	"regexp"
	"strings"
	"time"

	"blog-cms/pkg/frontmatter"
	"blog-cms/pkg/models"

	"github.com/goliatone/go-slug"
)

// Jekyll post file names: YYYY-MM-DD-slug.ext
var postFilenameRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(.+)\.(md|markdown|html)$`)

// parsePostFilename extracts the date and slug encoded in a post file name.
func parsePostFilename(name string) (time.Time, string, bool) {
	m := postFilenameRe.FindStringSubmatch(path.Base(name))
	if m == nil {
		return time.Time{}, "", false
	}
	date, err := time.Parse("2006-01-02", m[1])
	if err != nil {
		return time.Time{}, "", false
	}
	return date, m[2], true
}

// postSlug prefers the slug header, then the file name, then the title.
func postSlug(relPath string, doc frontmatter.Document) string {
	if s := strings.TrimSpace(doc.String("slug")); s != "" {
		return s
	}
	if _, s, ok := parsePostFilename(relPath); ok {
		return s
	}
	if normalized, err := slug.Normalize(doc.Title()); err == nil && normalized != "" {
		return normalized
	}
	base := path.Base(relPath)
	return strings.TrimSuffix(base, path.Ext(base))
}

// postFromDocument fills the listing fields of a post from its header.
// Title and date fall back to what the file name encodes.
func postFromDocument(relPath string, doc frontmatter.Document) models.Post {
	post := models.Post{
		Path:       relPath,
		Title:      doc.Title(),
		Layout:     doc.String("layout"),
		Image:      doc.String("image"),
		Categories: doc.Strings("categories"),
		Tags:       doc.Strings("tags"),
		Summary:    doc.String("excerpt"),
		Format:     string(doc.Format),
	}

	if post.Title == "" {
		post.Title = relPath
	}

	if date, ok := doc.Date(); ok {
		post.Date = &date
	} else if date, _, ok := parsePostFilename(relPath); ok {
		post.Date = &date
	}

	if draft, ok := doc.Bool("draft"); ok && draft {
		post.Draft = true
	}
	if published, ok := doc.Bool("published"); ok && !published {
		post.Draft = true
	}

	return post
}
