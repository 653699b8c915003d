// Package frontmatter splits blog post files into a metadata header and a
// Markdown body, and writes them back.
//
// A header is opened by a marker line at the very start of the file and
// closed by the next line holding the same marker:
//
//	---
//	layout: post
//	title: "Be the Best Version of Yourself"
//	date: 2025-01-30
//	tags: [SQL, Query, Optimization]
//	---
//	Body text, kept exactly as written.
//
// YAML (---) and TOML (+++) headers are supported, as is a leading JSON
// object the way Hugo accepts it. Files without a header are all body.
package frontmatter

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// Format identifies the encoding of a header.
type Format string

const (
	FormatNone Format = ""
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

const (
	yamlMarker = "---"
	tomlMarker = "+++"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// MarkerFor returns the delimiter line for f. JSON headers have none.
func MarkerFor(f Format) string {
	switch f {
	case FormatYAML:
		return yamlMarker
	case FormatTOML:
		return tomlMarker
	}
	return ""
}

// ParseFormat accepts the names used in admin configs and API payloads.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return FormatNone, nil
	case "yaml", "yml", "yaml-frontmatter":
		return FormatYAML, nil
	case "toml", "toml-frontmatter":
		return FormatTOML, nil
	case "json", "json-frontmatter":
		return FormatJSON, nil
	}
	return FormatNone, fmt.Errorf("unsupported front matter format: %s", s)
}

// Metadata holds decoded header values keyed by name.
type Metadata map[string]any

// Document is a parsed post file.
type Document struct {
	Metadata Metadata `json:"metadata"`
	Body     string   `json:"body"`
	Format   Format   `json:"format,omitempty"`
}

// HasHeader reports whether the document was read from, or will be written
// with, a metadata header.
func (d Document) HasHeader() bool {
	return d.Format != FormatNone || len(d.Metadata) > 0
}

// String returns the string value stored under key, or "".
func (d Document) String(key string) string {
	s, _ := d.Metadata[key].(string)
	return s
}

// Title is shorthand for String("title").
func (d Document) Title() string {
	return d.String("title")
}

// Date returns the parsed date value, if any.
func (d Document) Date() (time.Time, bool) {
	t, ok := d.Metadata["date"].(time.Time)
	return t, ok
}

// Strings returns a sequence value. A lone string is returned as a single
// element slice.
func (d Document) Strings(key string) []string {
	switch v := d.Metadata[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// Bool returns a boolean value and whether the key held one.
func (d Document) Bool(key string) (bool, bool) {
	b, ok := d.Metadata[key].(bool)
	return b, ok
}

// ParseString is Parse for string input.
func ParseString(s string) (Document, error) {
	return Parse([]byte(s))
}

// Parse splits src into metadata and body. A missing header is not an
// error: the whole input becomes the body. An opening marker without a
// matching closing marker, or a header that does not decode into a mapping,
// fails with an error matching ErrMalformedHeader.
func Parse(src []byte) (Document, error) {
	content := bytes.TrimPrefix(src, utf8BOM)

	if format, ok := detectFormat(content); ok {
		if format == FormatJSON {
			return parseJSONHeader(content)
		}
		return parseDelimited(content, format)
	}

	return Document{
		Metadata: Metadata{},
		Body:     string(src),
	}, nil
}

func detectFormat(content []byte) (Format, bool) {
	first, _ := nextLine(content, 0)
	switch trimMarkerLine(first) {
	case yamlMarker:
		return FormatYAML, true
	case tomlMarker:
		return FormatTOML, true
	}
	if looksLikeJSONObject(content) {
		return FormatJSON, true
	}
	return FormatNone, false
}

// looksLikeJSONObject keeps Liquid tags such as "{% raw %}" in the body.
func looksLikeJSONObject(content []byte) bool {
	if len(content) == 0 || content[0] != '{' {
		return false
	}
	rest := bytes.TrimLeft(content[1:], " \t\r\n")
	return len(rest) > 0 && (rest[0] == '"' || rest[0] == '}' || rest[0] == '/')
}

func parseDelimited(content []byte, format Format) (Document, error) {
	marker := MarkerFor(format)

	_, pos := nextLine(content, 0)
	blockStart := pos
	lineNo := 1

	for pos < len(content) {
		line, next := nextLine(content, pos)
		lineNo++
		if trimMarkerLine(line) == marker {
			meta, err := decodeBlock(format, content[blockStart:pos])
			if err != nil {
				return Document{}, err
			}
			return Document{
				Metadata: meta,
				Body:     string(content[next:]),
				Format:   format,
			}, nil
		}
		pos = next
	}

	return Document{}, &MalformedHeaderError{
		Line:   lineNo,
		Reason: fmt.Sprintf("opening %q has no closing marker", marker),
	}
}

// nextLine returns the line starting at pos without its newline, and the
// offset of the following line.
func nextLine(content []byte, pos int) ([]byte, int) {
	idx := bytes.IndexByte(content[pos:], '\n')
	if idx < 0 {
		return content[pos:], len(content)
	}
	return content[pos : pos+idx], pos + idx + 1
}

func trimMarkerLine(line []byte) string {
	return string(bytes.TrimRight(line, " \t\r"))
}

func decodeBlock(format Format, block []byte) (Metadata, error) {
	var (
		raw map[string]any
		err error
	)

	switch format {
	case FormatYAML:
		raw, err = decodeYAML(block)
	case FormatTOML:
		raw, err = decodeTOML(block)
	case FormatJSON:
		raw, err = decodeJSON(block)
	default:
		return nil, fmt.Errorf("unsupported front matter format: %s", format)
	}
	if err != nil {
		return nil, malformed(err)
	}

	return normalizeMetadata(raw)
}
