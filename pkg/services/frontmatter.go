package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"blog-cms/pkg/frontmatter"
	"blog-cms/pkg/models"

	json "github.com/goccy/go-json"
)

// ParseFrontMatter splits a post file into its header values, body, and
// header format name.
func ParseFrontMatter(content []byte) (map[string]any, string, string, error) {
	doc, err := frontmatter.Parse(content)
	if err != nil {
		return nil, "", "", err
	}
	return doc.Metadata, doc.Body, string(doc.Format), nil
}

func ConstructFileContent(fm map[string]any, body string, format string) ([]byte, error) {
	f, err := frontmatter.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	if f == frontmatter.FormatNone && len(fm) > 0 {
		f = frontmatter.FormatYAML
	}

	meta, err := coerceMetadata(fm)
	if err != nil {
		return nil, err
	}

	return frontmatter.Marshal(frontmatter.Document{
		Metadata: meta,
		Body:     body,
		Format:   f,
	})
}

// coerceMetadata turns values arriving as JSON from the editor back into the
// shapes the parser produces, so saved files match parsed ones.
func coerceMetadata(fm map[string]any) (frontmatter.Metadata, error) {
	meta := make(frontmatter.Metadata, len(fm))
	for k, v := range sanitizeFrontMatter(fm) {
		if k == "date" {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				t, err := frontmatter.ParseDate(s)
				if err != nil {
					return nil, err
				}
				v = t
			}
		}
		if list, ok := v.([]any); ok {
			if strs, ok := stringList(list); ok {
				v = strs
			}
		}
		meta[k] = v
	}
	return meta, nil
}

func stringList(list []any) ([]string, bool) {
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func GenerateContentFromCollection(collection models.Collection, overrides map[string]any) ([]byte, error) {
	fm := make(map[string]any)
	var bodyContent string

	for _, field := range collection.Fields {
		// Check override first
		if val, ok := overrides[field.Name]; ok {
			if field.Name == "body" {
				if strVal, ok := val.(string); ok {
					bodyContent = strVal
				}
				continue
			}
			fm[field.Name] = val
			continue
		}

		if field.Name == "body" {
			if val, ok := field.Default.(string); ok {
				bodyContent = val
			}
			continue
		}

		if field.Default != nil {
			fm[field.Name] = field.Default
		} else {
			switch field.Widget {
			case "datetime":
				fm[field.Name] = now().Format("2006-01-02 15:04:05 -0700")
			case "boolean":
				fm[field.Name] = false
			case "list":
				fm[field.Name] = []string{}
			default:
				fm[field.Name] = ""
			}
		}
	}

	// Overrides for keys the collection does not declare still end up in the header.
	for k, v := range overrides {
		if k == "body" {
			continue
		}
		if _, ok := fm[k]; !ok {
			fm[k] = v
		}
	}

	// Jekyll posts default to YAML unless the collection says otherwise.
	format := collection.Format
	if format == "" {
		format = "yaml"
	}
	return ConstructFileContent(fm, bodyContent, format)
}

func NormalizeContent(content []byte, collection *models.Collection) []byte {
	if len(content) == 0 {
		return content
	}
	fm, body, format, err := ParseFrontMatter(content)
	if err != nil || format == "" {
		return withTrailingNewline(content)
	}

	preparedFM := sanitizeFrontMatter(fm)
	applyCollectionDefaultsInPlace(preparedFM, collection)

	normalized, err := ConstructFileContent(preparedFM, body, format)
	if err != nil {
		return withTrailingNewline(content)
	}
	return withTrailingNewline(normalized)
}

// withTrailingNewline returns a trimmed copy of b ending in one newline.
func withTrailingNewline(b []byte) []byte {
	trimmed := bytes.TrimSpace(b)
	out := make([]byte, len(trimmed)+1)
	copy(out, trimmed)
	out[len(trimmed)] = '\n'
	return out
}

func sanitizeFrontMatter(fm map[string]any) map[string]any {
	if fm == nil {
		return nil
	}
	sanitized := make(map[string]any, len(fm))
	for k, v := range fm {
		sanitized[k] = sanitizeFrontMatterValue(v)
	}
	return sanitized
}

func sanitizeFrontMatterValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return sanitizeFrontMatter(v)
	case map[any]any:
		normalized := make(map[string]any, len(v))
		for key, inner := range v {
			normalized[fmt.Sprint(key)] = sanitizeFrontMatterValue(inner)
		}
		return normalized
	case []any:
		slice := make([]any, len(v))
		for i := range v {
			slice[i] = sanitizeFrontMatterValue(v[i])
		}
		return slice
	default:
		return v
	}
}

func applyCollectionDefaultsInPlace(fm map[string]any, collection *models.Collection) {
	if fm == nil || collection == nil {
		return
	}
	for _, field := range collection.Fields {
		if field.Name == "body" {
			continue
		}
		if _, exists := fm[field.Name]; !exists && field.Default != nil {
			fm[field.Name] = field.Default
		}
	}
}

func normalizeOptionalListFields(fm map[string]any, collection *models.Collection) {
	if fm == nil || collection == nil {
		return
	}
	for _, field := range collection.Fields {
		if field.Widget != "list" {
			continue
		}

		val, exists := fm[field.Name]
		if !exists || val == nil {
			fm[field.Name] = []any{}
			continue
		}

		switch list := val.(type) {
		case []any:
			normalized := make([]any, len(list))
			for i := range list {
				normalized[i] = sanitizeFrontMatterValue(list[i])
			}
			fm[field.Name] = normalized
		case []string:
			normalized := make([]any, len(list))
			for i := range list {
				normalized[i] = list[i]
			}
			fm[field.Name] = normalized
		default:
			fm[field.Name] = []any{sanitizeFrontMatterValue(list)}
		}
	}
}

func canonicalizeValueForJSON(value any) any {
	switch v := value.(type) {
	case map[string]any:
		canonical := make(map[string]any, len(v))
		for key, inner := range v {
			canonical[key] = canonicalizeValueForJSON(inner)
		}
		return canonical
	case []any:
		slice := make([]any, len(v))
		for i := range v {
			slice[i] = canonicalizeValueForJSON(v[i])
		}
		return slice
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

func normalizeLineEndings(input string) string {
	return strings.ReplaceAll(input, "\r\n", "\n")
}

// pruneEmptyFields drops empty strings and empty lists so that a missing key
// and an empty one compare equal.
func pruneEmptyFields(val any) any {
	switch v := val.(type) {
	case map[string]any:
		out := make(map[string]any)
		for k, elem := range v {
			if pruned := pruneEmptyFields(elem); pruned != nil {
				out[k] = pruned
			}
		}
		return out
	case []any:
		if len(v) == 0 {
			return nil
		}
		return v
	case []string:
		if len(v) == 0 {
			return nil
		}
		return v
	case string:
		if v == "" {
			return nil
		}
		return v
	default:
		// false, 0 and dates are meaningful
		return v
	}
}

// CanonicalizeForDiff reduces a post to a JSON header and a trimmed body so
// that two files differing only in formatting compare equal.
func CanonicalizeForDiff(content []byte, collection *models.Collection) ([]byte, string, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return nil, "", nil
	}

	fm, body, _, err := ParseFrontMatter(trimmed)
	if err != nil {
		return nil, strings.TrimSpace(normalizeLineEndings(string(trimmed))), err
	}

	sanitized := sanitizeFrontMatter(fm)
	applyCollectionDefaultsInPlace(sanitized, collection)
	normalizeOptionalListFields(sanitized, collection)

	var fmMap map[string]any
	if m, ok := pruneEmptyFields(sanitized).(map[string]any); ok {
		fmMap = m
	} else {
		fmMap = make(map[string]any)
	}

	canonicalFM, err := json.Marshal(canonicalizeValueForJSON(fmMap))
	if err != nil {
		return nil, "", err
	}

	normalizedBody := strings.TrimSpace(normalizeLineEndings(body))
	return canonicalFM, normalizedBody, nil
}

// SameCanonicalContent reports whether two posts differ only in formatting.
func SameCanonicalContent(a, b []byte, collection *models.Collection) bool {
	fmA, bodyA, errA := CanonicalizeForDiff(a, collection)
	fmB, bodyB, errB := CanonicalizeForDiff(b, collection)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(fmA, fmB) && bodyA == bodyB
}
