package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// Layouts accepted for the date key, most specific first.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 -07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Keys that Jekyll also accepts as a space separated string.
var listKeys = map[string]bool{
	"tags":       true,
	"categories": true,
}

var yamlLineRe = regexp.MustCompile(`line (\d+)`)

func decodeYAML(block []byte) (map[string]any, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(block, &raw); err != nil {
		mh := &MalformedHeaderError{Reason: err.Error(), Err: err}
		if m := yamlLineRe.FindStringSubmatch(err.Error()); m != nil {
			if n, convErr := strconv.Atoi(m[1]); convErr == nil {
				// +1 for the opening marker line.
				mh.Line = n + 1
			}
		}
		return nil, mh
	}
	return raw, nil
}

func decodeTOML(block []byte) (map[string]any, error) {
	var raw map[string]any
	if err := toml.Unmarshal(block, &raw); err != nil {
		mh := &MalformedHeaderError{Reason: err.Error(), Err: err}
		var de *toml.DecodeError
		if errors.As(err, &de) {
			row, _ := de.Position()
			mh.Line = row + 1
		}
		return nil, mh
	}
	return raw, nil
}

func decodeJSON(block []byte) (map[string]any, error) {
	standard, err := hujson.Standardize(block)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(standard, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// parseJSONHeader reads a leading JSON object. The header ends at the brace
// that balances the opening one, followed by at most one line break.
func parseJSONHeader(content []byte) (Document, error) {
	end, ok := jsonObjectEnd(content)
	if !ok {
		return Document{}, &MalformedHeaderError{
			Line:   bytes.Count(content, []byte{'\n'}) + 1,
			Reason: "opening \"{\" has no closing brace",
		}
	}

	meta, err := decodeBlock(FormatJSON, content[:end])
	if err != nil {
		return Document{}, err
	}

	rest := content[end:]
	rest = bytes.TrimPrefix(rest, []byte{'\r'})
	rest = bytes.TrimPrefix(rest, []byte{'\n'})

	return Document{
		Metadata: meta,
		Body:     string(rest),
		Format:   FormatJSON,
	}, nil
}

// jsonObjectEnd finds the brace closing the leading object. Strings and
// comments are skipped so braces inside them do not count.
func jsonObjectEnd(content []byte) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(content); i++ {
		c := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '/':
			if i+1 >= len(content) {
				return 0, false
			}
			switch content[i+1] {
			case '/':
				nl := bytes.IndexByte(content[i:], '\n')
				if nl < 0 {
					return 0, false
				}
				i += nl
			case '*':
				end := bytes.Index(content[i+2:], []byte("*/"))
				if end < 0 {
					return 0, false
				}
				i += 2 + end + 1
			}
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

func normalizeMetadata(raw map[string]any) (Metadata, error) {
	meta := make(Metadata, len(raw))
	for key, value := range raw {
		value = normalizeValue(value)

		switch {
		case key == "date":
			date, err := toDate(value)
			if err != nil {
				return nil, &MalformedHeaderError{Reason: fmt.Sprintf("date: %v", err), Err: err}
			}
			if date != nil {
				value = *date
			}
		case listKeys[key]:
			if s, ok := value.(string); ok {
				value = strings.Fields(s)
			}
		}

		meta[key] = value
	}
	return meta, nil
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			out[key] = normalizeValue(inner)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			out[fmt.Sprint(key)] = normalizeValue(inner)
		}
		return out
	case []any:
		if strs, ok := scalarStrings(v); ok {
			return strs
		}
		out := make([]any, len(v))
		for i := range v {
			out[i] = normalizeValue(v[i])
		}
		return out
	case toml.LocalDate:
		return v.AsTime(time.UTC)
	case toml.LocalDateTime:
		return v.AsTime(time.UTC)
	case toml.LocalTime:
		return v.String()
	default:
		return v
	}
}

// scalarStrings converts a sequence holding only scalars into strings.
func scalarStrings(values []any) ([]string, bool) {
	out := make([]string, 0, len(values))
	for _, value := range values {
		switch v := value.(type) {
		case string:
			out = append(out, v)
		case bool, int, int64, uint64, float64:
			out = append(out, fmt.Sprint(v))
		case time.Time:
			out = append(out, formatDate(v))
		default:
			return nil, false
		}
	}
	return out, true
}

func toDate(value any) (*time.Time, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		t, err := ParseDate(v)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}
	return nil, fmt.Errorf("unsupported value %v (%T)", value, value)
}

// ParseDate reads a date in any of the layouts accepted for the date key.
// Values without a zone are UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// formatDate writes dates the way post authors do: a bare day when there is
// no clock part, otherwise a Jekyll timestamp.
func formatDate(t time.Time) string {
	if isDateOnly(t) {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05.999999999 -0700")
}

func isDateOnly(t time.Time) bool {
	_, offset := t.Zone()
	return offset == 0 && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}
