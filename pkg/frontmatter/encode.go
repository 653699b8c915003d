package frontmatter

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	json "github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Keys written first, in this order, so headers read the way authors write
// them. Everything else follows alphabetically.
var leadingKeys = []string{"layout", "title", "date", "categories", "tags", "image"}

// Marshal writes doc back out as marker, header, marker, body. A document
// without metadata and without a format is written as its body alone.
// Documents with metadata but no format get a YAML header.
func Marshal(doc Document) ([]byte, error) {
	format := doc.Format
	if format == FormatNone {
		if len(doc.Metadata) == 0 {
			return []byte(doc.Body), nil
		}
		format = FormatYAML
	}

	var buf bytes.Buffer
	switch format {
	case FormatYAML:
		buf.WriteString(yamlMarker + "\n")
		if err := encodeYAML(&buf, doc.Metadata); err != nil {
			return nil, err
		}
		buf.WriteString(yamlMarker + "\n")
	case FormatTOML:
		buf.WriteString(tomlMarker + "\n")
		if err := encodeTOML(&buf, doc.Metadata); err != nil {
			return nil, err
		}
		buf.WriteString(tomlMarker + "\n")
	case FormatJSON:
		if err := encodeJSON(&buf, doc.Metadata); err != nil {
			return nil, err
		}
		buf.WriteString("\n")
	default:
		return nil, fmt.Errorf("unsupported front matter format: %s", format)
	}

	buf.WriteString(doc.Body)
	return buf.Bytes(), nil
}

func orderedKeys(meta Metadata) []string {
	keys := make([]string, 0, len(meta))
	seen := make(map[string]bool, len(leadingKeys))
	for _, key := range leadingKeys {
		if _, ok := meta[key]; ok {
			keys = append(keys, key)
			seen[key] = true
		}
	}

	rest := make([]string, 0, len(meta))
	for key := range meta {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func encodeYAML(buf *bytes.Buffer, meta Metadata) error {
	if len(meta) == 0 {
		return nil
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range orderedKeys(meta) {
		value, err := yamlValueNode(meta[key])
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			value,
		)
	}

	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return err
	}
	return enc.Close()
}

func yamlValueNode(value any) (*yaml.Node, error) {
	switch v := value.(type) {
	case time.Time:
		// A bare day resolves as a timestamp and is written unquoted.
		if isDateOnly(v) {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!timestamp", Value: formatDate(v)}, nil
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: formatDate(v)}, nil
	case []string:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
		for _, s := range v {
			seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s})
		}
		return seq, nil
	}

	var node yaml.Node
	if err := node.Encode(prepareValue(value)); err != nil {
		return nil, err
	}
	return &node, nil
}

func encodeTOML(buf *bytes.Buffer, meta Metadata) error {
	if len(meta) == 0 {
		return nil
	}

	prepared := make(map[string]any, len(meta))
	for key, value := range meta {
		prepared[key] = tomlValue(value)
	}

	return toml.NewEncoder(buf).Encode(prepared)
}

// tomlValue keeps dates as TOML dates at any depth. A bare day is written
// as a local date so it reads back the same.
func tomlValue(value any) any {
	switch v := value.(type) {
	case time.Time:
		if isDateOnly(v) {
			return toml.LocalDate{Year: v.Year(), Month: int(v.Month()), Day: v.Day()}
		}
		return v
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			out[key] = tomlValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = tomlValue(v[i])
		}
		return out
	default:
		return v
	}
}

func encodeJSON(buf *bytes.Buffer, meta Metadata) error {
	prepared := make(map[string]any, len(meta))
	for key, value := range meta {
		prepared[key] = prepareValue(value)
	}

	out, err := json.MarshalIndent(prepared, "", "  ")
	if err != nil {
		return err
	}
	buf.Write(out)
	return nil
}

// prepareValue turns dates nested inside other values into strings.
func prepareValue(value any) any {
	switch v := value.(type) {
	case time.Time:
		return formatDate(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			out[key] = prepareValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = prepareValue(v[i])
		}
		return out
	default:
		return v
	}
}
