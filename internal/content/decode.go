package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// parseDocument parses a JSON or YAML file into its top-level mapping node.
// Going through yaml.Node keeps key order, which the page relies on for topic,
// choice and FAQ ordering.
func parseDocument(path string, data []byte) (*yaml.Node, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		// Compact first: JSON allows tab indentation, YAML does not.
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		data = buf.Bytes()
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	root := resolve(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level must be an object")
	}
	return root, nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

type pair struct {
	key   string
	value *yaml.Node
}

// pairs returns the entries of a mapping node in document order.
func pairs(n *yaml.Node) []pair {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	out := make([]pair, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out = append(out, pair{key: n.Content[i].Value, value: resolve(n.Content[i+1])})
	}
	return out
}

func lookup(n *yaml.Node, key string) *yaml.Node {
	for _, p := range pairs(n) {
		if p.key == key {
			return p.value
		}
	}
	return nil
}

func scalar(n *yaml.Node) string {
	n = resolve(n)
	if n == nil || n.Kind != yaml.ScalarNode {
		return ""
	}
	return n.Value
}

// writeJSON renders a node as JSON preserving mapping order.
func writeJSON(buf *bytes.Buffer, n *yaml.Node) error {
	n = resolve(n)
	if n == nil {
		buf.WriteString("null")
		return nil
	}

	switch n.Kind {
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i, p := range pairs(n) {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, p.key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeJSON(buf, p.value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, c := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, c); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return fmt.Errorf("decode scalar at line %d: %w", n.Line, err)
		}
		return writeValue(buf, v)
	default:
		return fmt.Errorf("unsupported node kind %d at line %d", n.Kind, n.Line)
	}
	return nil
}

func writeValue(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode terminates with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// indentedJSON renders a node as two-space indented JSON.
func indentedJSON(n *yaml.Node) (string, error) {
	var raw bytes.Buffer
	if err := writeJSON(&raw, n); err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw.Bytes(), "", "  "); err != nil {
		return "", err
	}
	return out.String(), nil
}
