// Package yamlfile reads nested YAML translation files.
//
// Nested mappings are flattened with "." as separator:
//
//	nav:
//	  home: Home   # key "nav.home"
//
// Only string scalars become entries. Booleans, numbers, nulls, sequences
// and aliases are skipped.
package yamlfile

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
)

type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Format() string { return domain.FormatYAML }

func (p *Parser) Parse(data []byte) (ports.ParseResult, error) {
	doc, err := Load(data)
	if err != nil {
		return ports.ParseResult{}, err
	}
	return ports.ParseResult{Entries: doc.Entries()}, nil
}

// Leaf is a string scalar and its flattened key.
type Leaf struct {
	Key  string
	Node *yaml.Node
}

// Document keeps the node tree so writers can edit it in place.
type Document struct {
	// Node is the document node; nil for empty input.
	Node     *yaml.Node
	Leaves   []Leaf
	Mappings map[string]*yaml.Node
}

// Root returns the top-level mapping, or nil for an empty document.
func (d *Document) Root() *yaml.Node {
	if d.Node == nil || len(d.Node.Content) == 0 {
		return nil
	}
	return d.Node.Content[0]
}

func Load(data []byte) (*Document, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	doc := &Document{Mappings: map[string]*yaml.Node{}}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if node.Kind == 0 || len(node.Content) == 0 {
		return doc, nil
	}
	root := node.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("YAML root must be a mapping, got kind %d", root.Kind)
	}
	doc.Node = &node
	doc.Mappings[""] = root
	doc.collect(root, "")
	return doc, nil
}

func (d *Document) collect(node *yaml.Node, prefix string) {
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode || keyNode.Value == "<<" {
			continue
		}
		key := keyNode.Value
		if prefix != "" {
			key = prefix + "." + key
		}
		switch valNode.Kind {
		case yaml.MappingNode:
			if _, ok := d.Mappings[key]; !ok {
				d.Mappings[key] = valNode
			}
			d.collect(valNode, key)
		case yaml.ScalarNode:
			switch valNode.ShortTag() {
			case "!!bool", "!!int", "!!float", "!!null":
				continue
			}
			d.Leaves = append(d.Leaves, Leaf{Key: key, Node: valNode})
		}
	}
}

// Entries returns the deduplicated entries of the document.
func (d *Document) Entries() []domain.Entry {
	raw := make([]domain.Entry, 0, len(d.Leaves))
	for _, l := range d.Leaves {
		raw = append(raw, domain.Entry{Key: l.Key, Value: l.Node.Value})
	}
	return domain.DedupeEntries(raw)
}
