package yamlfile

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
	"linguaflow/internal/adapters/parser/yamlfile"
	"linguaflow/internal/domain"
)

type Exporter struct{}

func New() *Exporter { return &Exporter{} }

func (e *Exporter) Format() string { return domain.FormatYAML }

// Export edits the node tree of existing, so comments and key order survive.
// When nothing changes the existing bytes are returned as they are.
func (e *Exporter) Export(language string, entries []domain.Entry, existing []byte) ([]byte, error) {
	doc, err := yamlfile.Load(existing)
	if err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, en := range domain.DedupeEntries(entries) {
			if en.Key == "" {
				continue
			}
			root.Content = append(root.Content, strNode(en.Key), strNode(en.Value))
		}
		return encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}, 2)
	}

	current := map[string]string{}
	for _, en := range doc.Entries() {
		current[en.Key] = en.Value
	}
	leaves := map[string][]*yaml.Node{}
	for _, l := range doc.Leaves {
		leaves[l.Key] = append(leaves[l.Key], l.Node)
	}

	changed := false
	for _, en := range entries {
		if en.Key == "" {
			continue
		}
		if nodes, ok := leaves[en.Key]; ok {
			if current[en.Key] == en.Value {
				continue
			}
			for _, n := range nodes {
				setScalar(n, en.Value)
			}
			current[en.Key] = en.Value
			changed = true
			continue
		}
		parent, name := appendTarget(doc, en.Key)
		val := scalarFor(parent, name)
		if val != nil {
			setScalar(val, en.Value)
		} else {
			val = strNode(en.Value)
			parent.Content = append(parent.Content, strNode(name), val)
		}
		leaves[en.Key] = []*yaml.Node{val}
		current[en.Key] = en.Value
		changed = true
	}
	if !changed {
		return existing, nil
	}
	return encode(doc.Node, detectIndent(existing))
}

// appendTarget returns the deepest existing mapping whose flattened name
// prefixes key, and the remaining suffix.
func appendTarget(doc *yamlfile.Document, key string) (*yaml.Node, string) {
	for i := strings.LastIndex(key, "."); i > 0; i = strings.LastIndex(key[:i], ".") {
		if m, ok := doc.Mappings[key[:i]]; ok {
			return m, key[i+1:]
		}
	}
	return doc.Root(), key
}

// scalarFor returns the non-string scalar already stored under name, if any.
func scalarFor(m *yaml.Node, name string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == name && m.Content[i+1].Kind == yaml.ScalarNode {
			return m.Content[i+1]
		}
	}
	return nil
}

func strNode(v string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
	if v == "" {
		n.Style = yaml.DoubleQuotedStyle
	}
	return n
}

func setScalar(n *yaml.Node, v string) {
	n.Value = v
	n.Tag = "!!str"
	if n.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0 && !strings.Contains(v, "\n") {
		n.Style = 0
	}
	if v == "" && n.Style == 0 {
		n.Style = yaml.DoubleQuotedStyle
	}
}

func encode(node *yaml.Node, indent int) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("encoding YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding YAML: %w", err)
	}
	return buf.Bytes(), nil
}

func detectIndent(raw []byte) int {
	for _, line := range bytes.Split(raw, []byte("\n")) {
		trimmed := bytes.TrimLeft(line, " ")
		if n := len(line) - len(trimmed); n > 0 && len(trimmed) > 0 && trimmed[0] != '#' && trimmed[0] != '-' {
			return n
		}
	}
	return 2
}
