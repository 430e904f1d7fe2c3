package jsonfile

import (
	"bytes"
	"errors"

	"github.com/tidwall/gjson"
	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
)

type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Format() string { return domain.FormatJSON }

func (p *Parser) Parse(data []byte) (ports.ParseResult, error) {
	doc, err := Load(data)
	if err != nil {
		return ports.ParseResult{}, err
	}
	return ports.ParseResult{Entries: doc.Entries()}, nil
}

// Leaf is one string value in a document, with the raw object keys leading to it.
type Leaf struct {
	Key   string
	Path  []string
	Value string
}

// Document is a flattened view of a JSON object. Leaves are in document
// order and may repeat a flattened key.
type Document struct {
	Raw     []byte
	Leaves  []Leaf
	Objects map[string][]string
}

// Load validates data and flattens nested objects with "." as separator.
// Non-string leaves and arrays are skipped, as is a top-level "$schema".
func Load(data []byte) (*Document, error) {
	data = StripBOM(data)
	doc := &Document{Raw: data, Objects: map[string][]string{}}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid json")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, errors.New("top-level json value must be an object")
	}
	doc.Objects[""] = nil
	doc.walk(root, "", nil)
	return doc, nil
}

func (d *Document) walk(obj gjson.Result, prefix string, path []string) {
	obj.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		if prefix == "" && key == "$schema" {
			return true
		}
		flat := key
		if prefix != "" {
			flat = prefix + "." + key
		}
		p := append(append([]string(nil), path...), key)
		switch {
		case v.IsObject():
			if _, ok := d.Objects[flat]; !ok {
				d.Objects[flat] = p
			}
			d.walk(v, flat, p)
		case v.Type == gjson.String:
			d.Leaves = append(d.Leaves, Leaf{Key: flat, Path: p, Value: v.String()})
		}
		return true
	})
}

// Entries returns the deduplicated entries of the document.
func (d *Document) Entries() []domain.Entry {
	raw := make([]domain.Entry, 0, len(d.Leaves))
	for _, l := range d.Leaves {
		raw = append(raw, domain.Entry{Key: l.Key, Value: l.Value})
	}
	return domain.DedupeEntries(raw)
}

func StripBOM(b []byte) []byte {
	bom := []byte{0xEF, 0xBB, 0xBF}
	if len(b) >= 3 && bytes.Equal(b[:3], bom) {
		return b[3:]
	}
	return b
}
