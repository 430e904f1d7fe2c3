package jsonfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"linguaflow/internal/adapters/parser/jsonfile"
	"linguaflow/internal/domain"
)

type Exporter struct{}

func New() *Exporter { return &Exporter{} }

func (e *Exporter) Format() string { return domain.FormatJSON }

// Export writes entries into existing. Values of existing keys are replaced in
// place and keys that are not in entries are left alone. New keys go into the
// deepest existing parent object, with the rest of the key as a literal name.
// Without existing content a flat object is rendered.
func (e *Exporter) Export(language string, entries []domain.Entry, existing []byte) ([]byte, error) {
	doc, err := jsonfile.Load(existing)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(doc.Raw)) == 0 {
		return renderFlat(entries)
	}
	if hasRepeatedPath(doc) {
		return renderFlat(merge(doc.Entries(), entries))
	}

	current := map[string]string{}
	for _, en := range doc.Entries() {
		current[en.Key] = en.Value
	}
	leaves := map[string][][]string{}
	for _, l := range doc.Leaves {
		leaves[l.Key] = append(leaves[l.Key], l.Path)
	}

	out := append([]byte(nil), doc.Raw...)
	appended := false
	for _, en := range entries {
		if en.Key == "" {
			continue
		}
		if paths, ok := leaves[en.Key]; ok {
			if current[en.Key] == en.Value {
				continue
			}
			for _, p := range paths {
				if out, err = sjson.SetBytes(out, sjsonPath(p, false), en.Value); err != nil {
					return nil, fmt.Errorf("set %q: %w", en.Key, err)
				}
			}
			current[en.Key] = en.Value
			continue
		}
		p := appendPath(doc.Objects, en.Key)
		if out, err = sjson.SetBytes(out, sjsonPath(p, true), en.Value); err != nil {
			return nil, fmt.Errorf("add %q: %w", en.Key, err)
		}
		leaves[en.Key] = [][]string{p}
		current[en.Key] = en.Value
		appended = true
	}
	if appended && bytes.ContainsRune(doc.Raw, '\n') {
		out = pretty.PrettyOptions(out, &pretty.Options{Width: 80, Indent: detectIndent(doc.Raw)})
		if !bytes.HasSuffix(bytes.TrimRight(doc.Raw, " \t"), []byte("\n")) {
			out = bytes.TrimRight(out, "\n")
		}
	}
	return out, nil
}

// appendPath finds the deepest existing object whose flattened name is a
// prefix of key and returns the raw path for key inside it.
func appendPath(objects map[string][]string, key string) []string {
	for i := strings.LastIndex(key, "."); i > 0; i = strings.LastIndex(key[:i], ".") {
		if parent, ok := objects[key[:i]]; ok {
			return append(append([]string(nil), parent...), key[i+1:])
		}
	}
	return []string{key}
}

// sjsonPath escapes raw object keys into an sjson path. With force, numeric
// keys are marked so sjson creates object members instead of array slots.
func sjsonPath(keys []string, force bool) string {
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('.')
		}
		if force && isIndexLike(k) {
			b.WriteByte(':')
		}
		for _, r := range k {
			switch r {
			case '.', '*', '?', '\\', '|', '#', '@', '!', ':':
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isIndexLike reports keys that sjson would read as array indexes.
func isIndexLike(k string) bool {
	if k == "-1" {
		return true
	}
	if k == "" {
		return false
	}
	for _, r := range k {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func hasRepeatedPath(doc *jsonfile.Document) bool {
	seen := map[string]bool{}
	for _, l := range doc.Leaves {
		id := strings.Join(l.Path, "\x00")
		if seen[id] {
			return true
		}
		seen[id] = true
	}
	return false
}

func merge(base, entries []domain.Entry) []domain.Entry {
	idx := make(map[string]int, len(base))
	for i, e := range base {
		idx[e.Key] = i
	}
	for _, e := range entries {
		if i, ok := idx[e.Key]; ok {
			base[i].Value = e.Value
			continue
		}
		idx[e.Key] = len(base)
		base = append(base, e)
	}
	return base
}

func renderFlat(entries []domain.Entry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	writeString := func(s string) error {
		if err := enc.Encode(s); err != nil {
			return err
		}
		buf.Truncate(buf.Len() - 1)
		return nil
	}
	buf.WriteByte('{')
	n := 0
	for _, e := range domain.DedupeEntries(entries) {
		if n > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(e.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeString(e.Value); err != nil {
			return nil, err
		}
		n++
	}
	buf.WriteByte('}')
	return pretty.PrettyOptions(buf.Bytes(), &pretty.Options{Width: 80, Indent: "  "}), nil
}

func detectIndent(raw []byte) string {
	for _, line := range bytes.Split(raw, []byte("\n"))[1:] {
		trimmed := bytes.TrimLeft(line, " \t")
		if len(trimmed) > 0 && len(trimmed) < len(line) {
			return string(line[:len(line)-len(trimmed)])
		}
	}
	return "  "
}
