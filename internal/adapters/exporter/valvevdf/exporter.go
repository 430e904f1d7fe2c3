package valvevdf

import (
	"bytes"
	"fmt"
	"strings"

	parser "linguaflow/internal/adapters/parser/valvevdf"
	"linguaflow/internal/domain"
)

type Exporter struct{}

func New() *Exporter { return &Exporter{} }

func (e *Exporter) Format() string { return domain.FormatVDF }

// Export replaces token values inside existing and inserts new keys before
// the tokens block closes. Without existing content a "lang" document is
// rendered.
func (e *Exporter) Export(language string, entries []domain.Entry, existing []byte) ([]byte, error) {
	doc, err := parser.Load(existing)
	if err != nil {
		return nil, err
	}
	if doc.Close < 0 {
		return render(language, entries), nil
	}

	want := make(map[string]string, len(entries))
	for _, en := range entries {
		if en.Key != "" {
			want[en.Key] = en.Value
		}
	}
	lines := append([]string(nil), doc.Lines...)
	seen := map[string]bool{}
	// later tokens on the same line would shift, so edit right to left
	for i := len(doc.Tokens) - 1; i >= 0; i-- {
		t := doc.Tokens[i]
		seen[t.Key] = true
		v, ok := want[t.Key]
		if !ok || v == t.Value {
			continue
		}
		l := lines[t.Line]
		lines[t.Line] = l[:t.ValueStart] + parser.Escape(v) + l[t.ValueEnd:]
	}

	indent := doc.Indent
	if indent == "" {
		indent = "\t\t"
	}
	var added []string
	for _, en := range entries {
		if en.Key == "" || seen[en.Key] {
			continue
		}
		seen[en.Key] = true
		added = append(added, fmt.Sprintf("%s\"%s\"\t\t\"%s\"", indent, parser.Escape(en.Key), parser.Escape(en.Value)))
	}
	if len(added) > 0 {
		out := make([]string, 0, len(lines)+len(added))
		out = append(out, lines[:doc.Close]...)
		out = append(out, added...)
		lines = append(out, lines[doc.Close:]...)
	}
	return []byte(strings.Join(lines, "\n")), nil
}

func render(language string, entries []domain.Entry) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "\"lang\"\n{\n\t\"Language\"\t\t\"%s\"\n\t\"Tokens\"\n\t{\n", parser.Escape(language))
	for _, en := range entries {
		if en.Key == "" {
			continue
		}
		fmt.Fprintf(&b, "\t\t\"%s\"\t\t\"%s\"\n", parser.Escape(en.Key), parser.Escape(en.Value))
	}
	b.WriteString("\t}\n}\n")
	return b.Bytes()
}
