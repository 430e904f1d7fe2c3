// Package pofile reads and writes GNU gettext PO files.
//
// An entry's key is its msgid, or msgctxt + "\x04" + msgid when a context is
// present. The value is msgstr, or msgstr[0] for plural messages. The header
// entry, obsolete entries and untranslated entries do not produce entries.
package pofile

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
)

// ContextSeparator joins msgctxt and msgid into one key.
const ContextSeparator = "\x04"

type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Format() string { return domain.FormatPO }

func (p *Parser) Parse(data []byte) (ports.ParseResult, error) {
	doc, err := Load(data)
	if err != nil {
		return ports.ParseResult{}, err
	}
	return ports.ParseResult{Entries: doc.Entries()}, nil
}

// Message is one PO entry. Comment lines are kept verbatim.
type Message struct {
	Comments  []string
	HasCtxt   bool
	Ctxt      string
	ID        string
	IDPlural  string
	Str       string
	StrPlural map[int]string
	Obsolete  bool
	// Raw holds the original lines of obsolete entries.
	Raw []string
}

// Key returns the lookup key of the message.
func (m *Message) Key() string {
	if m.HasCtxt {
		return m.Ctxt + ContextSeparator + m.ID
	}
	return m.ID
}

// Value returns msgstr, or msgstr[0] for plural messages.
func (m *Message) Value() string {
	if m.IDPlural != "" {
		return m.StrPlural[0]
	}
	return m.Str
}

// SetValue stores v and drops a fuzzy flag.
func (m *Message) SetValue(v string) {
	if m.IDPlural != "" {
		if m.StrPlural == nil {
			m.StrPlural = map[int]string{}
		}
		m.StrPlural[0] = v
	} else {
		m.Str = v
	}
	for i, c := range m.Comments {
		if !strings.HasPrefix(c, "#,") {
			continue
		}
		var flags []string
		for _, f := range strings.Split(c[2:], ",") {
			if f = strings.TrimSpace(f); f != "" && f != "fuzzy" {
				flags = append(flags, f)
			}
		}
		if len(flags) == 0 {
			m.Comments = append(m.Comments[:i], m.Comments[i+1:]...)
		} else {
			m.Comments[i] = "#, " + strings.Join(flags, ", ")
		}
		break
	}
}

// NewMessage builds a message from a key produced by Message.Key.
func NewMessage(key, value string) *Message {
	m := &Message{ID: key}
	if ctxt, id, ok := strings.Cut(key, ContextSeparator); ok {
		m.HasCtxt, m.Ctxt, m.ID = true, ctxt, id
	}
	m.Str = value
	return m
}

type Document struct {
	Header   *Message
	Messages []*Message
}

// NewDocument returns a document with a minimal header for language.
func NewDocument(language string) *Document {
	d := &Document{Header: &Message{}}
	d.SetHeaderField("Language", language)
	d.SetHeaderField("MIME-Version", "1.0")
	d.SetHeaderField("Content-Type", "text/plain; charset=UTF-8")
	d.SetHeaderField("Content-Transfer-Encoding", "8bit")
	return d
}

func (d *Document) HeaderField(name string) string {
	if d.Header == nil {
		return ""
	}
	for _, line := range strings.Split(d.Header.Str, "\n") {
		if k, v, ok := strings.Cut(line, ":"); ok && strings.EqualFold(strings.TrimSpace(k), name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func (d *Document) SetHeaderField(name, value string) {
	if d.Header == nil {
		d.Header = &Message{}
	}
	lines := strings.Split(strings.TrimSuffix(d.Header.Str, "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		lines = nil
	}
	found := false
	for i, line := range lines {
		if k, _, ok := strings.Cut(line, ":"); ok && strings.EqualFold(strings.TrimSpace(k), name) {
			lines[i] = name + ": " + value
			found = true
			break
		}
	}
	if !found {
		lines = append(lines, name+": "+value)
	}
	d.Header.Str = strings.Join(lines, "\n") + "\n"
}

// Entries returns the translated, non-obsolete messages as entries.
func (d *Document) Entries() []domain.Entry {
	raw := make([]domain.Entry, 0, len(d.Messages))
	for _, m := range d.Messages {
		if m.Obsolete || m.Value() == "" {
			continue
		}
		raw = append(raw, domain.Entry{Key: m.Key(), Value: m.Value()})
	}
	return domain.DedupeEntries(raw)
}

// Load parses PO content.
func Load(data []byte) (*Document, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	doc := &Document{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cur *Message
	field := ""
	plural := 0
	seenID := false
	flush := func() {
		if cur == nil {
			return
		}
		if !cur.Obsolete && seenID && cur.ID == "" && !cur.HasCtxt && doc.Header == nil && len(doc.Messages) == 0 {
			doc.Header = cur
		} else if seenID || cur.Obsolete {
			doc.Messages = append(doc.Messages, cur)
		}
		cur, field, seenID = nil, "", false
	}
	appendTo := func(s string) {
		switch field {
		case "msgctxt":
			cur.Ctxt += s
		case "msgid":
			cur.ID += s
		case "msgid_plural":
			cur.IDPlural += s
		case "msgstr":
			cur.Str += s
		case "msgstr[]":
			cur.StrPlural[plural] += s
		}
	}

	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if cur == nil {
			cur = &Message{}
		}
		if strings.HasPrefix(line, "#~") {
			cur.Obsolete = true
			cur.Raw = append(cur.Raw, line)
			continue
		}
		if strings.HasPrefix(line, "#") {
			if seenID {
				flush()
				cur = &Message{}
			}
			cur.Comments = append(cur.Comments, line)
			continue
		}
		if strings.HasPrefix(trimmed, `"`) {
			if field == "" {
				return nil, fmt.Errorf("line %d: continuation without a field", lineNum)
			}
			s, err := unquote(trimmed)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			appendTo(s)
			continue
		}

		keyword, rest, _ := strings.Cut(trimmed, " ")
		s, err := unquote(strings.TrimSpace(rest))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		switch {
		case keyword == "msgctxt" || keyword == "msgid":
			if seenID {
				flush()
				cur = &Message{}
			}
			if keyword == "msgctxt" {
				cur.HasCtxt = true
			} else {
				seenID = true
			}
			field = keyword
			appendTo(s)
		case keyword == "msgid_plural" || keyword == "msgstr":
			if !seenID {
				return nil, fmt.Errorf("line %d: %s before msgid", lineNum, keyword)
			}
			field = keyword
			appendTo(s)
		case strings.HasPrefix(keyword, "msgstr[") && strings.HasSuffix(keyword, "]"):
			n, err := strconv.Atoi(keyword[len("msgstr[") : len(keyword)-1])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("line %d: invalid plural index in %q", lineNum, keyword)
			}
			if cur.StrPlural == nil {
				cur.StrPlural = map[int]string{}
			}
			field, plural = "msgstr[]", n
			appendTo(s)
		default:
			return nil, fmt.Errorf("line %d: unexpected %q", lineNum, keyword)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading PO: %w", err)
	}
	flush()
	return doc, nil
}

// Bytes renders the document.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	first := true
	write := func(m *Message) {
		if !first {
			buf.WriteByte('\n')
		}
		first = false
		writeMessage(&buf, m)
	}
	if d.Header != nil {
		write(d.Header)
	}
	for _, m := range d.Messages {
		write(m)
	}
	return buf.Bytes()
}

func writeMessage(buf *bytes.Buffer, m *Message) {
	for _, c := range m.Comments {
		buf.WriteString(c)
		buf.WriteByte('\n')
	}
	if m.Obsolete {
		for _, l := range m.Raw {
			buf.WriteString(l)
			buf.WriteByte('\n')
		}
		return
	}
	if m.HasCtxt {
		writeField(buf, "msgctxt", m.Ctxt)
	}
	writeField(buf, "msgid", m.ID)
	if m.IDPlural != "" {
		writeField(buf, "msgid_plural", m.IDPlural)
		idx := make([]int, 0, len(m.StrPlural))
		for i := range m.StrPlural {
			idx = append(idx, i)
		}
		if len(idx) == 0 {
			idx = append(idx, 0)
		}
		sort.Ints(idx)
		for _, i := range idx {
			writeField(buf, fmt.Sprintf("msgstr[%d]", i), m.StrPlural[i])
		}
		return
	}
	writeField(buf, "msgstr", m.Str)
}

// writeField splits multi-line values after each newline, gettext style.
func writeField(buf *bytes.Buffer, name, value string) {
	if !strings.Contains(strings.TrimSuffix(value, "\n"), "\n") {
		fmt.Fprintf(buf, "%s %s\n", name, quote(value))
		return
	}
	fmt.Fprintf(buf, "%s \"\"\n", name)
	for len(value) > 0 {
		part := value
		if i := strings.Index(value, "\n"); i >= 0 {
			part = value[:i+1]
		}
		value = value[len(part):]
		buf.WriteString(quote(part))
		buf.WriteByte('\n')
	}
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`, "\r", `\r`)
	return `"` + r.Replace(s) + `"`
}

func unquote(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("expected quoted string, got %q", s)
	}
	s = s[1 : len(s)-1]
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			if c == '"' {
				return "", fmt.Errorf("unescaped quote in %q", s)
			}
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", fmt.Errorf("dangling escape in %q", s)
		}
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '"', '\\':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String(), nil
}
