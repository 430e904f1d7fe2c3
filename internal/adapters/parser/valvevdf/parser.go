// Package valvevdf reads Valve KeyValues language files: a "lang" object
// whose "Tokens" block holds quoted key/value pairs.
package valvevdf

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
)

var (
	pairRE   = regexp.MustCompile(`^\s*"((?:[^"\\]|\\.)*)"\s+"((?:[^"\\]|\\.)*)"`)
	quotedRE = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
)

type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Format() string { return domain.FormatVDF }

func (p *Parser) Parse(data []byte) (ports.ParseResult, error) {
	doc, err := Load(data)
	if err != nil {
		return ports.ParseResult{}, err
	}
	return ports.ParseResult{Entries: doc.Entries()}, nil
}

// Token is one pair of the tokens block.
type Token struct {
	Key   string
	Value string
	Line  int
	// ValueStart and ValueEnd bound the escaped value inside Lines[Line].
	ValueStart, ValueEnd int
}

// Document keeps the raw lines so exporters can edit values in place.
type Document struct {
	Lines  []string
	Tokens []Token
	// Close is the line of the tokens block's closing brace, -1 when the
	// document is empty.
	Close  int
	Indent string
}

const (
	seekTokens = iota
	seekBrace
	inTokens
	done
)

func Load(data []byte) (*Document, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	doc := &Document{Close: -1}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	doc.Lines = strings.Split(string(data), "\n")
	state := seekTokens
	for i, raw := range doc.Lines {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		switch state {
		case seekTokens:
			m := quotedRE.FindAllStringSubmatch(line, -1)
			if len(m) == 1 && strings.EqualFold(m[0][1], "tokens") {
				state = seekBrace
				if strings.HasSuffix(line, "{") {
					state = inTokens
				}
			}
		case seekBrace:
			if line != "{" {
				return nil, fmt.Errorf("line %d: expected { after tokens", i+1)
			}
			state = inTokens
		case inTokens:
			if strings.HasPrefix(line, "}") {
				doc.Close = i
				state = done
				continue
			}
			loc := pairRE.FindStringSubmatchIndex(raw)
			if loc == nil {
				continue
			}
			key := unescape(raw[loc[2]:loc[3]])
			// reference copies of the source text
			if strings.HasPrefix(key, "[english]") {
				continue
			}
			if doc.Indent == "" {
				doc.Indent = raw[:len(raw)-len(strings.TrimLeft(raw, " \t"))]
			}
			doc.Tokens = append(doc.Tokens, Token{
				Key:        key,
				Value:      unescape(raw[loc[4]:loc[5]]),
				Line:       i,
				ValueStart: loc[4],
				ValueEnd:   loc[5],
			})
		}
	}
	switch state {
	case seekTokens:
		return nil, errors.New("vdf: no tokens block")
	case seekBrace, inTokens:
		return nil, errors.New("vdf: unterminated tokens block")
	}
	return doc, nil
}

func (d *Document) Entries() []domain.Entry {
	raw := make([]domain.Entry, 0, len(d.Tokens))
	for _, t := range d.Tokens {
		if t.Key != "" {
			raw = append(raw, domain.Entry{Key: t.Key, Value: t.Value})
		}
	}
	return domain.DedupeEntries(raw)
}

var unescaper = strings.NewReplacer(`\\`, `\`, `\"`, `"`, `\n`, "\n", `\t`, "\t")

func unescape(s string) string { return unescaper.Replace(s) }

var escaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)

// Escape quotes a value for a VDF string literal.
func Escape(s string) string { return escaper.Replace(s) }
