package csvfile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
)

type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Format() string { return domain.FormatCSV }

func (p *Parser) Parse(data []byte) (ports.ParseResult, error) {
	t, err := Load(data)
	if err != nil {
		return ports.ParseResult{}, err
	}
	return ports.ParseResult{Entries: t.Entries()}, nil
}

// Table is a CSV file with a header row, a "key" column and a value column.
type Table struct {
	Header   []string
	Rows     [][]string
	KeyCol   int
	ValueCol int
}

// valueColumns are tried in order to find the translated text.
var valueColumns = []string{"translation", "value", "text", "source", "default"}

func Load(data []byte) (*Table, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &Table{Header: []string{"key", "value"}, KeyCol: 0, ValueCol: 1}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	keyCol, ok := idx["key"]
	if !ok {
		return nil, errors.New("csv missing 'key' column")
	}
	valueCol := -1
	for _, name := range valueColumns {
		if i, ok := idx[name]; ok {
			valueCol = i
			break
		}
	}
	if valueCol < 0 {
		return nil, errors.New("csv missing value column (translation/value/text/source/default)")
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	return &Table{Header: header, Rows: rows, KeyCol: keyCol, ValueCol: valueCol}, nil
}

func (t *Table) cell(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}

// Key and Value read a row, tolerating short rows.
func (t *Table) Key(row []string) string   { return t.cell(row, t.KeyCol) }
func (t *Table) Value(row []string) string { return t.cell(row, t.ValueCol) }

func (t *Table) Entries() []domain.Entry {
	raw := make([]domain.Entry, 0, len(t.Rows))
	for _, row := range t.Rows {
		if k := t.Key(row); k != "" {
			raw = append(raw, domain.Entry{Key: k, Value: t.Value(row)})
		}
	}
	return domain.DedupeEntries(raw)
}
