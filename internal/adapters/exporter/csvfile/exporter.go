package csvfile

import (
	"bytes"
	"encoding/csv"

	"linguaflow/internal/adapters/parser/csvfile"
	"linguaflow/internal/domain"
)

type Exporter struct{}

func New() *Exporter { return &Exporter{} }

func (e *Exporter) Format() string { return domain.FormatCSV }

// Export updates the value column of matching rows and appends new rows.
func (e *Exporter) Export(language string, entries []domain.Entry, existing []byte) ([]byte, error) {
	t, err := csvfile.Load(existing)
	if err != nil {
		return nil, err
	}
	rowsByKey := map[string][]int{}
	for i, row := range t.Rows {
		rowsByKey[t.Key(row)] = append(rowsByKey[t.Key(row)], i)
	}
	width := len(t.Header)
	changed := len(bytes.TrimSpace(existing)) == 0
	for _, en := range entries {
		if en.Key == "" {
			continue
		}
		if rows, ok := rowsByKey[en.Key]; ok {
			for _, i := range rows {
				if t.Value(t.Rows[i]) == en.Value {
					continue
				}
				for len(t.Rows[i]) < width {
					t.Rows[i] = append(t.Rows[i], "")
				}
				t.Rows[i][t.ValueCol] = en.Value
				changed = true
			}
			continue
		}
		row := make([]string, width)
		row[t.KeyCol] = en.Key
		row[t.ValueCol] = en.Value
		rowsByKey[en.Key] = []int{len(t.Rows)}
		t.Rows = append(t.Rows, row)
		changed = true
	}
	if !changed {
		return existing, nil
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(t.Header)
	_ = w.WriteAll(t.Rows)
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
