package pofile

import (
	"bytes"

	"linguaflow/internal/adapters/parser/pofile"
	"linguaflow/internal/domain"
)

type Exporter struct{}

func New() *Exporter { return &Exporter{} }

func (e *Exporter) Format() string { return domain.FormatPO }

// Export sets msgstr of existing messages and appends new ones. New files get
// a minimal header carrying the language.
func (e *Exporter) Export(language string, entries []domain.Entry, existing []byte) ([]byte, error) {
	var doc *pofile.Document
	if len(bytes.TrimSpace(existing)) == 0 {
		doc = pofile.NewDocument(language)
	} else {
		var err error
		if doc, err = pofile.Load(existing); err != nil {
			return nil, err
		}
	}

	byKey := map[string][]*pofile.Message{}
	for _, m := range doc.Messages {
		if !m.Obsolete {
			byKey[m.Key()] = append(byKey[m.Key()], m)
		}
	}
	current := map[string]string{}
	for _, en := range doc.Entries() {
		current[en.Key] = en.Value
	}

	changed := len(bytes.TrimSpace(existing)) == 0
	for _, en := range entries {
		if en.Key == "" {
			continue
		}
		if msgs, ok := byKey[en.Key]; ok {
			if current[en.Key] == en.Value {
				continue
			}
			for _, m := range msgs {
				m.SetValue(en.Value)
			}
			current[en.Key] = en.Value
			changed = true
			continue
		}
		m := pofile.NewMessage(en.Key, en.Value)
		doc.Messages = append(doc.Messages, m)
		byKey[en.Key] = []*pofile.Message{m}
		current[en.Key] = en.Value
		changed = true
	}
	if !changed {
		return existing, nil
	}
	return doc.Bytes(), nil
}
