package ports

import "linguaflow/internal/domain"

// Exporter serializes entries. When existing is non-empty the exporter edits
// that document instead of rendering a fresh one, so untouched structure survives.
type Exporter interface {
	Format() string
	Export(language string, entries []domain.Entry, existing []byte) ([]byte, error)
}
