package ports

import "linguaflow/internal/domain"

type ParseResult struct {
	Entries []domain.Entry
}

type Parser interface {
	Format() string
	Parse(data []byte) (ParseResult, error)
}
