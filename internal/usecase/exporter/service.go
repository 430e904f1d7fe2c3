// Package exporter renders one language's translations as a file body.
package exporter

import (
	"context"
	"errors"
	"fmt"

	exreg "linguaflow/internal/adapters/exporter/registry"
	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
)

type Service struct {
	Languages ports.LanguageRepository
	Trans     ports.TranslationRepository
	Reg       *exreg.Registry
}

func New(langs ports.LanguageRepository, trans ports.TranslationRepository, reg *exreg.Registry) *Service {
	return &Service{Languages: langs, Trans: trans, Reg: reg}
}

type ExportArgs struct {
	ProjectID int64
	Language  string
	Format    string
	// Existing is edited in place when given.
	Existing       []byte
	IncludePending bool
}

type ExportResult struct {
	Filename string
	Content  []byte
	Entries  int
}

func (s *Service) ExportFile(ctx context.Context, a ExportArgs) (ExportResult, error) {
	format := a.Format
	if format == "" {
		format = domain.FormatJSON
	}
	exp, ok := s.Reg.Get(format)
	if !ok {
		return ExportResult{}, errors.New("no exporter for format: " + format)
	}
	lang, err := s.Languages.GetByCode(ctx, a.Language)
	if err != nil {
		return ExportResult{}, err
	}
	if lang == nil {
		return ExportResult{}, fmt.Errorf("language %q: %w", a.Language, domain.ErrNotFound)
	}
	rows, err := s.Trans.ListByProjectLanguage(ctx, a.ProjectID, lang.ID)
	if err != nil {
		return ExportResult{}, err
	}
	entries := make([]domain.Entry, 0, len(rows))
	for _, t := range rows {
		if t.Content == "" || (!a.IncludePending && t.Status != domain.StatusApproved) {
			continue
		}
		entries = append(entries, domain.Entry{Key: t.Key, Value: t.Content, Position: len(entries)})
	}
	content, err := exp.Export(lang.Code, entries, a.Existing)
	if err != nil {
		return ExportResult{}, err
	}
	return ExportResult{Filename: lang.Code + "." + domain.ExtensionFor(format), Content: content, Entries: len(entries)}, nil
}
