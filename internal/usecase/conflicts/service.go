package conflicts

import (
	"context"
	"fmt"
	"log/slog"

	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
	"linguaflow/internal/usecase/locator"
)

type Deps struct {
	Projects     ports.ProjectRepository
	Translations ports.TranslationRepository
	Integrations ports.IntegrationRepository
	Locator      *locator.Service
	// BuildSourceControl returns the adapter for an integration.
	BuildSourceControl ports.SourceControlFactory
	Log                *slog.Logger
}

type Service struct{ d Deps }

func New(d Deps) *Service {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &Service{d: d}
}

// Detect compares the stored translations of one language with remote
// entries. It never writes.
func (s *Service) Detect(ctx context.Context, projectID, languageID int64, remote []domain.Entry) ([]domain.Conflict, error) {
	local, err := s.LocalEntries(ctx, projectID, languageID)
	if err != nil {
		return nil, err
	}
	return Diff(local, remote), nil
}

// LocalEntries lists a language's stored translations in entry order.
func (s *Service) LocalEntries(ctx context.Context, projectID, languageID int64) ([]domain.Entry, error) {
	rows, err := s.d.Translations.ListByProjectLanguage(ctx, projectID, languageID)
	if err != nil {
		return nil, fmt.Errorf("load translations: %w", err)
	}
	out := make([]domain.Entry, 0, len(rows))
	for _, t := range rows {
		out = append(out, domain.Entry{Key: t.Key, Value: t.Content, Position: len(out)})
	}
	return out, nil
}

type PullResult struct {
	Conflicts map[string][]domain.Conflict `json:"conflicts"`
	// Files maps each language code to the remote files it was compared with.
	Files      map[string][]domain.FileDescriptor `json:"files"`
	Unmatched  []domain.FileDescriptor            `json:"unmatched,omitempty"`
	FileErrors []*domain.ParseError               `json:"-"`
	Errors     []string                           `json:"errors,omitempty"`
}

// Total is the number of conflicts across languages.
func (r *PullResult) Total() int {
	n := 0
	for _, cs := range r.Conflicts {
		n += len(cs)
	}
	return n
}

// Pull snapshots the project's repository once and detects conflicts for
// every project language that has at least one remote file.
func (s *Service) Pull(ctx context.Context, projectID int64) (*PullResult, error) {
	in, sc, err := s.connect(ctx, projectID)
	if err != nil {
		return nil, err
	}
	langs, err := s.d.Projects.ListLanguages(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load languages: %w", err)
	}
	snap, err := s.d.Locator.Snapshot(ctx, sc, in.Config)
	if err != nil {
		return nil, err
	}
	res := &PullResult{
		Conflicts:  map[string][]domain.Conflict{},
		Files:      map[string][]domain.FileDescriptor{},
		FileErrors: snap.Errors,
	}
	for _, pe := range snap.Errors {
		res.Errors = append(res.Errors, pe.Error())
	}
	groups, unmatched := locator.GroupByLanguage(snap.Files, langs)
	res.Unmatched = unmatched
	for _, l := range langs {
		files, ok := groups[l.Code]
		if !ok {
			continue
		}
		cs, err := s.Detect(ctx, projectID, l.ID, locator.ConcatEntries(files))
		if err != nil {
			return nil, err
		}
		if cs == nil {
			cs = []domain.Conflict{}
		}
		res.Conflicts[l.Code] = cs
		for _, f := range files {
			res.Files[l.Code] = append(res.Files[l.Code], f.FileDescriptor)
		}
	}
	s.d.Log.Info("pull finished", "project", projectID, "languages", len(res.Conflicts),
		"conflicts", res.Total(), "file_errors", len(res.FileErrors))
	return res, nil
}

func (s *Service) connect(ctx context.Context, projectID int64) (*domain.Integration, ports.SourceControl, error) {
	in, err := s.d.Integrations.GetByProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	if in == nil {
		return nil, nil, domain.ErrNoIntegration
	}
	if !in.IsConnected {
		return nil, nil, domain.ErrDisconnected
	}
	sc, err := s.d.BuildSourceControl(in)
	if err != nil {
		return nil, nil, err
	}
	return in, sc, nil
}
