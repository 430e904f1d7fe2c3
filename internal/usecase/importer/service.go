// Package importer loads translations into the project, either from the
// integration's repository or from a single uploaded file.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	parreg "linguaflow/internal/adapters/parser/registry"
	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
	"linguaflow/internal/usecase/locator"
	"linguaflow/internal/usecase/translations"
)

type Deps struct {
	Projects     ports.ProjectRepository
	Languages    ports.LanguageRepository
	Translations ports.TranslationRepository
	Integrations ports.IntegrationRepository
	History      ports.SyncHistoryRepository
	Writer       *translations.Writer
	Locator      *locator.Service
	Parsers      *parreg.Registry
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

var languageTag = regexp.MustCompile(`^[A-Za-z]{2,3}([-_][A-Za-z0-9]{2,8})*$`)

type ImportArgs struct {
	ProjectID int64
	Language  string
	Filename  string
	// Format defaults to the one implied by Filename.
	Format    string
	Content   []byte
	UserID    string
	Overwrite bool
}

type ImportResult struct {
	Language  string `json:"language"`
	Entries   int    `json:"entries"`
	Written   int    `json:"written"`
	Unchanged int    `json:"unchanged"`
	Skipped   int    `json:"skipped"`
}

// Import parses one file and stores its entries for a language.
func (s *Service) Import(ctx context.Context, in ImportArgs) (ImportResult, error) {
	format := in.Format
	if format == "" {
		format = domain.FileTypeFromName(in.Filename)
	}
	parser, ok := s.d.Parsers.Get(format)
	if !ok {
		return ImportResult{}, errors.New("unsupported format: " + format)
	}
	pr, err := parser.Parse(in.Content)
	if err != nil {
		return ImportResult{}, &domain.ParseError{Path: in.Filename, Format: format, Err: err}
	}
	code := in.Language
	if code == "" {
		if c := locator.CodeFromName(in.Filename); languageTag.MatchString(c) {
			code = c
		}
	}
	lang, err := s.attachLanguage(ctx, in.ProjectID, code)
	if err != nil {
		return ImportResult{}, err
	}
	res := ImportResult{Language: lang.Code, Entries: len(pr.Entries)}
	err = s.store(ctx, in.ProjectID, lang, pr.Entries, in.UserID, "Imported from "+in.Filename, in.Overwrite, &res)
	return res, err
}

type RemoteArgs struct {
	ProjectID int64
	UserID    string
	Overwrite bool
}

type RemoteResult struct {
	Languages  []string       `json:"languages"`
	Files      []string       `json:"files"`
	Ignored    []string       `json:"ignored,omitempty"`
	FileErrors []string       `json:"file_errors,omitempty"`
	Totals     ImportResult   `json:"totals"`
	ByLanguage map[string]int `json:"by_language"`
}

// ImportRemote reads every translation file of the project's repository.
// The language of a file comes from its name ("de.json"), or from a project
// language it maps onto. Unknown languages are created and attached.
func (s *Service) ImportRemote(ctx context.Context, a RemoteArgs) (RemoteResult, error) {
	res := RemoteResult{ByLanguage: map[string]int{}}
	in, err := s.d.Integrations.GetByProject(ctx, a.ProjectID)
	if err != nil {
		return res, err
	}
	if in == nil {
		return res, domain.ErrNoIntegration
	}
	if !in.IsConnected {
		return res, domain.ErrDisconnected
	}
	err = s.importRemote(ctx, in, a, &res)
	h := &domain.SyncHistory{
		ProjectID:     a.ProjectID,
		IntegrationID: in.ID,
		Kind:          domain.SyncKindImport,
		Status:        domain.SyncStatusSuccess,
		Details: domain.SyncDetails{
			Repository: in.Config.Repository,
			Branch:     in.Config.Branch,
			FileCount:  len(res.Files),
		},
	}
	for _, p := range res.Files {
		h.Details.Files = append(h.Details.Files, domain.SyncFile{Path: p})
	}
	if err != nil {
		h.Status = domain.SyncStatusFailed
		h.Details.Stage = domain.StageImporting
		h.Details.Error = err.Error()
	}
	if herr := s.d.History.Create(ctx, h); herr != nil {
		s.d.Log.Warn("import: record sync history", "error", herr)
	}
	if err != nil {
		return res, err
	}
	now := time.Now().UTC()
	if err := s.d.Integrations.UpdateStatus(ctx, in.ID, true, &now); err != nil {
		return res, err
	}
	s.d.Log.Info("import finished", "project", a.ProjectID, "files", len(res.Files),
		"written", res.Totals.Written, "skipped", res.Totals.Skipped)
	return res, nil
}

func (s *Service) importRemote(ctx context.Context, in *domain.Integration, a RemoteArgs, res *RemoteResult) error {
	sc, err := s.d.BuildSourceControl(in)
	if err != nil {
		return err
	}
	snap, err := s.d.Locator.Snapshot(ctx, sc, in.Config)
	if err != nil {
		return err
	}
	for _, pe := range snap.Errors {
		res.FileErrors = append(res.FileErrors, pe.Error())
	}
	langs, err := s.d.Projects.ListLanguages(ctx, a.ProjectID)
	if err != nil {
		return err
	}
	codes := make([]string, 0, len(langs))
	for _, l := range langs {
		codes = append(codes, l.Code)
	}

	groups := map[string][]locator.File{}
	var order []string
	for _, f := range snap.Files {
		code, ok := locator.LanguageFor(f.Path, codes)
		if !ok {
			code = locator.CodeFromName(f.Name)
			if !languageTag.MatchString(code) {
				res.Ignored = append(res.Ignored, f.Path)
				continue
			}
		}
		if _, seen := groups[code]; !seen {
			order = append(order, code)
		}
		groups[code] = append(groups[code], f)
		res.Files = append(res.Files, f.Path)
	}

	source := fmt.Sprintf("Initial import from %s:%s", providerName(in.Provider), in.Config.Repository)
	for _, code := range order {
		lang, err := s.attachLanguage(ctx, a.ProjectID, code)
		if err != nil {
			return err
		}
		entries := locator.ConcatEntries(groups[code])
		r := ImportResult{Language: lang.Code, Entries: len(entries)}
		if err := s.store(ctx, a.ProjectID, lang, entries, a.UserID, source, a.Overwrite, &r); err != nil {
			return err
		}
		res.Languages = append(res.Languages, lang.Code)
		res.ByLanguage[lang.Code] = r.Written
		res.Totals.Entries += r.Entries
		res.Totals.Written += r.Written
		res.Totals.Unchanged += r.Unchanged
		res.Totals.Skipped += r.Skipped
	}
	return nil
}

func (s *Service) attachLanguage(ctx context.Context, projectID int64, code string) (*domain.Language, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		v := &domain.ValidationError{}
		v.Add("language", "is required")
		return nil, v
	}
	lang, err := s.d.Languages.Ensure(ctx, code, code)
	if err != nil {
		return nil, fmt.Errorf("ensure language %s: %w", code, err)
	}
	if err := s.d.Projects.AddLanguage(ctx, projectID, lang.ID); err != nil {
		return nil, fmt.Errorf("attach language %s: %w", code, err)
	}
	return lang, nil
}

// store writes entries in file order. Without overwrite, keys that already
// have a value are left alone.
func (s *Service) store(ctx context.Context, projectID int64, lang *domain.Language, entries []domain.Entry, userID, versionName string, overwrite bool, res *ImportResult) error {
	have := map[string]bool{}
	if !overwrite {
		rows, err := s.d.Translations.ListByProjectLanguage(ctx, projectID, lang.ID)
		if err != nil {
			return err
		}
		for _, t := range rows {
			if t.Content != "" {
				have[t.Key] = true
			}
		}
	}
	for _, e := range entries {
		if have[e.Key] {
			res.Skipped++
			continue
		}
		_, changed, err := s.d.Writer.Save(ctx, translations.SaveArgs{
			ProjectID:   projectID,
			LanguageID:  lang.ID,
			Key:         e.Key,
			Content:     e.Value,
			Status:      domain.StatusApproved,
			ChangedBy:   userID,
			VersionName: versionName,
		})
		if err != nil {
			return err
		}
		if changed {
			res.Written++
		} else {
			res.Unchanged++
		}
	}
	return nil
}

func providerName(p string) string {
	if p == "" {
		return domain.ProviderGitHub
	}
	return p
}
