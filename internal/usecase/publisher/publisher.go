// Package publisher merges local translations into the repository's
// translation files and proposes the result as a pull request.
package publisher

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	exreg "linguaflow/internal/adapters/exporter/registry"
	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
	"linguaflow/internal/usecase/locator"
)

type Options struct {
	BranchPrefix  string
	PRTitle       string
	CommitMessage string
}

func (o Options) withDefaults() Options {
	if o.BranchPrefix == "" {
		o.BranchPrefix = "linguaflow"
	}
	if o.PRTitle == "" {
		o.PRTitle = "Update translations"
	}
	if o.CommitMessage == "" {
		o.CommitMessage = "Update translations"
	}
	return o
}

type Deps struct {
	Projects     ports.ProjectRepository
	Translations ports.TranslationRepository
	Integrations ports.IntegrationRepository
	History      ports.SyncHistoryRepository
	Locator      *locator.Service
	Exporters    *exreg.Registry
	// BuildSourceControl returns the adapter for an integration.
	BuildSourceControl ports.SourceControlFactory
	Options            Options
	Log                *slog.Logger
	Now                func() time.Time
	NewID              func() string
}

type Service struct{ d Deps }

func New(d Deps) *Service {
	d.Options = d.Options.withDefaults()
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = func() string { return uuid.NewString() }
	}
	return &Service{d: d}
}

type PublishArgs struct {
	ProjectID int64
	// Repository and BaseBranch override the integration's config when set.
	Repository string
	BaseBranch string
	UserID     string
}

type PublishResult struct {
	PublishedURL      string            `json:"published_url,omitempty"`
	PullRequestNumber int               `json:"pull_request_number,omitempty"`
	HeadBranch        string            `json:"head_branch,omitempty"`
	NoChanges         bool              `json:"no_changes"`
	PendingURL        string            `json:"pending_url,omitempty"`
	Files             []domain.SyncFile `json:"files,omitempty"`
	Skipped           []string          `json:"skipped,omitempty"`
}

// change is one file that differs from the repository.
type change struct {
	path     string
	language string
	base     []byte
	content  []byte
}

// run carries one publish attempt's state between stages.
type run struct {
	args    PublishArgs
	in      *domain.Integration
	cfg     domain.RepoConfig
	sc      ports.SourceControl
	local   map[string][]domain.Entry
	codes   []string
	skipped []string
}

// Publish writes approved local values into the remote files. Nothing is
// proposed when no file would change. Failures are recorded in the sync
// history with the stage they happened in and returned as *PublishError.
// Local data is never modified.
func (s *Service) Publish(ctx context.Context, a PublishArgs) (PublishResult, error) {
	in, err := s.d.Integrations.GetByProject(ctx, a.ProjectID)
	if err != nil {
		return PublishResult{}, &domain.PublishError{Stage: domain.StageLoading, Err: err}
	}
	if in == nil {
		return PublishResult{}, &domain.PublishError{Stage: domain.StageLoading, Err: domain.ErrNoIntegration}
	}
	r := &run{args: a, in: in, cfg: in.Config}
	if a.Repository != "" {
		r.cfg.Repository = a.Repository
	}
	if a.BaseBranch != "" {
		r.cfg.Branch = a.BaseBranch
	}
	res, stage, err := s.publish(ctx, r)
	if err != nil {
		s.d.Log.Error("publish failed", "project", a.ProjectID, "stage", stage, "error", err)
		s.record(ctx, r, domain.SyncStatusFailed, domain.SyncDetails{Stage: stage, Error: err.Error()})
		return res, &domain.PublishError{Stage: stage, Err: err}
	}
	return res, nil
}

func (s *Service) publish(ctx context.Context, r *run) (PublishResult, string, error) {
	if !r.in.IsConnected {
		return PublishResult{}, domain.StageLoading, domain.ErrDisconnected
	}
	if err := r.cfg.Validate(r.in.Provider); err != nil {
		return PublishResult{}, domain.StageLoading, err
	}
	sc, err := s.d.BuildSourceControl(r.in)
	if err != nil {
		return PublishResult{}, domain.StageLoading, err
	}
	r.sc = sc
	if err := s.loadLocal(ctx, r); err != nil {
		return PublishResult{}, domain.StageLoading, err
	}

	files, err := locator.Locate(ctx, sc, r.cfg.Repository, r.cfg.Branch, r.cfg.TranslationPath, r.cfg.FilePattern)
	if err != nil {
		return PublishResult{}, domain.StageFinding, err
	}
	contents, err := s.d.Locator.Fetch(ctx, sc, r.cfg.Repository, r.cfg.Branch, files)
	if err != nil {
		return PublishResult{}, domain.StageFetching, err
	}
	changes, err := s.prepare(ctx, r, files, contents)
	if err != nil {
		return PublishResult{}, domain.StagePreparing, err
	}

	res := PublishResult{Skipped: r.skipped}
	if len(changes) == 0 {
		res.NoChanges = true
		s.d.Log.Info("publish: no changes", "project", r.args.ProjectID, "repository", r.cfg.Repository)
		s.record(ctx, r, domain.SyncStatusSuccess, domain.SyncDetails{Message: domain.MessageNoChanges})
		return res, "", nil
	}
	res.Files = syncFiles(changes)

	pending, err := s.pending(ctx, r, res.Files)
	if err != nil {
		return res, domain.StagePreparing, err
	}
	if pending != nil {
		res.NoChanges = true
		res.PendingURL = pending.PullRequestURL
		res.HeadBranch = pending.HeadBranch
		s.d.Log.Info("publish: identical pull request still open", "project", r.args.ProjectID, "url", pending.PullRequestURL)
		s.record(ctx, r, domain.SyncStatusSuccess, domain.SyncDetails{
			Message:           domain.MessageNoChanges,
			FileCount:         len(res.Files),
			Files:             res.Files,
			HeadBranch:        pending.HeadBranch,
			PullRequestURL:    pending.PullRequestURL,
			PullRequestNumber: pending.PullRequestNumber,
		})
		return res, "", nil
	}

	branch := s.branchName()
	if err := sc.CreateBranch(ctx, r.cfg.Repository, r.cfg.Branch, branch); err != nil {
		return res, domain.StageBranching, err
	}
	res.HeadBranch = branch
	for _, c := range changes {
		msg := fmt.Sprintf("%s (%s)", s.d.Options.CommitMessage, c.path)
		if err := sc.CommitFile(ctx, r.cfg.Repository, branch, c.path, c.content, msg); err != nil {
			return res, domain.StageCommit, fmt.Errorf("commit %s: %w", c.path, err)
		}
	}
	pr, err := sc.OpenPullRequest(ctx, r.cfg.Repository, ports.PullRequestInput{
		Title: s.d.Options.PRTitle,
		Body:  prBody(changes),
		Head:  branch,
		Base:  r.cfg.Branch,
	})
	if err != nil {
		return res, domain.StageOpenPR, err
	}
	res.PublishedURL = pr.URL
	res.PullRequestNumber = pr.Number

	now := s.d.Now().UTC()
	if err := s.d.Integrations.UpdateStatus(ctx, r.in.ID, true, &now); err != nil {
		s.d.Log.Warn("publish: update integration status", "error", err)
	}
	s.record(ctx, r, domain.SyncStatusSuccess, domain.SyncDetails{
		FileCount:         len(res.Files),
		Files:             res.Files,
		HeadBranch:        branch,
		PullRequestURL:    pr.URL,
		PullRequestNumber: pr.Number,
	})
	s.d.Log.Info("publish: pull request opened", "project", r.args.ProjectID, "url", pr.URL, "files", len(changes))
	return res, "", nil
}

// loadLocal collects approved, non-empty values per language in entry order.
func (s *Service) loadLocal(ctx context.Context, r *run) error {
	langs, err := s.d.Projects.ListLanguages(ctx, r.args.ProjectID)
	if err != nil {
		return fmt.Errorf("load languages: %w", err)
	}
	r.local = map[string][]domain.Entry{}
	for _, l := range langs {
		r.codes = append(r.codes, l.Code)
		rows, err := s.d.Translations.ListByProjectLanguage(ctx, r.args.ProjectID, l.ID)
		if err != nil {
			return fmt.Errorf("load %s translations: %w", l.Code, err)
		}
		var entries []domain.Entry
		for _, t := range rows {
			if t.Status != domain.StatusApproved || t.Content == "" {
				continue
			}
			entries = append(entries, domain.Entry{Key: t.Key, Value: t.Content, Position: len(entries)})
		}
		if len(entries) > 0 {
			r.local[l.Code] = entries
		}
	}
	return nil
}

// prepare renders every file that needs to change. Keys already in a file
// are updated there, keys in no file of the language go to its first file,
// and languages without any file get a new one.
func (s *Service) prepare(ctx context.Context, r *run, files []domain.FileDescriptor, contents [][]byte) ([]change, error) {
	var parsed []locator.File
	blocked := map[string]bool{}
	for i, fd := range files {
		if contents[i] == nil {
			continue
		}
		entries, err := s.d.Locator.Parse(fd, contents[i])
		if err != nil {
			var pe *domain.ParseError
			if !errors.As(err, &pe) {
				return nil, err
			}
			// a language whose file is unreadable is left alone
			if code, ok := locator.LanguageFor(fd.Path, r.codes); ok {
				blocked[code] = true
			}
			r.skipped = append(r.skipped, fd.Path)
			s.d.Log.Warn("publish: skipping unparsable file", "path", fd.Path, "error", pe.Err)
			continue
		}
		parsed = append(parsed, locator.File{FileDescriptor: fd, Content: contents[i], Entries: entries})
	}
	groups, _ := locator.GroupByLanguage(parsed, langsOf(r.codes))

	var out []change
	for _, code := range r.codes {
		local, ok := r.local[code]
		if !ok || blocked[code] {
			continue
		}
		group := groups[code]
		if len(group) == 0 {
			c, changed, err := s.newFile(ctx, r, code, files, local)
			if err != nil {
				return nil, err
			}
			if changed {
				out = append(out, c)
			}
			continue
		}
		placed := map[string]bool{}
		for _, f := range group {
			for _, e := range f.Entries {
				placed[e.Key] = true
			}
		}
		for i, f := range group {
			keys := map[string]bool{}
			for _, e := range f.Entries {
				keys[e.Key] = true
			}
			var entries []domain.Entry
			for _, e := range local {
				if keys[e.Key] || (i == 0 && !placed[e.Key]) {
					entries = append(entries, e)
				}
			}
			if len(entries) == 0 {
				continue
			}
			exp, ok := s.d.Exporters.Get(f.Type)
			if !ok {
				return nil, fmt.Errorf("no exporter for format %q (%s)", f.Type, f.Path)
			}
			body, err := exp.Export(code, entries, f.Content)
			if err != nil {
				return nil, fmt.Errorf("render %s: %w", f.Path, err)
			}
			if bytes.Equal(body, f.Content) {
				continue
			}
			out = append(out, change{path: f.Path, language: code, base: f.Content, content: body})
		}
	}
	return out, nil
}

// newFile renders the file for a language that has none yet. A file already
// sitting at the target path outside the located set is edited instead.
func (s *Service) newFile(ctx context.Context, r *run, code string, files []domain.FileDescriptor, entries []domain.Entry) (change, bool, error) {
	ext := domain.FormatJSON
	if len(files) > 0 {
		if e := strings.TrimPrefix(path.Ext(files[0].Name), "."); e != "" {
			ext = strings.ToLower(e)
		}
	}
	format := domain.FileTypeFromName("x." + ext)
	exp, ok := s.d.Exporters.Get(format)
	if !ok {
		ext, format = domain.FormatJSON, domain.FormatJSON
		exp, _ = s.d.Exporters.Get(format)
	}
	target := path.Join(r.cfg.TranslationPath, code+"."+ext)
	base, err := r.sc.GetFileContent(ctx, r.cfg.Repository, target, r.cfg.Branch)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		base = nil
	case err != nil:
		return change{}, false, err
	case base == nil:
		base = []byte{}
	}
	body, err := exp.Export(code, entries, base)
	if err != nil {
		return change{}, false, fmt.Errorf("render %s: %w", target, err)
	}
	if base != nil && bytes.Equal(body, base) {
		return change{}, false, nil
	}
	return change{path: target, language: code, base: base, content: body}, true, nil
}

// pending finds the last successful export when it proposed exactly these
// changes against the same base and repository and its pull request is still
// open. A closed, merged or deleted pull request is not pending.
func (s *Service) pending(ctx context.Context, r *run, files []domain.SyncFile) (*domain.SyncDetails, error) {
	last, err := s.d.History.Latest(ctx, r.args.ProjectID, r.in.ID, domain.SyncKindExport, domain.SyncStatusSuccess)
	if err != nil || last == nil {
		return nil, nil
	}
	d := last.Details
	if d.PullRequestURL == "" || d.Repository != r.cfg.Repository || d.Branch != r.cfg.Branch {
		return nil, nil
	}
	if len(d.Files) != len(files) {
		return nil, nil
	}
	for i := range files {
		if d.Files[i] != files[i] {
			return nil, nil
		}
	}
	state, err := r.sc.PullRequestState(ctx, r.cfg.Repository, ports.PullRequestRef{
		Number: d.PullRequestNumber,
		URL:    d.PullRequestURL,
		Head:   d.HeadBranch,
		Base:   d.Branch,
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("check pull request %s: %w", d.PullRequestURL, err)
	}
	if state != ports.PullRequestOpen {
		s.d.Log.Info("publish: previous pull request no longer open", "url", d.PullRequestURL, "state", state)
		return nil, nil
	}
	return &d, nil
}

func (s *Service) branchName() string {
	id := strings.ReplaceAll(s.d.NewID(), "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s/%s-%s", s.d.Options.BranchPrefix, s.d.Now().UTC().Format("20060102T150405Z"), id)
}

func (s *Service) record(ctx context.Context, r *run, status string, d domain.SyncDetails) {
	d.Repository = r.cfg.Repository
	d.Branch = r.cfg.Branch
	h := &domain.SyncHistory{
		ProjectID:     r.args.ProjectID,
		IntegrationID: r.in.ID,
		Kind:          domain.SyncKindExport,
		Status:        status,
		Details:       d,
	}
	if err := s.d.History.Create(ctx, h); err != nil {
		s.d.Log.Warn("publish: record sync history", "error", err)
	}
}

func syncFiles(changes []change) []domain.SyncFile {
	out := make([]domain.SyncFile, 0, len(changes))
	for _, c := range changes {
		f := domain.SyncFile{Path: c.path, Hash: hash(c.content)}
		if c.base != nil {
			f.BaseHash = hash(c.base)
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func hash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func prBody(changes []change) string {
	var b strings.Builder
	b.WriteString("Translation updates from LinguaFlow.\n\n")
	for _, c := range changes {
		verb := "update"
		if c.base == nil {
			verb = "add"
		}
		fmt.Fprintf(&b, "- %s `%s` (%s)\n", verb, c.path, c.language)
	}
	return b.String()
}

func langsOf(codes []string) []*domain.Language {
	out := make([]*domain.Language, 0, len(codes))
	for _, c := range codes {
		out = append(out, &domain.Language{Code: c})
	}
	return out
}
