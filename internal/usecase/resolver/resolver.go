// Package resolver writes resolved conflict values into local storage.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
	"linguaflow/internal/usecase/translations"
)

type Service struct {
	Projects    ports.ProjectRepository
	Writer      *translations.Writer
	Concurrency int
	Log         *slog.Logger
}

func New(projects ports.ProjectRepository, w *translations.Writer, concurrency int, log *slog.Logger) *Service {
	if concurrency <= 0 {
		concurrency = 4
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{Projects: projects, Writer: w, Concurrency: concurrency, Log: log}
}

type ApplyResult struct {
	Written   int            `json:"written"`
	Unchanged int            `json:"unchanged"`
	ByLang    map[string]int `json:"by_language"`
}

type task struct {
	code    string
	langID  int64
	entries []domain.ResolvedEntry
}

// Apply validates the whole batch and then writes every entry. Entries for
// the same key and language are written in submission order; other keys are
// written concurrently. Nothing is written if validation fails; the first
// failed write stops the entries not yet started.
func (s *Service) Apply(ctx context.Context, projectID int64, userID string, resolved map[string][]domain.ResolvedEntry) (ApplyResult, error) {
	res := ApplyResult{ByLang: map[string]int{}}
	langs, err := s.Projects.ListLanguages(ctx, projectID)
	if err != nil {
		return res, fmt.Errorf("load languages: %w", err)
	}
	byCode := make(map[string]int64, len(langs))
	for _, l := range langs {
		byCode[l.Code] = l.ID
	}

	codes := make([]string, 0, len(resolved))
	for c := range resolved {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	var v domain.ValidationError
	var tasks []*task
	for _, code := range codes {
		langID, ok := byCode[code]
		if !ok {
			v.Add("resolutions."+code, "language is not part of the project")
			continue
		}
		byKey := map[string]*task{}
		for i, e := range resolved[code] {
			field := fmt.Sprintf("resolutions.%s[%d]", code, i)
			switch {
			case strings.TrimSpace(e.Key) == "":
				v.Add(field, "key must not be empty")
				continue
			case e.Type != "" && !e.Type.Valid():
				v.Add(field, fmt.Sprintf("unknown resolution type %q", e.Type))
				continue
			case e.Type == domain.ResolveManual && strings.TrimSpace(e.Value) == "":
				v.Add(field, "manual value must not be empty")
				continue
			}
			t, ok := byKey[e.Key]
			if !ok {
				t = &task{code: code, langID: langID}
				byKey[e.Key] = t
				tasks = append(tasks, t)
			}
			t.entries = append(t.entries, e)
		}
	}
	if err := v.ErrOrNil(); err != nil {
		return res, err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Concurrency)
	for _, t := range tasks {
		g.Go(func() error {
			for _, e := range t.entries {
				if err := gctx.Err(); err != nil {
					return err
				}
				_, changed, err := s.Writer.Save(gctx, translations.SaveArgs{
					ProjectID:   projectID,
					LanguageID:  t.langID,
					Key:         e.Key,
					Content:     e.Value,
					Status:      domain.StatusApproved,
					ChangedBy:   userID,
					VersionName: versionName(e.Type),
				})
				if err != nil {
					return fmt.Errorf("apply %s/%s: %w", t.code, e.Key, err)
				}
				mu.Lock()
				if changed {
					res.Written++
					res.ByLang[t.code]++
				} else {
					res.Unchanged++
				}
				mu.Unlock()
			}
			return nil
		})
	}
	err = g.Wait()
	s.Log.Info("resolutions applied", "project", projectID, "written", res.Written, "unchanged", res.Unchanged, "error", err)
	return res, err
}

func versionName(t domain.ResolutionType) string {
	if t == "" {
		return ""
	}
	return "Resolved conflict (" + string(t) + ")"
}
