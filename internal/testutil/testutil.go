// Package testutil builds a throwaway sqlite database and in-memory
// repository host for use-case tests.
package testutil

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"linguaflow/internal/adapters/db/sqlite"
	"linguaflow/internal/adapters/scm/memory"
	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
)

const (
	Repo   = "acme/app"
	Branch = "main"
)

type Env struct {
	DB           *sql.DB
	Projects     *sqlite.ProjectRepo
	Languages    *sqlite.LanguageRepo
	Keys         *sqlite.KeyRepo
	Translations *sqlite.TranslationRepo
	Integrations *sqlite.IntegrationRepo
	History      *sqlite.SyncHistoryRepo
	Host         *memory.Host
	Project      *domain.Project
	Langs        map[string]*domain.Language
}

// NewEnv creates a project with the given languages.
func NewEnv(t testing.TB, codes ...string) *Env {
	t.Helper()
	db, err := sqlite.Init(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	e := &Env{
		DB:           db,
		Projects:     sqlite.NewProjectRepo(db),
		Languages:    sqlite.NewLanguageRepo(db),
		Keys:         sqlite.NewKeyRepo(db),
		Translations: sqlite.NewTranslationRepo(db),
		Integrations: sqlite.NewIntegrationRepo(db),
		History:      sqlite.NewSyncHistoryRepo(db),
		Host:         memory.New(),
		Langs:        map[string]*domain.Language{},
	}
	ctx := context.Background()
	e.Project = &domain.Project{Name: "demo", SourceLang: "en"}
	if err := e.Projects.Create(ctx, e.Project); err != nil {
		t.Fatalf("create project: %v", err)
	}
	for _, c := range codes {
		e.AddLanguage(t, c)
	}
	return e
}

func (e *Env) AddLanguage(t testing.TB, code string) *domain.Language {
	t.Helper()
	ctx := context.Background()
	l, err := e.Languages.Ensure(ctx, code, code)
	if err != nil {
		t.Fatalf("ensure language %s: %v", code, err)
	}
	if err := e.Projects.AddLanguage(ctx, e.Project.ID, l.ID); err != nil {
		t.Fatalf("attach language %s: %v", code, err)
	}
	e.Langs[code] = l
	return l
}

// Connect stores a connected integration for Repo on Branch.
func (e *Env) Connect(t testing.TB, path string) *domain.Integration {
	t.Helper()
	in := &domain.Integration{
		ProjectID:   e.Project.ID,
		Provider:    domain.ProviderGitHub,
		Config:      domain.RepoConfig{Repository: Repo, Branch: Branch, TranslationPath: path},
		IsConnected: true,
	}
	if err := e.Integrations.Create(context.Background(), in); err != nil {
		t.Fatalf("create integration: %v", err)
	}
	return in
}

// SourceControl always returns the in-memory host.
func (e *Env) SourceControl() ports.SourceControlFactory {
	return func(*domain.Integration) (ports.SourceControl, error) { return e.Host, nil }
}

// Set stores an approved translation directly through the repositories.
func (e *Env) Set(t testing.TB, code, key, value string) {
	t.Helper()
	ctx := context.Background()
	k, err := e.Keys.Ensure(ctx, e.Project.ID, key)
	if err != nil {
		t.Fatalf("ensure key %s: %v", key, err)
	}
	_, _, err = e.Translations.Save(ctx, domain.TranslationChange{
		ProjectID:  e.Project.ID,
		KeyID:      k.ID,
		LanguageID: e.Langs[code].ID,
		Content:    value,
		Status:     domain.StatusApproved,
		ChangedBy:  "test",
	})
	if err != nil {
		t.Fatalf("save %s/%s: %v", code, key, err)
	}
}

// Local returns a language's stored values by key.
func (e *Env) Local(t testing.TB, code string) map[string]string {
	t.Helper()
	rows, err := e.Translations.ListByProjectLanguage(context.Background(), e.Project.ID, e.Langs[code].ID)
	if err != nil {
		t.Fatalf("list %s: %v", code, err)
	}
	out := map[string]string{}
	for _, r := range rows {
		out[r.Key] = r.Content
	}
	return out
}

// CountVersions counts every version row in the database.
func (e *Env) CountVersions(t testing.TB) int {
	t.Helper()
	var n int
	if err := e.DB.QueryRow(`SELECT COUNT(*) FROM version_history`).Scan(&n); err != nil {
		t.Fatalf("count versions: %v", err)
	}
	return n
}

func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
