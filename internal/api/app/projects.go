package app

import (
	"context"
	"fmt"
	"strings"

	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
)

type ProjectAPI struct {
	repo  ports.ProjectRepository
	langs ports.LanguageRepository
}

func NewProjectAPI(repo ports.ProjectRepository, langs ports.LanguageRepository) *ProjectAPI {
	return &ProjectAPI{repo: repo, langs: langs}
}

// Create stores a project and attaches its source language.
func (a *ProjectAPI) Create(ctx context.Context, name, sourceLang string) (*domain.Project, error) {
	v := &domain.ValidationError{}
	if strings.TrimSpace(name) == "" {
		v.Add("name", "is required")
	}
	if strings.TrimSpace(sourceLang) == "" {
		v.Add("source_lang", "is required")
	}
	if err := v.ErrOrNil(); err != nil {
		return nil, err
	}
	p := &domain.Project{Name: strings.TrimSpace(name), SourceLang: strings.TrimSpace(sourceLang)}
	if err := a.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	if _, err := a.AddLanguage(ctx, p.ID, p.SourceLang, ""); err != nil {
		return nil, err
	}
	return p, nil
}

func (a *ProjectAPI) Get(ctx context.Context, id int64) (*domain.Project, error) {
	p, err := a.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("project %d: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

func (a *ProjectAPI) List(ctx context.Context) ([]*domain.Project, error) {
	return a.repo.List(ctx)
}

func (a *ProjectAPI) Delete(ctx context.Context, id int64) (bool, error) {
	if _, err := a.Get(ctx, id); err != nil {
		return false, err
	}
	if err := a.repo.Delete(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// AddLanguage creates the language if needed and attaches it to the project.
func (a *ProjectAPI) AddLanguage(ctx context.Context, projectID int64, code, name string) (*domain.Language, error) {
	if _, err := a.Get(ctx, projectID); err != nil {
		return nil, err
	}
	if name == "" {
		name = code
	}
	l, err := a.langs.Ensure(ctx, code, name)
	if err != nil {
		return nil, err
	}
	if err := a.repo.AddLanguage(ctx, projectID, l.ID); err != nil {
		return nil, err
	}
	return l, nil
}

func (a *ProjectAPI) ListLanguages(ctx context.Context, projectID int64) ([]*domain.Language, error) {
	return a.repo.ListLanguages(ctx, projectID)
}

// AllLanguages lists every known language, attached to a project or not.
func (a *ProjectAPI) AllLanguages(ctx context.Context) ([]*domain.Language, error) {
	return a.langs.List(ctx)
}
