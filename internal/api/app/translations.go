package app

import (
	"context"
	"fmt"

	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
	"linguaflow/internal/usecase/translations"
)

type TranslationsAPI struct {
	projects ports.ProjectRepository
	keys     ports.KeyRepository
	repo     ports.TranslationRepository
	writer   *translations.Writer
}

func NewTranslationsAPI(projects ports.ProjectRepository, keys ports.KeyRepository, repo ports.TranslationRepository, w *translations.Writer) *TranslationsAPI {
	return &TranslationsAPI{projects: projects, keys: keys, repo: repo, writer: w}
}

type UpsertTranslationRequest struct {
	ProjectID int64  `json:"project_id"`
	Language  string `json:"language"`
	Key       string `json:"key"`
	Content   string `json:"content"`
	Status    string `json:"status"`
	UserID    string `json:"user_id"`
}

type UpsertTranslationResponse struct {
	Translation *domain.Translation `json:"translation"`
	Changed     bool                `json:"changed"`
}

// Upsert is a manual edit of one translation.
func (a *TranslationsAPI) Upsert(ctx context.Context, req UpsertTranslationRequest) (UpsertTranslationResponse, error) {
	switch req.Status {
	case "", domain.StatusApproved, domain.StatusPending:
	default:
		v := &domain.ValidationError{}
		v.Add("status", fmt.Sprintf("unknown status %q", req.Status))
		return UpsertTranslationResponse{}, v
	}
	lang, err := a.language(ctx, req.ProjectID, req.Language)
	if err != nil {
		return UpsertTranslationResponse{}, err
	}
	t, changed, err := a.writer.Save(ctx, translations.SaveArgs{
		ProjectID:   req.ProjectID,
		LanguageID:  lang.ID,
		Key:         req.Key,
		Content:     req.Content,
		Status:      req.Status,
		ChangedBy:   req.UserID,
		VersionName: "Manual edit",
	})
	if err != nil {
		return UpsertTranslationResponse{}, err
	}
	return UpsertTranslationResponse{Translation: t, Changed: changed}, nil
}

func (a *TranslationsAPI) List(ctx context.Context, projectID int64, language string) ([]*domain.Translation, error) {
	lang, err := a.language(ctx, projectID, language)
	if err != nil {
		return nil, err
	}
	return a.repo.ListByProjectLanguage(ctx, projectID, lang.ID)
}

// Versions lists the history of one key in one language, oldest first.
func (a *TranslationsAPI) Versions(ctx context.Context, projectID int64, language, key string) ([]*domain.VersionHistory, error) {
	lang, err := a.language(ctx, projectID, language)
	if err != nil {
		return nil, err
	}
	k, err := a.keys.GetByName(ctx, projectID, key)
	if err != nil {
		return nil, err
	}
	if k == nil {
		return nil, fmt.Errorf("key %q: %w", key, domain.ErrNotFound)
	}
	t, err := a.repo.Get(ctx, k.ID, lang.ID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("translation %s/%s: %w", language, key, domain.ErrNotFound)
	}
	return a.repo.ListVersions(ctx, t.ID)
}

func (a *TranslationsAPI) Keys(ctx context.Context, projectID int64) ([]*domain.TranslationKey, error) {
	return a.keys.List(ctx, projectID)
}

// RenameKey changes a key's text; its translations and history stay attached.
func (a *TranslationsAPI) RenameKey(ctx context.Context, projectID int64, from, to string) error {
	k, err := a.keys.GetByName(ctx, projectID, from)
	if err != nil {
		return err
	}
	if k == nil {
		return fmt.Errorf("key %q: %w", from, domain.ErrNotFound)
	}
	return a.keys.Rename(ctx, k.ID, to)
}

func (a *TranslationsAPI) language(ctx context.Context, projectID int64, code string) (*domain.Language, error) {
	langs, err := a.projects.ListLanguages(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, l := range langs {
		if l.Code == code {
			return l, nil
		}
	}
	return nil, fmt.Errorf("language %q in project %d: %w", code, projectID, domain.ErrNotFound)
}
