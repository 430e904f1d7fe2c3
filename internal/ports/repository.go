package ports

import (
	"context"
	"linguaflow/internal/domain"
	"time"
)

type ProjectRepository interface {
	Create(ctx context.Context, p *domain.Project) error
	Get(ctx context.Context, id int64) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
	Delete(ctx context.Context, id int64) error
	AddLanguage(ctx context.Context, projectID, languageID int64) error
	ListLanguages(ctx context.Context, projectID int64) ([]*domain.Language, error)
}

type LanguageRepository interface {
	Ensure(ctx context.Context, code, name string) (*domain.Language, error)
	GetByCode(ctx context.Context, code string) (*domain.Language, error)
	List(ctx context.Context) ([]*domain.Language, error)
}

type KeyRepository interface {
	Ensure(ctx context.Context, projectID int64, key string) (*domain.TranslationKey, error)
	GetByName(ctx context.Context, projectID int64, key string) (*domain.TranslationKey, error)
	List(ctx context.Context, projectID int64) ([]*domain.TranslationKey, error)
	Rename(ctx context.Context, id int64, key string) error
}

type TranslationRepository interface {
	// Save applies one content change and appends a version row when the
	// content or status actually changed. It reports whether it wrote.
	Save(ctx context.Context, c domain.TranslationChange) (*domain.Translation, bool, error)
	Get(ctx context.Context, keyID, languageID int64) (*domain.Translation, error)
	ListByProjectLanguage(ctx context.Context, projectID, languageID int64) ([]*domain.Translation, error)
	ListVersions(ctx context.Context, translationID int64) ([]*domain.VersionHistory, error)
}

type IntegrationRepository interface {
	Create(ctx context.Context, in *domain.Integration) error
	Get(ctx context.Context, id int64) (*domain.Integration, error)
	GetByProject(ctx context.Context, projectID int64) (*domain.Integration, error)
	UpdateConfig(ctx context.Context, id int64, cfg domain.RepoConfig) error
	UpdateStatus(ctx context.Context, id int64, connected bool, lastSynced *time.Time) error
	Delete(ctx context.Context, id int64) error
}

type SyncHistoryRepository interface {
	Create(ctx context.Context, h *domain.SyncHistory) error
	ListByProject(ctx context.Context, projectID int64, limit int) ([]*domain.SyncHistory, error)
	Latest(ctx context.Context, projectID, integrationID int64, kind, status string) (*domain.SyncHistory, error)
}
