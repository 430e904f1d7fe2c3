// Package integrations manages the link between a project and its repository.
package integrations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
)

const DefaultHistoryLimit = 5

type Service struct {
	Projects     ports.ProjectRepository
	Integrations ports.IntegrationRepository
	History      ports.SyncHistoryRepository
	// BuildSourceControl returns the adapter for an integration.
	BuildSourceControl ports.SourceControlFactory
	Log                *slog.Logger
}

func New(projects ports.ProjectRepository, integrations ports.IntegrationRepository, history ports.SyncHistoryRepository, build ports.SourceControlFactory, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{Projects: projects, Integrations: integrations, History: history, BuildSourceControl: build, Log: log}
}

type ConnectArgs struct {
	ProjectID int64
	Provider  string
	Config    domain.RepoConfig
	// VerifyBranch checks that the branch exists when the host can list branches.
	VerifyBranch bool
}

func (s *Service) Connect(ctx context.Context, a ConnectArgs) (*domain.Integration, error) {
	p, err := s.Projects.Get(ctx, a.ProjectID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("project %d: %w", a.ProjectID, domain.ErrNotFound)
	}
	provider := a.Provider
	if provider == "" {
		provider = domain.ProviderGitHub
	}
	in := &domain.Integration{ProjectID: a.ProjectID, Provider: provider, Config: a.Config.Normalize(), IsConnected: true}
	if err := in.Config.Validate(provider); err != nil {
		return nil, err
	}
	if a.VerifyBranch {
		if err := s.verifyBranch(ctx, in); err != nil {
			return nil, err
		}
	}
	if err := s.Integrations.Create(ctx, in); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("project %d already has an integration: %w", a.ProjectID, err)
		}
		return nil, err
	}
	s.Log.Info("integration connected", "project", a.ProjectID, "provider", provider, "repository", in.Config.Repository)
	return in, nil
}

func (s *Service) verifyBranch(ctx context.Context, in *domain.Integration) error {
	sc, err := s.BuildSourceControl(in)
	if err != nil {
		return err
	}
	bl, ok := sc.(ports.BranchLister)
	if !ok {
		return nil
	}
	branches, err := bl.ListBranches(ctx, in.Config.Repository)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(branches, func(b ports.Branch) bool { return b.Name == in.Config.Branch }) {
		v := &domain.ValidationError{}
		v.Add("branch", fmt.Sprintf("%q not found in %s", in.Config.Branch, in.Config.Repository))
		return v
	}
	return nil
}

// Get returns the project's integration or ErrNoIntegration.
func (s *Service) Get(ctx context.Context, projectID int64) (*domain.Integration, error) {
	in, err := s.Integrations.GetByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if in == nil {
		return nil, domain.ErrNoIntegration
	}
	return in, nil
}

func (s *Service) UpdateConfig(ctx context.Context, projectID int64, cfg domain.RepoConfig) (*domain.Integration, error) {
	in, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	cfg = cfg.Normalize()
	if err := cfg.Validate(in.Provider); err != nil {
		return nil, err
	}
	if err := s.Integrations.UpdateConfig(ctx, in.ID, cfg); err != nil {
		return nil, err
	}
	return s.Integrations.Get(ctx, in.ID)
}

// SetConnected flips the connectivity flag and keeps the last sync time.
func (s *Service) SetConnected(ctx context.Context, projectID int64, connected bool) (*domain.Integration, error) {
	in, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.Integrations.UpdateStatus(ctx, in.ID, connected, nil); err != nil {
		return nil, err
	}
	s.Log.Info("integration status changed", "project", projectID, "connected", connected)
	return s.Integrations.Get(ctx, in.ID)
}

func (s *Service) Delete(ctx context.Context, projectID int64) error {
	in, err := s.Get(ctx, projectID)
	if err != nil {
		return err
	}
	return s.Integrations.Delete(ctx, in.ID)
}

// RecentHistory lists the newest sync attempts, DefaultHistoryLimit when limit <= 0.
func (s *Service) RecentHistory(ctx context.Context, projectID int64, limit int) ([]*domain.SyncHistory, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.History.ListByProject(ctx, projectID, limit)
}

// LatestSync is the newest sync attempt of any kind, or nil.
func (s *Service) LatestSync(ctx context.Context, projectID int64) (*domain.SyncHistory, error) {
	in, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.History.Latest(ctx, projectID, in.ID, "", "")
}

// ListBranches lists branches of repository for the given provider.
func (s *Service) ListBranches(ctx context.Context, provider, repository string) ([]ports.Branch, error) {
	sc, err := s.BuildSourceControl(&domain.Integration{Provider: provider, Config: domain.RepoConfig{Repository: repository}})
	if err != nil {
		return nil, err
	}
	bl, ok := sc.(ports.BranchLister)
	if !ok {
		return nil, fmt.Errorf("provider %q cannot list branches", provider)
	}
	return bl.ListBranches(ctx, repository)
}

// ListRepositories lists the repositories the provider's credentials can see.
func (s *Service) ListRepositories(ctx context.Context, provider string) ([]ports.Repository, error) {
	sc, err := s.BuildSourceControl(&domain.Integration{Provider: provider})
	if err != nil {
		return nil, err
	}
	rl, ok := sc.(ports.RepositoryLister)
	if !ok {
		return nil, fmt.Errorf("provider %q cannot list repositories", provider)
	}
	return rl.ListRepositories(ctx)
}
