package app

import (
	"context"

	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
	"linguaflow/internal/usecase/integrations"
)

type IntegrationAPI struct{ svc *integrations.Service }

func NewIntegrationAPI(svc *integrations.Service) *IntegrationAPI { return &IntegrationAPI{svc: svc} }

type ConnectRequest struct {
	ProjectID    int64             `json:"project_id"`
	Provider     string            `json:"provider"`
	Config       domain.RepoConfig `json:"config"`
	VerifyBranch bool              `json:"verify_branch"`
}

func (a *IntegrationAPI) Connect(ctx context.Context, req ConnectRequest) (*domain.Integration, error) {
	return a.svc.Connect(ctx, integrations.ConnectArgs{
		ProjectID:    req.ProjectID,
		Provider:     req.Provider,
		Config:       req.Config,
		VerifyBranch: req.VerifyBranch,
	})
}

func (a *IntegrationAPI) Get(ctx context.Context, projectID int64) (*domain.Integration, error) {
	return a.svc.Get(ctx, projectID)
}

func (a *IntegrationAPI) UpdateConfig(ctx context.Context, projectID int64, cfg domain.RepoConfig) (*domain.Integration, error) {
	return a.svc.UpdateConfig(ctx, projectID, cfg)
}

func (a *IntegrationAPI) SetConnected(ctx context.Context, projectID int64, connected bool) (*domain.Integration, error) {
	return a.svc.SetConnected(ctx, projectID, connected)
}

func (a *IntegrationAPI) Delete(ctx context.Context, projectID int64) (bool, error) {
	if err := a.svc.Delete(ctx, projectID); err != nil {
		return false, err
	}
	return true, nil
}

func (a *IntegrationAPI) History(ctx context.Context, projectID int64, limit int) ([]*domain.SyncHistory, error) {
	return a.svc.RecentHistory(ctx, projectID, limit)
}

func (a *IntegrationAPI) LatestSync(ctx context.Context, projectID int64) (*domain.SyncHistory, error) {
	return a.svc.LatestSync(ctx, projectID)
}

func (a *IntegrationAPI) Branches(ctx context.Context, provider, repository string) ([]ports.Branch, error) {
	return a.svc.ListBranches(ctx, provider, repository)
}

func (a *IntegrationAPI) Repositories(ctx context.Context, provider string) ([]ports.Repository, error) {
	return a.svc.ListRepositories(ctx, provider)
}
