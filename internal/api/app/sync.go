package app

import (
	"context"

	"linguaflow/internal/domain"
	"linguaflow/internal/usecase/conflicts"
	"linguaflow/internal/usecase/publisher"
	"linguaflow/internal/usecase/resolver"
)

// SyncAPI is the pull, resolve and publish surface.
type SyncAPI struct {
	conflicts *conflicts.Service
	resolver  *resolver.Service
	publisher *publisher.Service
}

func NewSyncAPI(c *conflicts.Service, r *resolver.Service, p *publisher.Service) *SyncAPI {
	return &SyncAPI{conflicts: c, resolver: r, publisher: p}
}

func (a *SyncAPI) Pull(ctx context.Context, projectID int64) (*conflicts.PullResult, error) {
	return a.conflicts.Pull(ctx, projectID)
}

type ResolveRequest struct {
	ProjectID int64               `json:"project_id"`
	UserID    string              `json:"user_id"`
	Decisions conflicts.Decisions `json:"decisions"`
	// AutoPublish runs a publish after the resolutions were written.
	AutoPublish bool `json:"auto_publish"`
}

type ResolveResponse struct {
	Applied resolver.ApplyResult     `json:"applied"`
	Skipped []string                 `json:"skipped,omitempty"`
	Publish *publisher.PublishResult `json:"publish,omitempty"`
}

// Resolve detects conflicts again, turns the decisions into values and
// writes them. Decisions for keys that no longer conflict are skipped.
func (a *SyncAPI) Resolve(ctx context.Context, req ResolveRequest) (ResolveResponse, error) {
	var out ResolveResponse
	pulled, err := a.conflicts.Pull(ctx, req.ProjectID)
	if err != nil {
		return out, err
	}
	resolved, skipped, err := conflicts.BuildResolutions(pulled.Conflicts, req.Decisions)
	if err != nil {
		return out, err
	}
	for _, e := range skipped {
		out.Skipped = append(out.Skipped, e.Error())
	}
	out.Applied, err = a.resolver.Apply(ctx, req.ProjectID, req.UserID, resolved)
	if err != nil {
		return out, err
	}
	if req.AutoPublish {
		res, err := a.Publish(ctx, PublishRequest{ProjectID: req.ProjectID, UserID: req.UserID})
		if err != nil {
			return out, err
		}
		out.Publish = &res
	}
	return out, nil
}

// Apply writes already resolved values without re-detecting.
func (a *SyncAPI) Apply(ctx context.Context, projectID int64, userID string, resolved map[string][]domain.ResolvedEntry) (resolver.ApplyResult, error) {
	return a.resolver.Apply(ctx, projectID, userID, resolved)
}

type PublishRequest struct {
	ProjectID  int64  `json:"project_id"`
	Repository string `json:"repository"`
	BaseBranch string `json:"base_branch"`
	UserID     string `json:"user_id"`
}

func (a *SyncAPI) Publish(ctx context.Context, req PublishRequest) (publisher.PublishResult, error) {
	return a.publisher.Publish(ctx, publisher.PublishArgs{
		ProjectID:  req.ProjectID,
		Repository: req.Repository,
		BaseBranch: req.BaseBranch,
		UserID:     req.UserID,
	})
}
