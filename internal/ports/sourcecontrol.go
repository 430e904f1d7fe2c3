package ports

import (
	"context"
	"linguaflow/internal/domain"
)

type DirEntry struct {
	Name  string
	Path  string
	IsDir bool
}

type PullRequestInput struct {
	Title string
	Body  string
	Head  string
	Base  string
}

type PullRequest struct {
	Number int
	URL    string
}

const (
	PullRequestOpen   = "open"
	PullRequestClosed = "closed"
	PullRequestMerged = "merged"
)

// PullRequestRef names a pull request an earlier OpenPullRequest returned.
type PullRequestRef struct {
	Number int
	URL    string
	Head   string
	Base   string
}

// SourceControl is the narrow read/write contract the sync engine needs from a
// repository host. Missing paths are reported with domain.ErrNotFound.
type SourceControl interface {
	ListDirectory(ctx context.Context, repo, branch, dir string) ([]DirEntry, error)
	GetFileContent(ctx context.Context, repo, path, branch string) ([]byte, error)
	CreateBranch(ctx context.Context, repo, baseBranch, newBranch string) error
	CommitFile(ctx context.Context, repo, branch, path string, content []byte, message string) error
	OpenPullRequest(ctx context.Context, repo string, in PullRequestInput) (*PullRequest, error)
	// PullRequestState reports one of PullRequestOpen, PullRequestClosed or
	// PullRequestMerged.
	PullRequestState(ctx context.Context, repo string, pr PullRequestRef) (string, error)
}

type Branch struct {
	Name      string `json:"name"`
	Protected bool   `json:"protected"`
}

// BranchLister is implemented by hosts that can enumerate branches.
type BranchLister interface {
	ListBranches(ctx context.Context, repo string) ([]Branch, error)
}

type Repository struct {
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
}

// RepositoryLister is implemented by hosts that can enumerate the
// repositories visible to the configured credentials.
type RepositoryLister interface {
	ListRepositories(ctx context.Context) ([]Repository, error)
}

// SourceControlFactory builds the adapter for one integration.
type SourceControlFactory func(in *domain.Integration) (SourceControl, error)
