// Package memory is an in-process source-control host. It backs tests and dry
// runs and can be told to fail any operation.
package memory

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
)

const (
	OpListDirectory    = "ListDirectory"
	OpGetFileContent   = "GetFileContent"
	OpCreateBranch     = "CreateBranch"
	OpCommitFile       = "CommitFile"
	OpOpenPullRequest  = "OpenPullRequest"
	OpListBranches     = "ListBranches"
	OpPullRequestState = "PullRequestState"
	OpListRepositories = "ListRepositories"
)

type Commit struct {
	Branch  string
	Path    string
	Message string
}

type PullRequest struct {
	Number int
	Input  ports.PullRequestInput
	Merged bool
	Closed bool
}

type repository struct {
	branches map[string]map[string][]byte
	commits  []Commit
	pulls    []*PullRequest
}

type Host struct {
	mu    sync.Mutex
	repos map[string]*repository
	fail  map[string]error
	calls map[string]int
}

func New() *Host {
	return &Host{
		repos: make(map[string]*repository),
		fail:  make(map[string]error),
		calls: make(map[string]int),
	}
}

// Seed creates or replaces the files of a branch.
func (h *Host) Seed(repo, branch string, files map[string]string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.repo(repo)
	tree := make(map[string][]byte, len(files))
	for p, c := range files {
		tree[strings.Trim(p, "/")] = []byte(c)
	}
	r.branches[branch] = tree
}

// FailOn makes every later call of op return err. A nil err clears it.
func (h *Host) FailOn(op string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.fail, op)
		return
	}
	h.fail[op] = err
}

func (h *Host) Calls(op string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[op]
}

func (h *Host) File(repo, branch, p string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.repos[repo]
	if !ok {
		return "", false
	}
	b, ok := r.branches[branch][p]
	return string(b), ok
}

func (h *Host) Commits(repo string) []Commit {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.repos[repo]; ok {
		return append([]Commit(nil), r.commits...)
	}
	return nil
}

func (h *Host) PullRequests(repo string) []PullRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.repos[repo]
	if !ok {
		return nil
	}
	out := make([]PullRequest, 0, len(r.pulls))
	for _, pr := range r.pulls {
		out = append(out, *pr)
	}
	return out
}

// MergePullRequest copies the head branch's files onto the base branch.
func (h *Host) MergePullRequest(repo string, number int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	pr, err := h.pull(repo, number)
	if err != nil {
		return err
	}
	r := h.repos[repo]
	head, ok := r.branches[pr.Input.Head]
	if !ok {
		return fmt.Errorf("branch %s: %w", pr.Input.Head, domain.ErrNotFound)
	}
	r.branches[pr.Input.Base] = cloneTree(head)
	pr.Merged = true
	return nil
}

// ClosePullRequest closes a pull request without merging it.
func (h *Host) ClosePullRequest(repo string, number int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	pr, err := h.pull(repo, number)
	if err != nil {
		return err
	}
	pr.Closed = true
	return nil
}

func (h *Host) pull(repo string, number int) (*PullRequest, error) {
	r, ok := h.repos[repo]
	if !ok {
		return nil, fmt.Errorf("repo %s: %w", repo, domain.ErrNotFound)
	}
	for _, pr := range r.pulls {
		if pr.Number == number {
			return pr, nil
		}
	}
	return nil, fmt.Errorf("pull request %d: %w", number, domain.ErrNotFound)
}

func (h *Host) repo(name string) *repository {
	r, ok := h.repos[name]
	if !ok {
		r = &repository{branches: make(map[string]map[string][]byte)}
		h.repos[name] = r
	}
	return r
}

// begin records a call and returns the injected failure, if any. Callers hold h.mu.
func (h *Host) begin(op string) error {
	h.calls[op]++
	if err, ok := h.fail[op]; ok {
		return err
	}
	return nil
}

func (h *Host) branch(repo, branch string) (map[string][]byte, error) {
	r, ok := h.repos[repo]
	if !ok {
		return nil, fmt.Errorf("repo %s: %w", repo, domain.ErrNotFound)
	}
	tree, ok := r.branches[branch]
	if !ok {
		return nil, fmt.Errorf("branch %s: %w", branch, domain.ErrNotFound)
	}
	return tree, nil
}

func (h *Host) ListDirectory(ctx context.Context, repo, branch, dir string) ([]ports.DirEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.begin(OpListDirectory); err != nil {
		return nil, err
	}
	tree, err := h.branch(repo, branch)
	if err != nil {
		return nil, err
	}
	dir = strings.Trim(dir, "/")
	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}
	seen := map[string]ports.DirEntry{}
	for p := range tree {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		name, _, nested := strings.Cut(rest, "/")
		seen[name] = ports.DirEntry{Name: name, Path: path.Join(dir, name), IsDir: nested}
	}
	if len(seen) == 0 && dir != "" {
		return nil, fmt.Errorf("list %s: %w", dir, domain.ErrNotFound)
	}
	out := make([]ports.DirEntry, 0, len(seen))
	for _, e := range seen {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (h *Host) GetFileContent(ctx context.Context, repo, p, branch string) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.begin(OpGetFileContent); err != nil {
		return nil, err
	}
	tree, err := h.branch(repo, branch)
	if err != nil {
		return nil, err
	}
	b, ok := tree[strings.Trim(p, "/")]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", p, domain.ErrNotFound)
	}
	return append([]byte(nil), b...), nil
}

func (h *Host) CreateBranch(ctx context.Context, repo, baseBranch, newBranch string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.begin(OpCreateBranch); err != nil {
		return err
	}
	base, err := h.branch(repo, baseBranch)
	if err != nil {
		return err
	}
	r := h.repos[repo]
	if _, ok := r.branches[newBranch]; ok {
		return fmt.Errorf("create branch %s: %w", newBranch, domain.ErrBranchExists)
	}
	r.branches[newBranch] = cloneTree(base)
	return nil
}

func (h *Host) CommitFile(ctx context.Context, repo, branch, p string, content []byte, message string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.begin(OpCommitFile); err != nil {
		return err
	}
	tree, err := h.branch(repo, branch)
	if err != nil {
		return err
	}
	p = strings.Trim(p, "/")
	tree[p] = append([]byte(nil), content...)
	r := h.repos[repo]
	r.commits = append(r.commits, Commit{Branch: branch, Path: p, Message: message})
	return nil
}

func (h *Host) OpenPullRequest(ctx context.Context, repo string, in ports.PullRequestInput) (*ports.PullRequest, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.begin(OpOpenPullRequest); err != nil {
		return nil, err
	}
	if _, err := h.branch(repo, in.Head); err != nil {
		return nil, err
	}
	r := h.repos[repo]
	pr := &PullRequest{Number: len(r.pulls) + 1, Input: in}
	r.pulls = append(r.pulls, pr)
	return &ports.PullRequest{Number: pr.Number, URL: fmt.Sprintf("memory://%s/pull/%d", repo, pr.Number)}, nil
}

func (h *Host) PullRequestState(ctx context.Context, repo string, ref ports.PullRequestRef) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.begin(OpPullRequestState); err != nil {
		return "", err
	}
	pr, err := h.pull(repo, ref.Number)
	if err != nil {
		return "", err
	}
	switch {
	case pr.Merged:
		return ports.PullRequestMerged, nil
	case pr.Closed:
		return ports.PullRequestClosed, nil
	}
	return ports.PullRequestOpen, nil
}

func (h *Host) ListBranches(ctx context.Context, repo string) ([]ports.Branch, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.begin(OpListBranches); err != nil {
		return nil, err
	}
	r, ok := h.repos[repo]
	if !ok {
		return nil, fmt.Errorf("repo %s: %w", repo, domain.ErrNotFound)
	}
	out := make([]ports.Branch, 0, len(r.branches))
	for name := range r.branches {
		out = append(out, ports.Branch{Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func cloneTree(in map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(in))
	for k, v := range in {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

// ListRepositories lists every seeded repository by name.
func (h *Host) ListRepositories(ctx context.Context) ([]ports.Repository, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.begin(OpListRepositories); err != nil {
		return nil, err
	}
	out := make([]ports.Repository, 0, len(h.repos))
	for name, r := range h.repos {
		repo := ports.Repository{FullName: name}
		if _, ok := r.branches["main"]; ok {
			repo.DefaultBranch = "main"
		}
		out = append(out, repo)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}
