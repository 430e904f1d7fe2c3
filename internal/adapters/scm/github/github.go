// Package github talks to the GitHub REST API (v3) for repository contents,
// branches and pull requests.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
)

const DefaultBaseURL = "https://api.github.com"

type Options struct {
	BaseURL     string
	Token       string
	AuthorName  string
	AuthorEmail string
	Timeout     time.Duration
}

type Client struct {
	opts Options
	http *resty.Client
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("X-GitHub-Api-Version", "2022-11-28").
		SetHeader("User-Agent", "linguaflow")
	if opts.Token != "" {
		c.SetAuthToken(opts.Token)
	}
	return &Client{opts: opts, http: c}
}

type apiError struct {
	Message string `json:"message"`
}

// check turns transport failures and error statuses into domain errors.
func check(op string, r *resty.Response, err error) error {
	if err != nil {
		return &domain.RemoteAccessError{Op: op, Err: err}
	}
	if !r.IsError() {
		return nil
	}
	msg := r.Status()
	if e, ok := r.Error().(*apiError); ok && e.Message != "" {
		msg = e.Message
	} else if e := (apiError{}); json.Unmarshal(r.Body(), &e) == nil && e.Message != "" {
		msg = e.Message
	}
	if r.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%s: %s: %w", op, msg, domain.ErrNotFound)
	}
	return &domain.RemoteAccessError{Op: op, Status: r.StatusCode(), Err: errors.New(msg)}
}

func (c *Client) req(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&apiError{})
}

type contentItem struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
}

func (c *Client) ListDirectory(ctx context.Context, repo, branch, dir string) ([]ports.DirEntry, error) {
	r, err := c.req(ctx).SetQueryParam("ref", branch).Get(contentsURL(repo, dir))
	if err := check("list "+dir, r, err); err != nil {
		return nil, err
	}
	raw := bytes.TrimSpace(r.Body())
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("list %s: not a directory: %w", dir, domain.ErrNotFound)
	}
	var items []contentItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &domain.RemoteAccessError{Op: "list " + dir, Err: err}
	}
	out := make([]ports.DirEntry, 0, len(items))
	for _, it := range items {
		out = append(out, ports.DirEntry{Name: it.Name, Path: it.Path, IsDir: it.Type == "dir"})
	}
	return out, nil
}

func (c *Client) GetFileContent(ctx context.Context, repo, path, branch string) ([]byte, error) {
	r, err := c.req(ctx).SetQueryParam("ref", branch).
		SetHeader("Accept", "application/vnd.github.raw+json").
		Get(contentsURL(repo, path))
	if err := check("get "+path, r, err); err != nil {
		return nil, err
	}
	return r.Body(), nil
}

func (c *Client) CreateBranch(ctx context.Context, repo, baseBranch, newBranch string) error {
	var ref struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	r, err := c.req(ctx).SetResult(&ref).
		Get(fmt.Sprintf("/repos/%s/git/ref/heads/%s", repo, escapePath(baseBranch)))
	if err := check("resolve branch "+baseBranch, r, err); err != nil {
		return err
	}
	r, err = c.req(ctx).
		SetBody(map[string]string{"ref": "refs/heads/" + newBranch, "sha": ref.Object.SHA}).
		Post(fmt.Sprintf("/repos/%s/git/refs", repo))
	if err == nil && r.StatusCode() == http.StatusUnprocessableEntity {
		return fmt.Errorf("create branch %s: %w", newBranch, domain.ErrBranchExists)
	}
	return check("create branch "+newBranch, r, err)
}

func (c *Client) CommitFile(ctx context.Context, repo, branch, path string, content []byte, message string) error {
	var cur contentItem
	r, err := c.req(ctx).SetQueryParam("ref", branch).SetResult(&cur).Get(contentsURL(repo, path))
	if err := check("get "+path, r, err); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	body := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  branch,
	}
	if cur.SHA != "" {
		body["sha"] = cur.SHA
	}
	if c.opts.AuthorName != "" && c.opts.AuthorEmail != "" {
		body["committer"] = map[string]string{"name": c.opts.AuthorName, "email": c.opts.AuthorEmail}
	}
	r, err = c.req(ctx).SetBody(body).Put(contentsURL(repo, path))
	return check("commit "+path, r, err)
}

func (c *Client) OpenPullRequest(ctx context.Context, repo string, in ports.PullRequestInput) (*ports.PullRequest, error) {
	var pr struct {
		Number  int    `json:"number"`
		HTMLURL string `json:"html_url"`
	}
	r, err := c.req(ctx).SetResult(&pr).
		SetBody(map[string]string{"title": in.Title, "body": in.Body, "head": in.Head, "base": in.Base}).
		Post(fmt.Sprintf("/repos/%s/pulls", repo))
	if err := check("open pull request", r, err); err != nil {
		return nil, err
	}
	return &ports.PullRequest{Number: pr.Number, URL: pr.HTMLURL}, nil
}

func (c *Client) PullRequestState(ctx context.Context, repo string, ref ports.PullRequestRef) (string, error) {
	if ref.Number <= 0 {
		return "", fmt.Errorf("pull request %q: %w", ref.URL, domain.ErrNotFound)
	}
	var pr struct {
		State  string `json:"state"`
		Merged bool   `json:"merged"`
	}
	r, err := c.req(ctx).SetResult(&pr).Get(fmt.Sprintf("/repos/%s/pulls/%d", repo, ref.Number))
	if err := check(fmt.Sprintf("get pull request %d", ref.Number), r, err); err != nil {
		return "", err
	}
	switch {
	case pr.Merged:
		return ports.PullRequestMerged, nil
	case pr.State == "open":
		return ports.PullRequestOpen, nil
	}
	return ports.PullRequestClosed, nil
}

// ListBranches pages through every branch of repo.
func (c *Client) ListBranches(ctx context.Context, repo string) ([]ports.Branch, error) {
	const perPage = 100
	var out []ports.Branch
	for page := 1; ; page++ {
		var batch []ports.Branch
		r, err := c.req(ctx).SetResult(&batch).
			SetQueryParam("per_page", fmt.Sprint(perPage)).
			SetQueryParam("page", fmt.Sprint(page)).
			Get(fmt.Sprintf("/repos/%s/branches", repo))
		if err := check("list branches", r, err); err != nil {
			return nil, err
		}
		out = append(out, batch...)
		if len(batch) < perPage {
			return out, nil
		}
	}
}

// ListRepositories pages through the repositories the token can see.
func (c *Client) ListRepositories(ctx context.Context) ([]ports.Repository, error) {
	const perPage = 100
	var out []ports.Repository
	for page := 1; ; page++ {
		var batch []ports.Repository
		r, err := c.req(ctx).SetResult(&batch).
			SetQueryParam("per_page", fmt.Sprint(perPage)).
			SetQueryParam("page", fmt.Sprint(page)).
			SetQueryParam("sort", "full_name").
			Get("/user/repos")
		if err := check("list repositories", r, err); err != nil {
			return nil, err
		}
		out = append(out, batch...)
		if len(batch) < perPage {
			return out, nil
		}
	}
}

func contentsURL(repo, p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return fmt.Sprintf("/repos/%s/contents", repo)
	}
	return fmt.Sprintf("/repos/%s/contents/%s", repo, escapePath(p))
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
