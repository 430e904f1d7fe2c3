// Package localgit serves a git repository on the local filesystem through
// the source-control port. Reads come from branch trees and commits are
// written as objects, so the working tree is never touched.
package localgit

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
)

type Options struct {
	AuthorName  string
	AuthorEmail string
}

type Client struct {
	opts Options
	mu   sync.Mutex
}

func New(opts Options) *Client {
	if opts.AuthorName == "" {
		opts.AuthorName = "linguaflow"
	}
	if opts.AuthorEmail == "" {
		opts.AuthorEmail = "linguaflow@localhost"
	}
	return &Client{opts: opts}
}

func open(repo string) (*git.Repository, error) {
	r, err := git.PlainOpen(repo)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("open %s: %w", repo, domain.ErrNotFound)
		}
		return nil, &domain.RemoteAccessError{Op: "open " + repo, Err: err}
	}
	return r, nil
}

func branchTree(r *git.Repository, branch string) (*object.Commit, *object.Tree, error) {
	ref, err := r.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil, fmt.Errorf("branch %s: %w", branch, domain.ErrNotFound)
		}
		return nil, nil, &domain.RemoteAccessError{Op: "resolve " + branch, Err: err}
	}
	c, err := r.CommitObject(ref.Hash())
	if err != nil {
		return nil, nil, &domain.RemoteAccessError{Op: "read commit", Err: err}
	}
	t, err := c.Tree()
	if err != nil {
		return nil, nil, &domain.RemoteAccessError{Op: "read tree", Err: err}
	}
	return c, t, nil
}

func (c *Client) ListDirectory(ctx context.Context, repo, branch, dir string) ([]ports.DirEntry, error) {
	r, err := open(repo)
	if err != nil {
		return nil, err
	}
	_, tree, err := branchTree(r, branch)
	if err != nil {
		return nil, err
	}
	dir = strings.Trim(dir, "/")
	if dir != "" {
		if tree, err = tree.Tree(dir); err != nil {
			if errors.Is(err, object.ErrDirectoryNotFound) {
				return nil, fmt.Errorf("list %s: %w", dir, domain.ErrNotFound)
			}
			return nil, &domain.RemoteAccessError{Op: "list " + dir, Err: err}
		}
	}
	out := make([]ports.DirEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		if e.Mode == filemode.Submodule {
			continue
		}
		out = append(out, ports.DirEntry{Name: e.Name, Path: path.Join(dir, e.Name), IsDir: e.Mode == filemode.Dir})
	}
	return out, nil
}

func (c *Client) GetFileContent(ctx context.Context, repo, p, branch string) ([]byte, error) {
	r, err := open(repo)
	if err != nil {
		return nil, err
	}
	_, tree, err := branchTree(r, branch)
	if err != nil {
		return nil, err
	}
	f, err := tree.File(strings.Trim(p, "/"))
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("get %s: %w", p, domain.ErrNotFound)
		}
		return nil, &domain.RemoteAccessError{Op: "get " + p, Err: err}
	}
	s, err := f.Contents()
	if err != nil {
		return nil, &domain.RemoteAccessError{Op: "get " + p, Err: err}
	}
	return []byte(s), nil
}

func (c *Client) CreateBranch(ctx context.Context, repo, baseBranch, newBranch string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, err := open(repo)
	if err != nil {
		return err
	}
	if _, err := r.Reference(plumbing.NewBranchReferenceName(newBranch), false); err == nil {
		return fmt.Errorf("create branch %s: %w", newBranch, domain.ErrBranchExists)
	}
	base, err := r.Reference(plumbing.NewBranchReferenceName(baseBranch), true)
	if err != nil {
		return fmt.Errorf("branch %s: %w", baseBranch, domain.ErrNotFound)
	}
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(newBranch), base.Hash())
	if err := r.Storer.SetReference(ref); err != nil {
		return &domain.RemoteAccessError{Op: "create branch " + newBranch, Err: err}
	}
	return nil
}

// CommitFile writes content at p on branch as a new commit.
func (c *Client) CommitFile(ctx context.Context, repo, branch, p string, content []byte, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, err := open(repo)
	if err != nil {
		return err
	}
	head, tree, err := branchTree(r, branch)
	if err != nil {
		return err
	}
	blob := r.Storer.NewEncodedObject()
	blob.SetType(plumbing.BlobObject)
	w, err := blob.Writer()
	if err != nil {
		return &domain.RemoteAccessError{Op: "commit " + p, Err: err}
	}
	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return &domain.RemoteAccessError{Op: "commit " + p, Err: err}
	}
	if err := w.Close(); err != nil {
		return &domain.RemoteAccessError{Op: "commit " + p, Err: err}
	}
	blobHash, err := r.Storer.SetEncodedObject(blob)
	if err != nil {
		return &domain.RemoteAccessError{Op: "commit " + p, Err: err}
	}
	rootHash, err := c.putPath(r, tree, strings.Split(strings.Trim(p, "/"), "/"), blobHash)
	if err != nil {
		return &domain.RemoteAccessError{Op: "commit " + p, Err: err}
	}
	sig := object.Signature{Name: c.opts.AuthorName, Email: c.opts.AuthorEmail, When: time.Now()}
	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     rootHash,
		ParentHashes: []plumbing.Hash{head.Hash},
	}
	obj := r.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return &domain.RemoteAccessError{Op: "commit " + p, Err: err}
	}
	commitHash, err := r.Storer.SetEncodedObject(obj)
	if err != nil {
		return &domain.RemoteAccessError{Op: "commit " + p, Err: err}
	}
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(branch), commitHash)
	if err := r.Storer.SetReference(ref); err != nil {
		return &domain.RemoteAccessError{Op: "update " + branch, Err: err}
	}
	return nil
}

// putPath stores a copy of tree with parts pointing at blob and returns its hash.
// A nil tree is treated as empty.
func (c *Client) putPath(r *git.Repository, tree *object.Tree, parts []string, blob plumbing.Hash) (plumbing.Hash, error) {
	var entries []object.TreeEntry
	if tree != nil {
		entries = append(entries, tree.Entries...)
	}
	name := parts[0]
	idx := -1
	for i, e := range entries {
		if e.Name == name {
			idx = i
			break
		}
	}
	entry := object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: blob}
	if len(parts) > 1 {
		var sub *object.Tree
		if idx >= 0 && entries[idx].Mode == filemode.Dir {
			t, err := object.GetTree(r.Storer, entries[idx].Hash)
			if err != nil {
				return plumbing.ZeroHash, err
			}
			sub = t
		}
		h, err := c.putPath(r, sub, parts[1:], blob)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entry = object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: h}
	} else if idx >= 0 && entries[idx].Mode == filemode.Executable {
		entry.Mode = filemode.Executable
	}
	if idx >= 0 {
		entries[idx] = entry
	} else {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return sortName(entries[i]) < sortName(entries[j]) })

	obj := r.Storer.NewEncodedObject()
	if err := (&object.Tree{Entries: entries}).Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	return r.Storer.SetEncodedObject(obj)
}

// sortName is the key git orders tree entries by.
func sortName(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}

// OpenPullRequest cannot open a real pull request; it returns a compare
// reference that names both branches.
func (c *Client) OpenPullRequest(ctx context.Context, repo string, in ports.PullRequestInput) (*ports.PullRequest, error) {
	abs, err := filepath.Abs(repo)
	if err != nil {
		abs = repo
	}
	return &ports.PullRequest{URL: fmt.Sprintf("file://%s#%s...%s", filepath.ToSlash(abs), in.Base, in.Head)}, nil
}

// PullRequestState treats the head branch as the pull request: a deleted head
// is closed and a head already contained in the base is merged.
func (c *Client) PullRequestState(ctx context.Context, repo string, pr ports.PullRequestRef) (string, error) {
	r, err := open(repo)
	if err != nil {
		return "", err
	}
	head, _, err := branchTree(r, pr.Head)
	if errors.Is(err, domain.ErrNotFound) {
		return ports.PullRequestClosed, nil
	}
	if err != nil {
		return "", err
	}
	base, _, err := branchTree(r, pr.Base)
	if err != nil {
		return "", err
	}
	merged, err := head.IsAncestor(base)
	if err != nil {
		return "", &domain.RemoteAccessError{Op: "compare " + pr.Head, Err: err}
	}
	if merged {
		return ports.PullRequestMerged, nil
	}
	return ports.PullRequestOpen, nil
}

func (c *Client) ListBranches(ctx context.Context, repo string) ([]ports.Branch, error) {
	r, err := open(repo)
	if err != nil {
		return nil, err
	}
	iter, err := r.Branches()
	if err != nil {
		return nil, &domain.RemoteAccessError{Op: "list branches", Err: err}
	}
	var out []ports.Branch
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		out = append(out, ports.Branch{Name: ref.Name().Short()})
		return nil
	})
	if err != nil {
		return nil, &domain.RemoteAccessError{Op: "list branches", Err: err}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
