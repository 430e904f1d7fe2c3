package localgit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/go-cmp/cmp"
	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
)

func initRepo(t *testing.T, files map[string]string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	for p, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := wt.Add(p); err != nil {
			t.Fatalf("add %s: %v", p, err)
		}
	}
	_, err = wt.Commit("init", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	head, err := repo.Head()
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	return dir, head.Name().Short()
}

func TestListDirectory(t *testing.T) {
	ctx := context.Background()
	dir, branch := initRepo(t, map[string]string{
		"locales/en.json":   `{"greeting":"Hi"}`,
		"locales/de/app.po": "",
		"README.md":         "readme",
	})
	c := New(Options{})

	got, err := c.ListDirectory(ctx, dir, branch, "locales")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []ports.DirEntry{
		{Name: "de", Path: "locales/de", IsDir: true},
		{Name: "en.json", Path: "locales/en.json"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}

	root, err := c.ListDirectory(ctx, dir, branch, "")
	if err != nil {
		t.Fatalf("list root: %v", err)
	}
	if len(root) != 2 {
		t.Fatalf("root entries = %v", root)
	}

	if _, err := c.ListDirectory(ctx, dir, branch, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing dir err = %v, want ErrNotFound", err)
	}
	if _, err := c.ListDirectory(ctx, dir, "nope", ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing branch err = %v, want ErrNotFound", err)
	}
	if _, err := c.ListDirectory(ctx, t.TempDir(), branch, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("not a repo err = %v, want ErrNotFound", err)
	}
}

func TestGetFileContent(t *testing.T) {
	ctx := context.Background()
	dir, branch := initRepo(t, map[string]string{"locales/en.json": `{"greeting":"Hi"}`})
	c := New(Options{})

	got, err := c.GetFileContent(ctx, dir, "locales/en.json", branch)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"greeting":"Hi"}` {
		t.Fatalf("content = %q", got)
	}
	if _, err := c.GetFileContent(ctx, dir, "locales/fr.json", branch); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing file err = %v, want ErrNotFound", err)
	}
}

func TestBranchCommitAndPullRequest(t *testing.T) {
	ctx := context.Background()
	dir, base := initRepo(t, map[string]string{
		"locales/en.json": `{"greeting":"Hi"}`,
		"zz.txt":          "last",
	})
	c := New(Options{AuthorName: "Bot", AuthorEmail: "bot@example.com"})

	if err := c.CreateBranch(ctx, dir, base, "linguaflow/test"); err != nil {
		t.Fatalf("create branch: %v", err)
	}
	if err := c.CreateBranch(ctx, dir, base, "linguaflow/test"); !errors.Is(err, domain.ErrBranchExists) {
		t.Fatalf("second create err = %v, want ErrBranchExists", err)
	}

	if err := c.CommitFile(ctx, dir, "linguaflow/test", "locales/en.json", []byte(`{"greeting":"Hello"}`), "update en"); err != nil {
		t.Fatalf("commit update: %v", err)
	}
	if err := c.CommitFile(ctx, dir, "linguaflow/test", "locales/fr/app.json", []byte(`{"greeting":"Salut"}`), "add fr"); err != nil {
		t.Fatalf("commit new: %v", err)
	}

	checks := map[string]string{
		"locales/en.json":     `{"greeting":"Hello"}`,
		"locales/fr/app.json": `{"greeting":"Salut"}`,
		"zz.txt":              "last",
	}
	for p, want := range checks {
		got, err := c.GetFileContent(ctx, dir, p, "linguaflow/test")
		if err != nil {
			t.Fatalf("get %s: %v", p, err)
		}
		if string(got) != want {
			t.Fatalf("%s = %q, want %q", p, got, want)
		}
	}

	// the base branch and the checkout stay as they were
	got, err := c.GetFileContent(ctx, dir, "locales/en.json", base)
	if err != nil || string(got) != `{"greeting":"Hi"}` {
		t.Fatalf("base content = %q, %v", got, err)
	}
	onDisk, err := os.ReadFile(filepath.Join(dir, "locales", "en.json"))
	if err != nil || string(onDisk) != `{"greeting":"Hi"}` {
		t.Fatalf("worktree content = %q, %v", onDisk, err)
	}

	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatal(err)
	}
	ref, err := repo.Reference("refs/heads/linguaflow/test", true)
	if err != nil {
		t.Fatal(err)
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		t.Fatal(err)
	}
	if commit.Message != "add fr" || commit.Author.Name != "Bot" || commit.NumParents() != 1 {
		t.Fatalf("commit = %q by %q with %d parents", commit.Message, commit.Author.Name, commit.NumParents())
	}
	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		t.Fatal(err)
	}
	var messages []string
	_ = iter.ForEach(func(c *object.Commit) error {
		messages = append(messages, c.Message)
		return nil
	})
	if diff := cmp.Diff([]string{"add fr", "update en", "init"}, messages); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}

	pr, err := c.OpenPullRequest(ctx, dir, ports.PullRequestInput{Title: "t", Head: "linguaflow/test", Base: base})
	if err != nil {
		t.Fatalf("open pr: %v", err)
	}
	if !strings.HasPrefix(pr.URL, "file://") || !strings.HasSuffix(pr.URL, "#"+base+"...linguaflow/test") {
		t.Fatalf("pr url = %q", pr.URL)
	}
}

func TestListBranches(t *testing.T) {
	ctx := context.Background()
	dir, base := initRepo(t, map[string]string{"a.json": "{}"})
	c := New(Options{})
	if err := c.CreateBranch(ctx, dir, base, "feature"); err != nil {
		t.Fatal(err)
	}
	got, err := c.ListBranches(ctx, dir)
	if err != nil {
		t.Fatalf("branches: %v", err)
	}
	want := []ports.Branch{{Name: "feature"}, {Name: base}}
	if base < "feature" {
		want = []ports.Branch{{Name: base}, {Name: "feature"}}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("branches mismatch (-want +got):\n%s", diff)
	}
}

func TestPullRequestState(t *testing.T) {
	ctx := context.Background()
	dir, base := initRepo(t, map[string]string{"a.json": "{}"})
	c := New(Options{})
	if err := c.CreateBranch(ctx, dir, base, "feature"); err != nil {
		t.Fatal(err)
	}
	if err := c.CommitFile(ctx, dir, "feature", "a.json", []byte(`{"a":"b"}`), "edit"); err != nil {
		t.Fatal(err)
	}
	state := func(head string) string {
		t.Helper()
		s, err := c.PullRequestState(ctx, dir, ports.PullRequestRef{Head: head, Base: base})
		if err != nil {
			t.Fatalf("state %s: %v", head, err)
		}
		return s
	}
	if got := state("feature"); got != ports.PullRequestOpen {
		t.Fatalf("unmerged head = %q", got)
	}
	if got := state("gone"); got != ports.PullRequestClosed {
		t.Fatalf("missing head = %q", got)
	}

	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatal(err)
	}
	ref, err := repo.Reference(plumbing.NewBranchReferenceName("feature"), true)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName(base), ref.Hash())); err != nil {
		t.Fatal(err)
	}
	if got := state("feature"); got != ports.PullRequestMerged {
		t.Fatalf("fast-forwarded base = %q", got)
	}
}
