package publisher

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	exreg "linguaflow/internal/adapters/exporter/registry"
	parreg "linguaflow/internal/adapters/parser/registry"
	"linguaflow/internal/adapters/scm/memory"
	"linguaflow/internal/domain"
	"linguaflow/internal/testutil"
	"linguaflow/internal/usecase/locator"
)

func newService(env *testutil.Env) *Service {
	return New(Deps{
		Projects:           env.Projects,
		Translations:       env.Translations,
		Integrations:       env.Integrations,
		History:            env.History,
		Locator:            locator.New(parreg.Default(), 2, testutil.Logger()),
		Exporters:          exreg.Default(),
		BuildSourceControl: env.SourceControl(),
		Options:            Options{BranchPrefix: "i18n"},
		Log:                testutil.Logger(),
		Now:                func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC) },
	})
}

func parse(t *testing.T, format, content string) map[string]string {
	t.Helper()
	p, ok := parreg.Default().Get(format)
	if !ok {
		t.Fatalf("no parser for %s", format)
	}
	res, err := p.Parse([]byte(content))
	if err != nil {
		t.Fatalf("parse %s: %v\n%s", format, err, content)
	}
	out := map[string]string{}
	for _, e := range res.Entries {
		out[e.Key] = e.Value
	}
	return out
}

func history(t *testing.T, env *testutil.Env) []*domain.SyncHistory {
	t.Helper()
	hs, err := env.History.ListByProject(context.Background(), env.Project.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	return hs
}

func TestPublishNoChanges(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, "en")
	env.Connect(t, "locales")
	env.Host.Seed(testutil.Repo, testutil.Branch, map[string]string{"locales/en.json": `{"greeting":"Hi"}`})
	env.Set(t, "en", "greeting", "Hi")

	res, err := newService(env).Publish(ctx, PublishArgs{ProjectID: env.Project.ID})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !res.NoChanges || res.PublishedURL != "" {
		t.Fatalf("result = %+v", res)
	}
	if env.Host.Calls(memory.OpCreateBranch) != 0 {
		t.Fatal("branch created for no-op publish")
	}
	hs := history(t, env)
	if len(hs) != 1 || hs[0].Status != domain.SyncStatusSuccess || hs[0].Details.Message != domain.MessageNoChanges {
		t.Fatalf("history = %+v", hs)
	}
	if hs[0].Kind != domain.SyncKindExport || hs[0].Details.Repository != testutil.Repo {
		t.Fatalf("history details = %+v", hs[0])
	}
}

func TestPublishOpensPullRequest(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, "en", "de", "fr")
	in := env.Connect(t, "locales")
	env.Host.Seed(testutil.Repo, testutil.Branch, map[string]string{
		"locales/en.json": `{"greeting":"Hi","farewell":"Bye"}`,
	})
	env.Set(t, "en", "greeting", "Hello")
	env.Set(t, "en", "title", "Title")
	env.Set(t, "de", "greeting", "Hallo")
	_, _, err := env.Translations.Save(ctx, domain.TranslationChange{
		ProjectID: env.Project.ID, KeyID: mustKey(t, env, "greeting"), LanguageID: env.Langs["fr"].ID,
		Content: "Salut", Status: domain.StatusPending,
	})
	if err != nil {
		t.Fatal(err)
	}

	svc := newService(env)
	svc.d.NewID = func() string { return "0123abcd-ffff-4000-8000-000000000000" }
	res, err := svc.Publish(ctx, PublishArgs{ProjectID: env.Project.ID, UserID: "u1"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if res.NoChanges || res.PublishedURL == "" {
		t.Fatalf("result = %+v", res)
	}
	if res.HeadBranch != "i18n/20240501T123000Z-0123abcd" {
		t.Fatalf("branch = %q", res.HeadBranch)
	}
	var paths []string
	for _, f := range res.Files {
		paths = append(paths, f.Path)
	}
	if diff := cmp.Diff([]string{"locales/de.json", "locales/en.json"}, paths); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}

	en, _ := env.Host.File(testutil.Repo, res.HeadBranch, "locales/en.json")
	wantEN := map[string]string{"greeting": "Hello", "farewell": "Bye", "title": "Title"}
	if diff := cmp.Diff(wantEN, parse(t, "json", en)); diff != "" {
		t.Fatalf("en mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(en, `{"greeting":"Hello","farewell":"Bye"`) {
		t.Fatalf("en not edited in place: %s", en)
	}
	de, _ := env.Host.File(testutil.Repo, res.HeadBranch, "locales/de.json")
	if diff := cmp.Diff(map[string]string{"greeting": "Hallo"}, parse(t, "json", de)); diff != "" {
		t.Fatalf("de mismatch (-want +got):\n%s", diff)
	}
	if _, ok := env.Host.File(testutil.Repo, res.HeadBranch, "locales/fr.json"); ok {
		t.Fatal("pending translations must not be published")
	}
	if base, _ := env.Host.File(testutil.Repo, testutil.Branch, "locales/en.json"); base != `{"greeting":"Hi","farewell":"Bye"}` {
		t.Fatalf("base branch modified: %s", base)
	}

	prs := env.Host.PullRequests(testutil.Repo)
	if len(prs) != 1 || prs[0].Input.Base != testutil.Branch || prs[0].Input.Head != res.HeadBranch {
		t.Fatalf("pull requests = %+v", prs)
	}
	if len(env.Host.Commits(testutil.Repo)) != 2 {
		t.Fatalf("commits = %+v", env.Host.Commits(testutil.Repo))
	}

	hs := history(t, env)
	if len(hs) != 1 || hs[0].Details.PullRequestURL != res.PublishedURL || len(hs[0].Details.Files) != 2 {
		t.Fatalf("history = %+v", hs)
	}
	got, _ := env.Integrations.Get(ctx, in.ID)
	if got.LastSyncedAt == nil {
		t.Fatal("last_synced_at not updated")
	}
	if env.Local(t, "en")["greeting"] != "Hello" {
		t.Fatal("publish changed local data")
	}
}

func mustKey(t *testing.T, env *testutil.Env, key string) int64 {
	t.Helper()
	k, err := env.Keys.Ensure(context.Background(), env.Project.ID, key)
	if err != nil {
		t.Fatal(err)
	}
	return k.ID
}

func TestPublishTwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, "en")
	env.Connect(t, "")
	env.Host.Seed(testutil.Repo, testutil.Branch, map[string]string{"en.json": "{\n  \"greeting\": \"Hi\"\n}\n"})
	env.Set(t, "en", "greeting", "Hello")
	svc := newService(env)

	first, err := svc.Publish(ctx, PublishArgs{ProjectID: env.Project.ID})
	if err != nil || first.PublishedURL == "" {
		t.Fatalf("first = %+v, %v", first, err)
	}
	second, err := svc.Publish(ctx, PublishArgs{ProjectID: env.Project.ID})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !second.NoChanges || second.PublishedURL != "" || second.PendingURL != first.PublishedURL {
		t.Fatalf("second = %+v", second)
	}
	third, err := svc.Publish(ctx, PublishArgs{ProjectID: env.Project.ID})
	if err != nil || !third.NoChanges || third.PendingURL != first.PublishedURL {
		t.Fatalf("third = %+v, %v", third, err)
	}
	if n := len(env.Host.PullRequests(testutil.Repo)); n != 1 {
		t.Fatalf("pull requests = %d, want 1", n)
	}

	if err := env.Host.MergePullRequest(testutil.Repo, first.PullRequestNumber); err != nil {
		t.Fatal(err)
	}
	after, err := svc.Publish(ctx, PublishArgs{ProjectID: env.Project.ID})
	if err != nil || !after.NoChanges || after.PendingURL != "" {
		t.Fatalf("after merge = %+v, %v", after, err)
	}
	merged, _ := env.Host.File(testutil.Repo, testutil.Branch, "en.json")
	if merged != "{\n  \"greeting\": \"Hello\"\n}\n" {
		t.Fatalf("merged content = %q", merged)
	}
}

func TestPublishAfterClosedPullRequestOpensNewOne(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, "en")
	env.Connect(t, "")
	env.Host.Seed(testutil.Repo, testutil.Branch, map[string]string{"en.json": "{\n  \"greeting\": \"Hi\"\n}\n"})
	env.Set(t, "en", "greeting", "Hello")
	svc := newService(env)

	first, err := svc.Publish(ctx, PublishArgs{ProjectID: env.Project.ID})
	if err != nil || first.PublishedURL == "" {
		t.Fatalf("first = %+v, %v", first, err)
	}
	if err := env.Host.ClosePullRequest(testutil.Repo, first.PullRequestNumber); err != nil {
		t.Fatal(err)
	}
	second, err := svc.Publish(ctx, PublishArgs{ProjectID: env.Project.ID})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second.NoChanges || second.PendingURL != "" || second.PublishedURL == "" || second.PublishedURL == first.PublishedURL {
		t.Fatalf("second = %+v", second)
	}
	if n := len(env.Host.PullRequests(testutil.Repo)); n != 2 {
		t.Fatalf("pull requests = %d, want 2", n)
	}
	third, err := svc.Publish(ctx, PublishArgs{ProjectID: env.Project.ID})
	if err != nil || !third.NoChanges || third.PendingURL != second.PublishedURL {
		t.Fatalf("third = %+v, %v", third, err)
	}
}

func TestPublishPullRequestStateFailure(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, "en")
	env.Connect(t, "")
	env.Host.Seed(testutil.Repo, testutil.Branch, map[string]string{"en.json": `{"greeting":"Hi"}`})
	env.Set(t, "en", "greeting", "Hello")
	svc := newService(env)

	if _, err := svc.Publish(ctx, PublishArgs{ProjectID: env.Project.ID}); err != nil {
		t.Fatal(err)
	}
	env.Host.FailOn(memory.OpPullRequestState, &domain.RemoteAccessError{Op: "get pull request", Err: errors.New("down")})
	_, err := svc.Publish(ctx, PublishArgs{ProjectID: env.Project.ID})
	var pe *domain.PublishError
	if !errors.As(err, &pe) || pe.Stage != domain.StagePreparing {
		t.Fatalf("err = %v, want failure while preparing", err)
	}
	if n := len(env.Host.PullRequests(testutil.Repo)); n != 1 {
		t.Fatalf("pull requests = %d, want 1", n)
	}
}

func TestPublishFailureIsRecordedAndRetryable(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, "en")
	env.Connect(t, "")
	env.Host.Seed(testutil.Repo, testutil.Branch, map[string]string{"en.json": `{"greeting":"Hi"}`})
	env.Set(t, "en", "greeting", "Hello")
	svc := newService(env)

	env.Host.FailOn(memory.OpCommitFile, &domain.RemoteAccessError{Op: "commit", Status: 502, Err: errors.New("bad gateway")})
	_, err := svc.Publish(ctx, PublishArgs{ProjectID: env.Project.ID})
	var pe *domain.PublishError
	if !errors.As(err, &pe) || pe.Stage != domain.StageCommit {
		t.Fatalf("err = %v, want committing PublishError", err)
	}
	var rae *domain.RemoteAccessError
	if !errors.As(err, &rae) {
		t.Fatalf("err = %v, want wrapped RemoteAccessError", err)
	}
	hs := history(t, env)
	if len(hs) != 1 || hs[0].Status != domain.SyncStatusFailed || hs[0].Details.Stage != domain.StageCommit || hs[0].Details.Error == "" {
		t.Fatalf("history = %+v", hs)
	}
	if len(env.Host.PullRequests(testutil.Repo)) != 0 {
		t.Fatal("pull request opened after failed commit")
	}

	env.Host.FailOn(memory.OpCommitFile, nil)
	res, err := svc.Publish(ctx, PublishArgs{ProjectID: env.Project.ID})
	if err != nil || res.PublishedURL == "" {
		t.Fatalf("retry = %+v, %v", res, err)
	}
}

func TestPublishStages(t *testing.T) {
	cases := []struct {
		op    string
		stage string
	}{
		{memory.OpListDirectory, domain.StageFinding},
		{memory.OpGetFileContent, domain.StageFetching},
		{memory.OpCreateBranch, domain.StageBranching},
		{memory.OpOpenPullRequest, domain.StageOpenPR},
	}
	for _, tc := range cases {
		t.Run(tc.stage, func(t *testing.T) {
			env := testutil.NewEnv(t, "en")
			env.Connect(t, "")
			env.Host.Seed(testutil.Repo, testutil.Branch, map[string]string{"en.json": `{"a":"1"}`})
			env.Set(t, "en", "a", "2")
			env.Host.FailOn(tc.op, errors.New("boom"))
			_, err := newService(env).Publish(context.Background(), PublishArgs{ProjectID: env.Project.ID})
			var pe *domain.PublishError
			if !errors.As(err, &pe) || pe.Stage != tc.stage {
				t.Fatalf("err = %v, want stage %s", err, tc.stage)
			}
		})
	}
}

func TestPublishSkipsUnparsableLanguage(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, "en", "de")
	env.Connect(t, "")
	env.Host.Seed(testutil.Repo, testutil.Branch, map[string]string{
		"en.json": `{"a":"1"}`,
		"de.json": `{"a":`,
	})
	env.Set(t, "en", "a", "2")
	env.Set(t, "de", "a", "zwei")
	res, err := newService(env).Publish(ctx, PublishArgs{ProjectID: env.Project.ID})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if diff := cmp.Diff([]string{"de.json"}, res.Skipped); diff != "" {
		t.Fatalf("skipped mismatch (-want +got):\n%s", diff)
	}
	if len(res.Files) != 1 || res.Files[0].Path != "en.json" {
		t.Fatalf("files = %+v", res.Files)
	}
}

func TestPublishNewFileUsesLocatedExtension(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, "en", "de")
	env.Connect(t, "i18n")
	env.Host.Seed(testutil.Repo, testutil.Branch, map[string]string{"i18n/en.yml": "a: \"1\"\n"})
	env.Set(t, "de", "a", "eins")
	res, err := newService(env).Publish(ctx, PublishArgs{ProjectID: env.Project.ID})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(res.Files) != 1 || res.Files[0].Path != "i18n/de.yml" || res.Files[0].BaseHash != "" {
		t.Fatalf("files = %+v", res.Files)
	}
	body, _ := env.Host.File(testutil.Repo, res.HeadBranch, "i18n/de.yml")
	if diff := cmp.Diff(map[string]string{"a": "eins"}, parse(t, "yaml", body)); diff != "" {
		t.Fatalf("de.yml mismatch (-want +got):\n%s", diff)
	}
}

func TestPublishWithoutIntegration(t *testing.T) {
	env := testutil.NewEnv(t, "en")
	_, err := newService(env).Publish(context.Background(), PublishArgs{ProjectID: env.Project.ID})
	var pe *domain.PublishError
	if !errors.As(err, &pe) || !errors.Is(err, domain.ErrNoIntegration) {
		t.Fatalf("err = %v", err)
	}
}
