package integrations

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
	"linguaflow/internal/testutil"
)

func newService(env *testutil.Env) *Service {
	return New(env.Projects, env.Integrations, env.History, env.SourceControl(), testutil.Logger())
}

func TestConnectLifecycle(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, "en")
	env.Host.Seed(testutil.Repo, "main", map[string]string{"en.json": "{}"})
	svc := newService(env)

	_, err := svc.Connect(ctx, ConnectArgs{
		ProjectID:    env.Project.ID,
		Config:       domain.RepoConfig{Repository: testutil.Repo, Branch: "develop"},
		VerifyBranch: true,
	})
	var v *domain.ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("missing branch err = %v, want ValidationError", err)
	}

	in, err := svc.Connect(ctx, ConnectArgs{
		ProjectID:    env.Project.ID,
		Config:       domain.RepoConfig{Repository: " acme/app ", Branch: "main", TranslationPath: "/locales/"},
		VerifyBranch: true,
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if in.Provider != domain.ProviderGitHub || in.Config.Repository != testutil.Repo || in.Config.TranslationPath != "locales" || !in.IsConnected {
		t.Fatalf("integration = %+v", in)
	}
	if _, err := svc.Connect(ctx, ConnectArgs{ProjectID: env.Project.ID, Config: in.Config}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("second connect err = %v, want ErrAlreadyExists", err)
	}

	got, err := svc.SetConnected(ctx, env.Project.ID, false)
	if err != nil || got.IsConnected {
		t.Fatalf("disconnect = %+v, %v", got, err)
	}
	got, err = svc.UpdateConfig(ctx, env.Project.ID, domain.RepoConfig{Repository: testutil.Repo, Branch: "release", FilePattern: "*.json"})
	if err != nil || got.Config.Branch != "release" || got.Config.FilePattern != "*.json" {
		t.Fatalf("update = %+v, %v", got, err)
	}
	if _, err := svc.UpdateConfig(ctx, env.Project.ID, domain.RepoConfig{Repository: "nope", Branch: "x"}); !errors.As(err, &v) {
		t.Fatalf("bad config err = %v", err)
	}

	if err := svc.Delete(ctx, env.Project.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, env.Project.ID); !errors.Is(err, domain.ErrNoIntegration) {
		t.Fatalf("get after delete err = %v", err)
	}
}

func TestHistoryQueries(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, "en")
	in := env.Connect(t, "")
	svc := newService(env)
	for i := 0; i < 7; i++ {
		kind := domain.SyncKindExport
		if i%2 == 0 {
			kind = domain.SyncKindImport
		}
		h := &domain.SyncHistory{ProjectID: env.Project.ID, IntegrationID: in.ID, Kind: kind, Status: domain.SyncStatusSuccess}
		if err := env.History.Create(ctx, h); err != nil {
			t.Fatal(err)
		}
	}
	recent, err := svc.RecentHistory(ctx, env.Project.ID, 0)
	if err != nil || len(recent) != DefaultHistoryLimit {
		t.Fatalf("recent = %d, %v", len(recent), err)
	}
	latest, err := svc.LatestSync(ctx, env.Project.ID)
	if err != nil || latest == nil || latest.ID != recent[0].ID || latest.Kind != domain.SyncKindImport {
		t.Fatalf("latest = %+v, %v", latest, err)
	}
}

func TestListBranches(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Host.Seed(testutil.Repo, "main", nil)
	env.Host.Seed(testutil.Repo, "dev", nil)
	got, err := newService(env).ListBranches(context.Background(), domain.ProviderGitHub, testutil.Repo)
	if err != nil || len(got) != 2 || got[0].Name != "dev" {
		t.Fatalf("branches = %+v, %v", got, err)
	}
}

func TestListRepositories(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Host.Seed("acme/web", "main", nil)
	env.Host.Seed(testutil.Repo, "main", nil)
	got, err := newService(env).ListRepositories(context.Background(), domain.ProviderGitHub)
	if err != nil {
		t.Fatalf("repositories: %v", err)
	}
	want := []ports.Repository{
		{FullName: testutil.Repo, DefaultBranch: "main"},
		{FullName: "acme/web", DefaultBranch: "main"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("repositories mismatch (-want +got):\n%s", diff)
	}
}
