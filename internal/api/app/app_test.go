package app

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	exreg "linguaflow/internal/adapters/exporter/registry"
	parreg "linguaflow/internal/adapters/parser/registry"
	"linguaflow/internal/domain"
	"linguaflow/internal/testutil"
	"linguaflow/internal/usecase/conflicts"
	"linguaflow/internal/usecase/exporter"
	"linguaflow/internal/usecase/importer"
	"linguaflow/internal/usecase/locator"
	"linguaflow/internal/usecase/publisher"
	"linguaflow/internal/usecase/resolver"
	"linguaflow/internal/usecase/translations"
)

type apis struct {
	projects *ProjectAPI
	trans    *TranslationsAPI
	imp      *ImportAPI
	exp      *ExportAPI
	sync     *SyncAPI
}

func newAPIs(env *testutil.Env) apis {
	log := testutil.Logger()
	loc := locator.New(parreg.Default(), 2, log)
	w := translations.NewWriter(env.Keys, env.Translations)
	return apis{
		projects: NewProjectAPI(env.Projects, env.Languages),
		trans:    NewTranslationsAPI(env.Projects, env.Keys, env.Translations, w),
		imp: NewImportAPI(importer.New(importer.Deps{
			Projects:           env.Projects,
			Languages:          env.Languages,
			Translations:       env.Translations,
			Integrations:       env.Integrations,
			History:            env.History,
			Writer:             w,
			Locator:            loc,
			Parsers:            parreg.Default(),
			BuildSourceControl: env.SourceControl(),
			Log:                log,
		})),
		exp: NewExportAPI(exporter.New(env.Languages, env.Translations, exreg.Default())),
		sync: NewSyncAPI(
			conflicts.New(conflicts.Deps{
				Projects:           env.Projects,
				Translations:       env.Translations,
				Integrations:       env.Integrations,
				Locator:            loc,
				BuildSourceControl: env.SourceControl(),
				Log:                log,
			}),
			resolver.New(env.Projects, w, 2, log),
			publisher.New(publisher.Deps{
				Projects:           env.Projects,
				Translations:       env.Translations,
				Integrations:       env.Integrations,
				History:            env.History,
				Locator:            loc,
				Exporters:          exreg.Default(),
				BuildSourceControl: env.SourceControl(),
				Log:                log,
			}),
		),
	}
}

func keysOf(cs []domain.Conflict) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Key())
	}
	return out
}

func TestResolvePublishMergeClearsConflicts(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, "en")
	env.Connect(t, "locales")
	env.Set(t, "en", "greeting", "Hello")
	env.Host.Seed(testutil.Repo, testutil.Branch, map[string]string{"locales/en.json": `{"greeting":"Hi","farewell":"Bye"}`})
	a := newAPIs(env)

	pulled, err := a.sync.Pull(ctx, env.Project.ID)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if diff := cmp.Diff([]string{"greeting", "farewell"}, keysOf(pulled.Conflicts["en"])); diff != "" {
		t.Fatalf("conflicts mismatch (-want +got):\n%s", diff)
	}

	res, err := a.sync.Resolve(ctx, ResolveRequest{
		ProjectID: env.Project.ID,
		UserID:    "u1",
		Decisions: conflicts.Decisions{"en": {
			"greeting": {Type: domain.ResolveLocal},
			"farewell": {Type: domain.ResolveRemote},
			"missing":  {Type: domain.ResolveRemote},
		}},
		AutoPublish: true,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Skipped) != 1 {
		t.Fatalf("skipped = %v, want the decision for missing", res.Skipped)
	}
	if res.Publish == nil || res.Publish.NoChanges || res.Publish.PullRequestNumber == 0 {
		t.Fatalf("publish = %+v", res.Publish)
	}
	if diff := cmp.Diff(map[string]string{"greeting": "Hello", "farewell": "Bye"}, env.Local(t, "en")); diff != "" {
		t.Fatalf("local mismatch (-want +got):\n%s", diff)
	}

	if err := env.Host.MergePullRequest(testutil.Repo, res.Publish.PullRequestNumber); err != nil {
		t.Fatalf("merge: %v", err)
	}
	pulled, err = a.sync.Pull(ctx, env.Project.ID)
	if err != nil {
		t.Fatalf("pull after merge: %v", err)
	}
	if n := pulled.Total(); n != 0 {
		t.Fatalf("conflicts after merge = %v", pulled.Conflicts)
	}
}

func TestResolveRejectsUnresolvedManual(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, "en")
	env.Connect(t, "")
	env.Host.Seed(testutil.Repo, testutil.Branch, map[string]string{"en.json": `{"greeting":"Hi"}`})
	a := newAPIs(env)

	_, err := a.sync.Resolve(ctx, ResolveRequest{
		ProjectID: env.Project.ID,
		Decisions: conflicts.Decisions{"en": {"greeting": {Type: domain.ResolveManual, ManualValue: "  "}}},
	})
	var v *domain.ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if n := env.CountVersions(t); n != 0 {
		t.Fatalf("versions = %d, want none written", n)
	}
}

func TestProjectAndTranslationFlow(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	a := newAPIs(env)

	p, err := a.projects.Create(ctx, "web", "en")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := a.projects.AddLanguage(ctx, p.ID, "de", "German"); err != nil {
		t.Fatalf("add language: %v", err)
	}
	langs, err := a.projects.ListLanguages(ctx, p.ID)
	if err != nil {
		t.Fatalf("languages: %v", err)
	}
	var codes []string
	for _, l := range langs {
		codes = append(codes, l.Code)
	}
	if diff := cmp.Diff([]string{"de", "en"}, codes); diff != "" {
		t.Fatalf("languages mismatch (-want +got):\n%s", diff)
	}

	for _, v := range []string{"Hallo", "Hallo", "Servus"} {
		if _, err := a.trans.Upsert(ctx, UpsertTranslationRequest{ProjectID: p.ID, Language: "de", Key: "hello", Content: v, UserID: "u"}); err != nil {
			t.Fatalf("upsert %s: %v", v, err)
		}
	}
	vs, err := a.trans.Versions(ctx, p.ID, "de", "hello")
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if len(vs) != 2 || vs[1].Content != "Servus" {
		t.Fatalf("versions = %+v", vs)
	}

	if _, err := a.trans.Upsert(ctx, UpsertTranslationRequest{ProjectID: p.ID, Language: "fr", Key: "hello", Content: "x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for unattached language", err)
	}
	if _, err := a.trans.Upsert(ctx, UpsertTranslationRequest{ProjectID: p.ID, Language: "de", Key: "hello", Content: "x", Status: "draft"}); err == nil {
		t.Fatal("expected status validation error")
	}

	if err := a.trans.RenameKey(ctx, p.ID, "hello", "greeting"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	out, err := a.exp.ExportFileBase64(ctx, ExportFileRequest{ProjectID: p.ID, Language: "de", Format: domain.FormatJSON})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(out.ContentB64)

	q, err := a.projects.Create(ctx, "copy", "en")
	if err != nil {
		t.Fatalf("create copy: %v", err)
	}
	res, err := a.imp.ImportBase64(ctx, ImportRequest{ProjectID: q.ID, Filename: out.Filename, Language: "de", ContentB64: base64.StdEncoding.EncodeToString(raw)})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Written != 1 {
		t.Fatalf("import result = %+v", res)
	}
	ts, err := a.trans.List(ctx, q.ID, "de")
	if err != nil || len(ts) != 1 || ts[0].Key != "greeting" || ts[0].Content != "Servus" {
		t.Fatalf("copied = %+v, %v", ts, err)
	}

	if ok, err := a.projects.Delete(ctx, q.ID); !ok || err != nil {
		t.Fatalf("delete = %v, %v", ok, err)
	}
	if _, err := a.projects.Get(ctx, q.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
