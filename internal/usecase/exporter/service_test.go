package exporter

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	exreg "linguaflow/internal/adapters/exporter/registry"
	parreg "linguaflow/internal/adapters/parser/registry"
	"linguaflow/internal/domain"
	"linguaflow/internal/testutil"
)

func TestExportFileRoundTrips(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, "de")
	env.Set(t, "de", "nav.home", "Start")
	env.Set(t, "de", "greeting", "Hallo")
	k, _ := env.Keys.Ensure(ctx, env.Project.ID, "draft")
	if _, _, err := env.Translations.Save(ctx, domain.TranslationChange{
		ProjectID: env.Project.ID, KeyID: k.ID, LanguageID: env.Langs["de"].ID, Content: "Entwurf", Status: domain.StatusPending,
	}); err != nil {
		t.Fatal(err)
	}
	svc := New(env.Languages, env.Translations, exreg.Default())

	for _, format := range []string{"json", "yaml", "po", "csv"} {
		res, err := svc.ExportFile(ctx, ExportArgs{ProjectID: env.Project.ID, Language: "de", Format: format})
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		if res.Filename != "de."+format || res.Entries != 2 {
			t.Fatalf("%s: result = %s, %d", format, res.Filename, res.Entries)
		}
		p, _ := parreg.Default().Get(format)
		parsed, err := p.Parse(res.Content)
		if err != nil {
			t.Fatalf("%s: reparse: %v\n%s", format, err, res.Content)
		}
		want := []domain.Entry{
			{Key: "nav.home", Value: "Start", Position: 0},
			{Key: "greeting", Value: "Hallo", Position: 1},
		}
		if diff := cmp.Diff(want, parsed.Entries); diff != "" {
			t.Fatalf("%s: entries mismatch (-want +got):\n%s", format, diff)
		}
	}

	res, err := svc.ExportFile(ctx, ExportArgs{ProjectID: env.Project.ID, Language: "de", IncludePending: true})
	if err != nil || res.Entries != 3 {
		t.Fatalf("with pending = %d, %v", res.Entries, err)
	}
	if _, err := svc.ExportFile(ctx, ExportArgs{ProjectID: env.Project.ID, Language: "xx"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown language err = %v", err)
	}
	if _, err := svc.ExportFile(ctx, ExportArgs{ProjectID: env.Project.ID, Language: "de", Format: "xml"}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}
