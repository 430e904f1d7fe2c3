package factory

import (
	"testing"

	"linguaflow/internal/adapters/scm/github"
	"linguaflow/internal/adapters/scm/localgit"
	"linguaflow/internal/adapters/scm/memory"
	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
)

func TestDefaultProviders(t *testing.T) {
	f := Default(Options{})
	cases := map[string]func(ports.SourceControl) bool{
		"":                    func(sc ports.SourceControl) bool { _, ok := sc.(*github.Client); return ok },
		domain.ProviderGitHub: func(sc ports.SourceControl) bool { _, ok := sc.(*github.Client); return ok },
		domain.ProviderLocal:  func(sc ports.SourceControl) bool { _, ok := sc.(*localgit.Client); return ok },
	}
	for provider, check := range cases {
		sc, err := f.FromIntegration(&domain.Integration{Provider: provider})
		if err != nil {
			t.Fatalf("%q: %v", provider, err)
		}
		if !check(sc) {
			t.Fatalf("%q: unexpected adapter %T", provider, sc)
		}
	}
	if _, err := f.FromIntegration(&domain.Integration{Provider: "svn"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestRegisterOverrides(t *testing.T) {
	f := Default(Options{})
	host := memory.New()
	f.Register(domain.ProviderGitHub, func(*domain.Integration) (ports.SourceControl, error) { return host, nil })
	sc, err := f.FromIntegration(&domain.Integration{Provider: domain.ProviderGitHub})
	if err != nil {
		t.Fatal(err)
	}
	if sc != ports.SourceControl(host) {
		t.Fatalf("got %T, want memory host", sc)
	}
}
