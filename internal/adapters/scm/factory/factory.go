package factory

import (
	"fmt"
	"sync"

	"linguaflow/internal/adapters/scm/github"
	"linguaflow/internal/adapters/scm/localgit"
	"linguaflow/internal/domain"
	"linguaflow/internal/ports"
)

// Builder returns the source-control adapter for one integration.
type Builder func(in *domain.Integration) (ports.SourceControl, error)

// Factory holds a Builder per provider name.
type Factory struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

func New() *Factory {
	return &Factory{builders: make(map[string]Builder)}
}

type Options struct {
	GitHub github.Options
	Local  localgit.Options
}

// Default registers the GitHub and local git providers. Each provider shares
// one client across integrations.
func Default(opts Options) *Factory {
	f := New()
	gh := github.New(opts.GitHub)
	lg := localgit.New(opts.Local)
	f.Register(domain.ProviderGitHub, func(*domain.Integration) (ports.SourceControl, error) { return gh, nil })
	f.Register(domain.ProviderLocal, func(*domain.Integration) (ports.SourceControl, error) { return lg, nil })
	return f
}

func (f *Factory) Register(provider string, b Builder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[provider] = b
}

func (f *Factory) Get(provider string) (Builder, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	b, ok := f.builders[provider]
	return b, ok
}

// FromIntegration picks the builder by the integration's provider; an empty
// provider means GitHub.
func (f *Factory) FromIntegration(in *domain.Integration) (ports.SourceControl, error) {
	provider := in.Provider
	if provider == "" {
		provider = domain.ProviderGitHub
	}
	b, ok := f.Get(provider)
	if !ok {
		return nil, fmt.Errorf("source control provider %q not registered", provider)
	}
	return b(in)
}
