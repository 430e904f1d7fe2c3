package registry

import (
	"linguaflow/internal/adapters/parser/csvfile"
	"linguaflow/internal/adapters/parser/jsonfile"
	"linguaflow/internal/adapters/parser/pofile"
	"linguaflow/internal/adapters/parser/valvevdf"
	"linguaflow/internal/adapters/parser/yamlfile"
	"linguaflow/internal/ports"
)

type Registry struct {
	byFormat map[string]ports.Parser
}

func New() *Registry { return &Registry{byFormat: map[string]ports.Parser{}} }

// Default returns a registry with every built-in format.
func Default() *Registry {
	r := New()
	r.Register(jsonfile.New())
	r.Register(yamlfile.New())
	r.Register(pofile.New())
	r.Register(csvfile.New())
	r.Register(valvevdf.New())
	return r
}

func (r *Registry) Register(p ports.Parser) { r.byFormat[p.Format()] = p }

func (r *Registry) Get(format string) (ports.Parser, bool) {
	p, ok := r.byFormat[format]
	return p, ok
}
