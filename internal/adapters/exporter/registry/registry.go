package registry

import (
	"linguaflow/internal/adapters/exporter/csvfile"
	"linguaflow/internal/adapters/exporter/jsonfile"
	"linguaflow/internal/adapters/exporter/pofile"
	"linguaflow/internal/adapters/exporter/valvevdf"
	"linguaflow/internal/adapters/exporter/yamlfile"
	"linguaflow/internal/ports"
)

type Registry struct{ byFormat map[string]ports.Exporter }

func New() *Registry { return &Registry{byFormat: map[string]ports.Exporter{}} }

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

func (r *Registry) Register(e ports.Exporter) { r.byFormat[e.Format()] = e }

func (r *Registry) Get(format string) (ports.Exporter, bool) {
	e, ok := r.byFormat[format]
	return e, ok
}
