package fitting

import (
	"fmt"
	"sort"

	"github.com/teddygroves/bibat/internal/errors"
)

// Registry is an immutable name → mode table.
type Registry struct {
	modes map[string]Mode
}

// NewRegistry builds a registry. Mode names must be unique.
func NewRegistry(modes ...Mode) (*Registry, error) {
	byName := make(map[string]Mode, len(modes))
	for _, m := range modes {
		if _, dup := byName[m.Name()]; dup {
			return nil, errors.InvalidInput(fmt.Sprintf("fitting mode %q registered twice", m.Name()))
		}
		byName[m.Name()] = m
	}
	return &Registry{modes: byName}, nil
}

// DefaultRegistry holds the prior, posterior and kfold modes.
func DefaultRegistry() *Registry {
	r, _ := NewRegistry(Builtin(KindPrior), Builtin(KindPosterior), Builtin(KindKfold))
	return r
}

// Lookup finds a mode by name.
func (r *Registry) Lookup(name string) (Mode, error) {
	if m, ok := r.modes[name]; ok {
		return m, nil
	}
	return nil, errors.UnknownMode(name, r.Names())
}

// Resolve looks up every name, failing on the first unknown one.
func (r *Registry) Resolve(names []string) ([]Mode, error) {
	modes := make([]Mode, len(names))
	for i, name := range names {
		m, err := r.Lookup(name)
		if err != nil {
			return nil, err
		}
		modes[i] = m
	}
	return modes, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.modes))
	for name := range r.modes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
