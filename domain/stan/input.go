// Package stan holds the pieces shared between the fitting modes and the
// external sampler: Stan input mappings, the registry of functions that
// build them, typed sampler options and program handles.
package stan

import (
	"fmt"
	"sort"

	"github.com/teddygroves/bibat/domain/dataset"
	"github.com/teddygroves/bibat/internal/errors"
)

// Designated Stan input keys the fitting modes overwrite.
const (
	KeyLikelihood = "likelihood"
	KeyNTrain     = "N_train"
	KeyNTest      = "N_test"
	KeyIxTrain    = "ix_train"
	KeyIxTest     = "ix_test"
)

// Input is a flat Stan input mapping. Values are int, float64, []int,
// []float64, [][]int or [][]float64.
type Input map[string]any

// With returns a copy of in with overrides applied. The receiver is not
// modified.
func (in Input) With(overrides Input) Input {
	out := make(Input, len(in)+len(overrides))
	for k, v := range in {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Keys returns the input keys in sorted order.
func (in Input) Keys() []string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Ints reads an integer array entry such as ix_train.
func (in Input) Ints(key string) ([]int, bool) {
	switch v := in[key].(type) {
	case []int:
		out := make([]int, len(v))
		copy(out, v)
		return out, true
	case []int64:
		out := make([]int, len(v))
		for i, x := range v {
			out[i] = int(x)
		}
		return out, true
	default:
		return nil, false
	}
}

// Validate checks that every value has a supported shape and element type.
func (in Input) Validate() error {
	var bad []string
	for _, k := range in.Keys() {
		switch in[k].(type) {
		case int, int64, float64, []int, []int64, []float64, [][]int, [][]float64:
		default:
			bad = append(bad, fmt.Sprintf("%s has unsupported type %T", k, in[k]))
		}
	}
	if len(bad) > 0 {
		return errors.InvalidInput(fmt.Sprintf("invalid stan input: %v", bad))
	}
	return nil
}

// InputFunction maps prepared data to a Stan input.
type InputFunction func(*dataset.PreparedData) (Input, error)

// Functions is a read-only registry of named input functions.
type Functions struct {
	byName map[string]InputFunction
}

// NewFunctions builds a registry. The map is copied.
func NewFunctions(fns map[string]InputFunction) *Functions {
	byName := make(map[string]InputFunction, len(fns))
	for name, fn := range fns {
		byName[name] = fn
	}
	return &Functions{byName: byName}
}

// Lookup resolves a function by name.
func (f *Functions) Lookup(name string) (InputFunction, error) {
	if f != nil {
		if fn, ok := f.byName[name]; ok {
			return fn, nil
		}
	}
	return nil, errors.UnknownAdapter(name, f.Names())
}

// Names returns the registered names in sorted order.
func (f *Functions) Names() []string {
	if f == nil {
		return nil
	}
	names := make([]string, 0, len(f.byName))
	for name := range f.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
