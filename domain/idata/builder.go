package idata

import (
	"fmt"
	"strings"

	"github.com/teddygroves/bibat/domain/dataset"
	"github.com/teddygroves/bibat/domain/draws"
	"github.com/teddygroves/bibat/domain/stan"
	"github.com/teddygroves/bibat/internal/errors"
)

// LogLikelihoodVar is the Stan variable routed to the log_likelihood group
// of a posterior.
const LogLikelihoodVar = "llik"

// Builder accumulates groups for one result. Coordinates label dimensions
// named in dims; unlabelled dimensions are named <var>_dim_<i> and indexed
// from zero.
type Builder struct {
	coords dataset.CoordDict
	dims   map[string][]string
	groups map[string]*Group
	attrs  map[string]string
}

// NewBuilder starts an empty result.
func NewBuilder(coords dataset.CoordDict, dims map[string][]string) *Builder {
	return &Builder{
		coords: coords.Clone(),
		dims:   dims,
		groups: map[string]*Group{},
		attrs:  map[string]string{},
	}
}

func (b *Builder) put(group, name string, v *Variable) error {
	g, ok := b.groups[group]
	if !ok {
		g = &Group{Variables: map[string]*Variable{}}
		b.groups[group] = g
	}
	if _, dup := g.Variables[name]; dup {
		return errors.InvalidInput(fmt.Sprintf("variable %q already present in group %q", name, group))
	}
	g.Variables[name] = v
	return nil
}

// SetAttr records a string attribute on the result.
func (b *Builder) SetAttr(key, value string) {
	b.attrs[key] = value
}

// labelAxes names and labels the trailing axes of a variable.
func (b *Builder) labelAxes(name string, shape []int) ([]string, map[string][]string, error) {
	configured := b.dims[name]
	if len(configured) > 0 && len(configured) != len(shape) {
		return nil, nil, errors.InvalidInput(fmt.Sprintf("dims for %q name %d dimensions but the variable has %d", name, len(configured), len(shape)))
	}
	dims := make([]string, len(shape))
	coords := map[string][]string{}
	for i, n := range shape {
		if len(configured) > 0 {
			dims[i] = configured[i]
		} else {
			dims[i] = fmt.Sprintf("%s_dim_%d", name, i)
		}
		if labels, ok := b.coords.Labels(dims[i]); ok {
			if len(labels) != n {
				return nil, nil, errors.InvalidInput(fmt.Sprintf("coordinate %q has %d labels but %q has length %d along it", dims[i], len(labels), name, n))
			}
			coords[dims[i]] = labels
		} else {
			coords[dims[i]] = indexLabels(n)
		}
	}
	return dims, coords, nil
}

// FromArray converts sampler draws into a [chain, draw, ...] variable.
func (b *Builder) FromArray(arr *draws.Array) (*Variable, error) {
	dims, coords, err := b.labelAxes(arr.Name, arr.Shape)
	if err != nil {
		return nil, err
	}
	nChains := len(arr.Values)
	nDraws := 0
	if nChains > 0 {
		nDraws = len(arr.Values[0])
	}
	size := arr.Size()
	values := make([]float64, 0, nChains*nDraws*size)
	for _, chain := range arr.Values {
		for _, draw := range chain {
			values = append(values, draw...)
		}
	}
	coords[DimChain] = indexLabels(nChains)
	coords[DimDraw] = indexLabels(nDraws)
	return NewVariable(
		append([]string{DimChain, DimDraw}, dims...),
		append([]int{nChains, nDraws}, arr.Shape...),
		coords,
		values,
	)
}

// AddObservedData records the sampler input as the observed_data group.
func (b *Builder) AddObservedData(input stan.Input) error {
	for _, key := range input.Keys() {
		shape, values, err := flatten(input[key])
		if err != nil {
			return errors.Wrapf(err, "observed data %q", key)
		}
		dims, coords, err := b.labelAxes(key, shape)
		if err != nil {
			return err
		}
		v, err := NewVariable(dims, shape, coords, values)
		if err != nil {
			return err
		}
		if err := b.put(GroupObservedData, key, v); err != nil {
			return err
		}
	}
	return nil
}

// AddDraws routes every variable of a prior or posterior sample. Columns
// named name__ go to the matching sample-stats group with the suffix
// removed, predictive goes to <target>_predictive and, for a posterior,
// llik goes to log_likelihood.
func (b *Builder) AddDraws(target string, c *draws.Collection, predictive string) error {
	var statsGroup string
	switch target {
	case GroupPrior:
		statsGroup = GroupSampleStatsPrior
	case GroupPosterior:
		statsGroup = GroupSampleStats
	default:
		return errors.InvalidInput(fmt.Sprintf("draws cannot target group %q", target))
	}
	for _, name := range c.VariableNames() {
		arr, err := c.Variable(name)
		if err != nil {
			return err
		}
		group, varName := target, name
		switch {
		case strings.HasSuffix(name, "__"):
			group, varName = statsGroup, strings.TrimSuffix(name, "__")
		case name == predictive:
			group = target + "_predictive"
		case target == GroupPosterior && name == LogLikelihoodVar:
			group = GroupLogLikelihood
		}
		v, err := b.FromArray(arr)
		if err != nil {
			return err
		}
		if err := b.put(group, varName, v); err != nil {
			return err
		}
	}
	return nil
}

// AddLogLikelihood stores an already-built variable in log_likelihood.
func (b *Builder) AddLogLikelihood(name string, v *Variable) error {
	if err := v.Validate(); err != nil {
		return errors.Wrapf(err, "log likelihood %q", name)
	}
	return b.put(GroupLogLikelihood, name, v)
}

// Build returns the accumulated result. The builder must not be reused.
func (b *Builder) Build() *InferenceData {
	return &InferenceData{Groups: b.groups, Attrs: b.attrs}
}

func flatten(value any) ([]int, []float64, error) {
	switch v := value.(type) {
	case int:
		return []int{}, []float64{float64(v)}, nil
	case int64:
		return []int{}, []float64{float64(v)}, nil
	case float64:
		return []int{}, []float64{v}, nil
	case []int:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return []int{len(v)}, out, nil
	case []float64:
		out := make([]float64, len(v))
		copy(out, v)
		return []int{len(v)}, out, nil
	case [][]float64:
		return matrix(len(v), func(i int) []float64 { return v[i] })
	case [][]int:
		return matrix(len(v), func(i int) []float64 {
			row := make([]float64, len(v[i]))
			for j, x := range v[i] {
				row[j] = float64(x)
			}
			return row
		})
	default:
		return nil, nil, errors.InvalidInput(fmt.Sprintf("unsupported value of type %T", value))
	}
}

func matrix(rows int, row func(int) []float64) ([]int, []float64, error) {
	if rows == 0 {
		return []int{0, 0}, nil, nil
	}
	cols := len(row(0))
	out := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		r := row(i)
		if len(r) != cols {
			return nil, nil, errors.InvalidInput(fmt.Sprintf("ragged matrix: row %d has %d entries, want %d", i, len(r), cols))
		}
		out = append(out, r...)
	}
	return []int{rows, cols}, out, nil
}
