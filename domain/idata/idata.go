// Package idata is the unified inference result: named groups of labelled
// arrays accumulated from every fitting mode of one inference job.
package idata

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/teddygroves/bibat/internal/errors"
)

// Group names.
const (
	GroupPrior               = "prior"
	GroupPriorPredictive     = "prior_predictive"
	GroupSampleStatsPrior    = "sample_stats_prior"
	GroupPosterior           = "posterior"
	GroupPosteriorPredictive = "posterior_predictive"
	GroupSampleStats         = "sample_stats"
	GroupLogLikelihood       = "log_likelihood"
	GroupObservedData        = "observed_data"
)

// Leading dimensions of every draw-valued variable.
const (
	DimChain = "chain"
	DimDraw  = "draw"
)

// InferenceData holds every group of one result.
type InferenceData struct {
	Groups map[string]*Group `json:"groups"`
	Attrs  map[string]string `json:"attrs,omitempty"`
}

// Group is a named collection of variables.
type Group struct {
	Variables map[string]*Variable `json:"variables"`
}

// AuxCoord is an integer-valued coordinate attached to one dimension of a
// variable, for instance the fold each observation was held out in.
type AuxCoord struct {
	Dim    string `json:"dim"`
	Values []int  `json:"values"`
}

// Variable is a labelled array. Values are stored row-major over Shape.
type Variable struct {
	Dims   []string            `json:"dims"`
	Shape  []int               `json:"shape"`
	Coords map[string][]string `json:"coords,omitempty"`
	Aux    map[string]AuxCoord `json:"aux,omitempty"`
	Values []float64           `json:"values"`
}

// NewVariable checks that dims, shape, coords and values agree.
func NewVariable(dims []string, shape []int, coords map[string][]string, values []float64) (*Variable, error) {
	v := &Variable{Dims: dims, Shape: shape, Coords: coords, Values: values}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// Size is the number of elements implied by Shape.
func (v *Variable) Size() int {
	n := 1
	for _, s := range v.Shape {
		n *= s
	}
	return n
}

// Validate reports the first structural inconsistency.
func (v *Variable) Validate() error {
	if len(v.Dims) != len(v.Shape) {
		return errors.InvalidInput(fmt.Sprintf("variable has %d dims but shape %v", len(v.Dims), v.Shape))
	}
	if len(v.Values) != v.Size() {
		return errors.InvalidInput(fmt.Sprintf("variable of shape %v has %d values", v.Shape, len(v.Values)))
	}
	for dim, labels := range v.Coords {
		axis := v.Axis(dim)
		if axis < 0 {
			return errors.InvalidInput(fmt.Sprintf("coordinate %q is not a dimension of the variable", dim))
		}
		if len(labels) != v.Shape[axis] {
			return errors.InvalidInput(fmt.Sprintf("coordinate %q has %d labels for length %d", dim, len(labels), v.Shape[axis]))
		}
	}
	for name, aux := range v.Aux {
		axis := v.Axis(aux.Dim)
		if axis < 0 || len(aux.Values) != v.Shape[axis] {
			return errors.InvalidInput(fmt.Sprintf("auxiliary coordinate %q does not match dimension %q", name, aux.Dim))
		}
	}
	return nil
}

// Axis returns the position of dim, or -1.
func (v *Variable) Axis(dim string) int {
	for i, d := range v.Dims {
		if d == dim {
			return i
		}
	}
	return -1
}

// At returns the element at the given index.
func (v *Variable) At(index ...int) float64 {
	offset := 0
	for i, n := range index {
		offset = offset*v.Shape[i] + n
	}
	return v.Values[offset]
}

// Equal reports whether two variables are identical, comparing values bit
// for bit so NaN payloads and signed zeros count.
func (v *Variable) Equal(o *Variable) bool {
	if v == nil || o == nil {
		return v == o
	}
	if !equalStrings(v.Dims, o.Dims) || !equalInts(v.Shape, o.Shape) || len(v.Values) != len(o.Values) {
		return false
	}
	for i := range v.Values {
		if math.Float64bits(v.Values[i]) != math.Float64bits(o.Values[i]) {
			return false
		}
	}
	if len(v.Coords) != len(o.Coords) || len(v.Aux) != len(o.Aux) {
		return false
	}
	for k, labels := range v.Coords {
		if !equalStrings(labels, o.Coords[k]) {
			return false
		}
	}
	for k, aux := range v.Aux {
		other, ok := o.Aux[k]
		if !ok || other.Dim != aux.Dim || !equalInts(aux.Values, other.Values) {
			return false
		}
	}
	return true
}

// GroupNames returns the group names in sorted order.
func (d *InferenceData) GroupNames() []string {
	names := make([]string, 0, len(d.Groups))
	for name := range d.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// VariableNames returns the sorted variable names of a group.
func (g *Group) VariableNames() []string {
	names := make([]string, 0, len(g.Variables))
	for name := range g.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Variable looks up group/name.
func (d *InferenceData) Variable(group, name string) (*Variable, error) {
	g, ok := d.Groups[group]
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("group %q", group))
	}
	v, ok := g.Variables[name]
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("variable %q in group %q", name, group))
	}
	return v, nil
}

// Equal compares groups, variables and attributes.
func (d *InferenceData) Equal(o *InferenceData) bool {
	if d == nil || o == nil {
		return d == o
	}
	if !equalStrings(d.GroupNames(), o.GroupNames()) || len(d.Attrs) != len(o.Attrs) {
		return false
	}
	for k, v := range d.Attrs {
		if ov, ok := o.Attrs[k]; !ok || ov != v {
			return false
		}
	}
	for name, g := range d.Groups {
		og := o.Groups[name]
		if !equalStrings(g.VariableNames(), og.VariableNames()) {
			return false
		}
		for vname, v := range g.Variables {
			if !v.Equal(og.Variables[vname]) {
				return false
			}
		}
	}
	return true
}

func indexLabels(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = strconv.Itoa(i)
	}
	return labels
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
