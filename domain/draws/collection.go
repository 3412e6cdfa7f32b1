// Package draws holds sampler output: per-chain draws of named columns in
// the CmdStan naming convention ("sigma", "llik.3", "b.2.1", "lp__").
package draws

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/teddygroves/bibat/internal/errors"
)

// Collection is the output of one sampler invocation.
type Collection struct {
	columns []string
	index   map[string]int
	// chains[c][d][j] is column j of draw d in chain c.
	chains [][][]float64
}

// NewCollection validates that every chain has the same number of draws
// and every draw has one value per column.
func NewCollection(columns []string, chains [][][]float64) (*Collection, error) {
	if len(chains) == 0 {
		return nil, errors.InvalidInput("draw collection has no chains")
	}
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, errors.InvalidInput(fmt.Sprintf("duplicate column %q", c))
		}
		index[c] = i
	}
	nDraws := len(chains[0])
	for c, chain := range chains {
		if len(chain) != nDraws {
			return nil, errors.InvalidInput(fmt.Sprintf("chain %d has %d draws, chain 0 has %d", c, len(chain), nDraws))
		}
		for d, draw := range chain {
			if len(draw) != len(columns) {
				return nil, errors.InvalidInput(fmt.Sprintf("chain %d draw %d has %d values, want %d", c, d, len(draw), len(columns)))
			}
		}
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Collection{columns: cols, index: index, chains: chains}, nil
}

// Columns returns the raw column names.
func (c *Collection) Columns() []string {
	out := make([]string, len(c.columns))
	copy(out, c.columns)
	return out
}

// NumChains returns the number of chains.
func (c *Collection) NumChains() int { return len(c.chains) }

// NumDraws returns the number of draws per chain.
func (c *Collection) NumDraws() int { return len(c.chains[0]) }

// TotalDraws returns the number of draws across all chains.
func (c *Collection) TotalDraws() int { return c.NumChains() * c.NumDraws() }

// Draw returns a copy of one draw's values in column order.
func (c *Collection) Draw(chain, draw int) []float64 {
	out := make([]float64, len(c.columns))
	copy(out, c.chains[chain][draw])
	return out
}

// BaseName strips CmdStan element indices from a column name.
func BaseName(column string) string {
	if i := strings.IndexByte(column, '.'); i >= 0 {
		return column[:i]
	}
	return column
}

// VariableNames returns variable names in order of first appearance.
func (c *Collection) VariableNames() []string {
	seen := map[string]bool{}
	var names []string
	for _, col := range c.columns {
		name := BaseName(col)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Array is one variable extracted from a collection. Values[c][d] holds
// the variable's elements for draw d of chain c in row-major order over
// Shape.
type Array struct {
	Name   string
	Shape  []int
	Values [][][]float64
}

// Size is the number of elements per draw.
func (a *Array) Size() int {
	n := 1
	for _, s := range a.Shape {
		n *= s
	}
	return n
}

// Variable extracts a named variable. Missing variables are NOT_FOUND.
func (c *Collection) Variable(name string) (*Array, error) {
	type element struct {
		col     int
		indices []int
	}
	var elements []element
	var shape []int
	for j, col := range c.columns {
		if BaseName(col) != name {
			continue
		}
		var indices []int
		if col != name {
			parts := strings.Split(col[len(name)+1:], ".")
			indices = make([]int, len(parts))
			for k, p := range parts {
				n, err := strconv.Atoi(p)
				if err != nil || n < 1 {
					return nil, errors.InvalidInput(fmt.Sprintf("column %q has a malformed index", col))
				}
				indices[k] = n
			}
		}
		if shape == nil {
			shape = make([]int, len(indices))
		}
		if len(indices) != len(shape) {
			return nil, errors.InvalidInput(fmt.Sprintf("variable %q has inconsistent dimensionality", name))
		}
		for k, n := range indices {
			if n > shape[k] {
				shape[k] = n
			}
		}
		elements = append(elements, element{col: j, indices: indices})
	}
	if elements == nil {
		return nil, errors.NotFound(fmt.Sprintf("variable %q in draws", name))
	}

	arr := &Array{Name: name, Shape: shape}
	if arr.Size() != len(elements) {
		return nil, errors.InvalidInput(fmt.Sprintf("variable %q has %d columns for shape %v", name, len(elements), shape))
	}
	offsets := make([]int, len(elements))
	for e, el := range elements {
		offsets[e] = rowMajorOffset(shape, el.indices)
	}
	arr.Values = make([][][]float64, len(c.chains))
	for ci, chain := range c.chains {
		arr.Values[ci] = make([][]float64, len(chain))
		for d, draw := range chain {
			vals := make([]float64, len(elements))
			for e, el := range elements {
				vals[offsets[e]] = draw[el.col]
			}
			arr.Values[ci][d] = vals
		}
	}
	return arr, nil
}

func rowMajorOffset(shape, oneBased []int) int {
	offset := 0
	for k, n := range oneBased {
		offset = offset*shape[k] + (n - 1)
	}
	return offset
}

// CollapseChains returns a copy of a with every chain's draws concatenated,
// in chain order, into a single chain.
func (a *Array) CollapseChains() *Array {
	var merged [][]float64
	for _, chain := range a.Values {
		merged = append(merged, chain...)
	}
	shape := make([]int, len(a.Shape))
	copy(shape, a.Shape)
	return &Array{Name: a.Name, Shape: shape, Values: [][][]float64{merged}}
}
