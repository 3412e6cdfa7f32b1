// Package analysis summarizes inference results: per-element posterior
// summaries with split R-hat, and expected log predictive density from
// log-likelihood draws.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/teddygroves/bibat/domain/idata"
	"github.com/teddygroves/bibat/internal/errors"
)

// Summary describes the draws of one element of a variable.
type Summary struct {
	Variable string
	Element  string
	Mean     float64
	SD       float64
	Q5       float64
	Median   float64
	Q95      float64
	Rhat     float64
}

// elementDraws holds one element's values as [chain][draw].
type elementDraws [][]float64

// splitByElement reshapes a [chain, draw, ...] variable into one
// elementDraws per trailing element, with display labels.
func splitByElement(name string, v *idata.Variable) ([]string, []elementDraws, error) {
	if len(v.Dims) < 2 || v.Dims[0] != idata.DimChain || v.Dims[1] != idata.DimDraw {
		return nil, nil, errors.InvalidInput(fmt.Sprintf("variable %q has no chain and draw dimensions", name))
	}
	nChains, nDraws := v.Shape[0], v.Shape[1]
	if nChains == 0 || nDraws == 0 {
		return nil, nil, errors.InvalidInput(fmt.Sprintf("variable %q has no draws", name))
	}
	size := 1
	for _, s := range v.Shape[2:] {
		size *= s
	}

	labels := make([]string, size)
	for e := range labels {
		labels[e] = elementLabel(name, v, e)
	}
	out := make([]elementDraws, size)
	for e := range out {
		out[e] = make(elementDraws, nChains)
		for c := 0; c < nChains; c++ {
			out[e][c] = make([]float64, nDraws)
			for d := 0; d < nDraws; d++ {
				out[e][c][d] = v.Values[(c*nDraws+d)*size+e]
			}
		}
	}
	return labels, out, nil
}

// elementLabel renders element e as name[label, ...] using coordinate
// labels where the variable has them.
func elementLabel(name string, v *idata.Variable, e int) string {
	trailing := v.Shape[2:]
	if len(trailing) == 0 {
		return name
	}
	index := make([]int, len(trailing))
	for k := len(trailing) - 1; k >= 0; k-- {
		index[k] = e % trailing[k]
		e /= trailing[k]
	}
	parts := make([]string, len(index))
	for k, i := range index {
		dim := v.Dims[k+2]
		if labels, ok := v.Coords[dim]; ok && i < len(labels) {
			parts[k] = labels[i]
		} else {
			parts[k] = strconv.Itoa(i)
		}
	}
	return name + "[" + strings.Join(parts, ", ") + "]"
}

func (e elementDraws) flat() []float64 {
	var out []float64
	for _, chain := range e {
		out = append(out, chain...)
	}
	return out
}

// Summarize computes a Summary for every element of v.
func Summarize(name string, v *idata.Variable) ([]Summary, error) {
	labels, elements, err := splitByElement(name, v)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, len(elements))
	for i, el := range elements {
		data := stats.Float64Data(el.flat())
		s := Summary{Variable: name, Element: labels[i], Rhat: SplitRhat(el)}
		if s.Mean, err = data.Mean(); err != nil {
			return nil, err
		}
		if len(data) > 1 {
			if s.SD, err = data.StandardDeviationSample(); err != nil {
				return nil, err
			}
		}
		if s.Median, err = data.Median(); err != nil {
			return nil, err
		}
		sorted := append([]float64(nil), data...)
		sort.Float64s(sorted)
		s.Q5 = stat.Quantile(0.05, stat.LinInterp, sorted, nil)
		s.Q95 = stat.Quantile(0.95, stat.LinInterp, sorted, nil)
		out[i] = s
	}
	return out, nil
}

// SplitRhat is the potential scale reduction factor computed on chains
// split in half. It is NaN when there are fewer than four draws per chain
// or no within-chain variance.
func SplitRhat(chains [][]float64) float64 {
	var halves [][]float64
	for _, chain := range chains {
		n := len(chain) / 2
		if n < 2 {
			return math.NaN()
		}
		halves = append(halves, chain[:n], chain[len(chain)-n:])
	}
	if len(halves) == 0 {
		return math.NaN()
	}
	n := float64(len(halves[0]))

	means := make([]float64, len(halves))
	variances := make([]float64, len(halves))
	for j, h := range halves {
		means[j], variances[j] = stat.MeanVariance(h, nil)
	}
	w := stat.Mean(variances, nil)
	if w == 0 || math.IsNaN(w) {
		return math.NaN()
	}
	b := n * stat.Variance(means, nil)
	varPlus := (n-1)/n*w + b/n
	return math.Sqrt(varPlus / w)
}
