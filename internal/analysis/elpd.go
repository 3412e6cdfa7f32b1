package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/teddygroves/bibat/domain/idata"
)

// ELPD is the expected log predictive density estimated from
// log-likelihood draws.
type ELPD struct {
	Variable  string
	Estimate  float64
	SE        float64
	Pointwise []float64
	Labels    []string
}

// EstimateELPD computes, for every observation, the log of the mean
// likelihood over all chains and draws, then sums them. The standard
// error is sqrt(n * var(pointwise)).
func EstimateELPD(name string, llik *idata.Variable) (*ELPD, error) {
	labels, elements, err := splitByElement(name, llik)
	if err != nil {
		return nil, err
	}
	out := &ELPD{Variable: name, Labels: labels, Pointwise: make([]float64, len(elements))}
	for i, el := range elements {
		flat := el.flat()
		out.Pointwise[i] = floats.LogSumExp(flat) - math.Log(float64(len(flat)))
	}
	out.Estimate = floats.Sum(out.Pointwise)
	n := float64(len(out.Pointwise))
	out.SE = math.Sqrt(n * stat.PopVariance(out.Pointwise, nil))
	return out, nil
}
