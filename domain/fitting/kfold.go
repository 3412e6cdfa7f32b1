package fitting

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/teddygroves/bibat/domain/dataset"
	"github.com/teddygroves/bibat/domain/idata"
	"github.com/teddygroves/bibat/domain/stan"
	"github.com/teddygroves/bibat/internal/errors"
)

// AuxFold names the auxiliary coordinate recording each observation's fold.
const AuxFold = "fold"

// heldOut is the log likelihood of one held-out observation across every
// draw of its fold.
type heldOut struct {
	observation int // 1-based index into the data
	fold        int
	draws       []float64
}

// fitKfold samples once per fold and reassembles the held-out log
// likelihoods in observation order.
func fitKfold(ctx context.Context, env Env, mode string) (Output, error) {
	cfg := env.Config
	job := cfg.Name()
	k := cfg.NFolds()
	if k < 1 {
		return Output{}, errors.ConfigurationError("mode_options.kfold.n_folds", "kfold mode needs a positive number of folds")
	}
	base, err := env.StanInput()
	if err != nil {
		return Output{}, err
	}
	program, err := env.Program()
	if err != nil {
		return Output{}, err
	}
	opts, err := cfg.SampleOptionsFor(mode)
	if err != nil {
		return Output{}, err
	}
	fullIx, err := baseIndices(base, env.Data)
	if err != nil {
		return Output{}, err
	}
	folds, err := Partition(len(fullIx), k, KfoldSeed)
	if err != nil {
		return Output{}, errors.ConfigurationError("mode_options.kfold.n_folds", err.Error())
	}

	var entries []heldOut
	nDraws := -1
	for _, fold := range folds {
		ixTrain := pick(fullIx, fold.Train)
		ixTest := pick(fullIx, fold.Test)
		input := base.With(stan.Input{
			stan.KeyLikelihood: 1,
			stan.KeyNTrain:     len(ixTrain),
			stan.KeyNTest:      len(ixTest),
			stan.KeyIxTrain:    ixTrain,
			stan.KeyIxTest:     ixTest,
		})
		env.logger().Info("sampling fold", "job", job, "mode", mode, "fold", fold.Index+1, "n_folds", k, "n_test", len(ixTest))
		c, err := env.Sampler.Sample(ctx, program, input, opts)
		if err != nil {
			return Output{}, errors.SamplerError(job, mode, fmt.Errorf("fold %d of %d: %w", fold.Index+1, k, err))
		}
		if c == nil {
			return Output{}, errors.SamplerError(job, mode, fmt.Errorf("fold %d of %d: sampler returned no draws", fold.Index+1, k))
		}
		arr, err := c.Variable(idata.LogLikelihoodVar)
		if err != nil {
			return Output{}, errors.SamplerError(job, mode, fmt.Errorf("fold %d of %d: %w", fold.Index+1, k, err))
		}
		if len(arr.Shape) != 1 || arr.Shape[0] != len(ixTest) {
			return Output{}, errors.SamplerError(job, mode, fmt.Errorf("fold %d of %d: %s has shape %v, want [%d]",
				fold.Index+1, k, idata.LogLikelihoodVar, arr.Shape, len(ixTest)))
		}
		// Folds are sampled independently, so their chains are merged into
		// one logical chain 0.
		merged := arr.CollapseChains().Values[0]
		if nDraws >= 0 && len(merged) != nDraws {
			return Output{}, errors.SamplerError(job, mode, fmt.Errorf("fold %d of %d returned %d draws, earlier folds returned %d",
				fold.Index+1, k, len(merged), nDraws))
		}
		nDraws = len(merged)
		for j, obs := range ixTest {
			values := make([]float64, nDraws)
			for d, draw := range merged {
				values[d] = draw[j]
			}
			entries = append(entries, heldOut{observation: obs, fold: fold.Index, draws: values})
		}
	}
	sort.SliceStable(entries, func(a, b int) bool { return entries[a].observation < entries[b].observation })

	v, err := assemble(entries, nDraws, cfg.Dims(), env.Data)
	if err != nil {
		return Output{}, errors.SamplerError(job, mode, err)
	}
	return Output{LogLikelihood: v}, nil
}

// baseIndices are the observations k-fold splits: the input's ix_train,
// or every observation when the input has none.
func baseIndices(input stan.Input, data *dataset.PreparedData) ([]int, error) {
	if ix, ok := input.Ints(stan.KeyIxTrain); ok {
		if len(ix) == 0 {
			return nil, errors.ConfigurationError("stan_input_function", "ix_train is empty")
		}
		return ix, nil
	}
	if data != nil {
		if labels, ok := data.Coords.Labels(dataset.ObservationDim); ok && len(labels) > 0 {
			ix := make([]int, len(labels))
			for i := range ix {
				ix[i] = i + 1
			}
			return ix, nil
		}
	}
	return nil, errors.ConfigurationError("stan_input_function",
		"kfold needs an ix_train entry in the stan input or an observation coordinate in the prepared data")
}

func pick(values, positions []int) []int {
	out := make([]int, len(positions))
	for i, p := range positions {
		out[i] = values[p]
	}
	return out
}

// assemble lays the sorted entries out as a [chain, draw, observation]
// variable with one chain.
func assemble(entries []heldOut, nDraws int, dims map[string][]string, data *dataset.PreparedData) (*idata.Variable, error) {
	obsDim := idata.LogLikelihoodVar + "_dim_0"
	if d := dims[idata.LogLikelihoodVar]; len(d) > 0 {
		obsDim = d[0]
	}
	n := len(entries)
	values := make([]float64, nDraws*n)
	for i, e := range entries {
		for d, x := range e.draws {
			values[d*n+i] = x
		}
	}

	var labels []string
	if data != nil {
		labels, _ = data.Coords.Labels(obsDim)
	}
	obsLabels := make([]string, n)
	folds := make([]int, n)
	for i, e := range entries {
		folds[i] = e.fold
		if e.observation >= 1 && e.observation <= len(labels) {
			obsLabels[i] = labels[e.observation-1]
		} else {
			obsLabels[i] = strconv.Itoa(e.observation - 1)
		}
	}
	drawLabels := make([]string, nDraws)
	for d := range drawLabels {
		drawLabels[d] = strconv.Itoa(d)
	}

	v, err := idata.NewVariable(
		[]string{idata.DimChain, idata.DimDraw, obsDim},
		[]int{1, nDraws, n},
		map[string][]string{idata.DimChain: {"0"}, idata.DimDraw: drawLabels, obsDim: obsLabels},
		values,
	)
	if err != nil {
		return nil, err
	}
	v.Aux = map[string]idata.AuxCoord{AuxFold: {Dim: obsDim, Values: folds}}
	return v, nil
}
