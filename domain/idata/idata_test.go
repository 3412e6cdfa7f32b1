package idata

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teddygroves/bibat/domain/dataset"
	"github.com/teddygroves/bibat/domain/draws"
	"github.com/teddygroves/bibat/domain/stan"
)

func posteriorDraws(t *testing.T) *draws.Collection {
	t.Helper()
	columns := []string{"lp__", "accept_stat__", "sigma", "yrep.1", "yrep.2", "llik.1", "llik.2"}
	c, err := draws.NewCollection(columns, [][][]float64{
		{{-3, 0.9, 1.1, 0.1, 0.2, -1.1, -1.2}, {-4, 0.8, 1.2, 0.3, 0.4, -1.3, -1.4}},
		{{-5, 0.7, 1.3, 0.5, 0.6, -1.5, -1.6}, {-6, 0.6, 1.4, 0.7, 0.8, -1.7, -1.8}},
	})
	require.NoError(t, err)
	return c
}

func TestAddDrawsRoutesGroups(t *testing.T) {
	coords := dataset.CoordDict{"observation": {"a", "b"}}
	dims := map[string][]string{"llik": {"observation"}, "yrep": {"observation"}}
	b := NewBuilder(coords, dims)
	require.NoError(t, b.AddDraws(GroupPosterior, posteriorDraws(t), "yrep"))
	result := b.Build()

	assert.Equal(t, []string{"log_likelihood", "posterior", "posterior_predictive", "sample_stats"}, result.GroupNames())
	assert.Equal(t, []string{"accept_stat", "lp"}, result.Groups[GroupSampleStats].VariableNames())
	assert.Equal(t, []string{"sigma"}, result.Groups[GroupPosterior].VariableNames())

	llik, err := result.Variable(GroupLogLikelihood, "llik")
	require.NoError(t, err)
	assert.Equal(t, []string{"chain", "draw", "observation"}, llik.Dims)
	assert.Equal(t, []int{2, 2, 2}, llik.Shape)
	assert.Equal(t, []string{"a", "b"}, llik.Coords["observation"])
	assert.Equal(t, -1.6, llik.At(1, 0, 1))

	sigma, err := result.Variable(GroupPosterior, "sigma")
	require.NoError(t, err)
	assert.Equal(t, []string{"chain", "draw"}, sigma.Dims)
	assert.Equal(t, 1.4, sigma.At(1, 1))
}

func TestAddDrawsPriorKeepsLlikInPrior(t *testing.T) {
	b := NewBuilder(dataset.CoordDict{"observation": {"a", "b"}}, map[string][]string{"yrep": {"observation"}, "llik": {"observation"}})
	require.NoError(t, b.AddDraws(GroupPrior, posteriorDraws(t), "yrep"))
	result := b.Build()

	assert.Equal(t, []string{"prior", "prior_predictive", "sample_stats_prior"}, result.GroupNames())
	assert.Equal(t, []string{"llik", "sigma"}, result.Groups[GroupPrior].VariableNames())
	assert.Error(t, NewBuilder(nil, nil).AddDraws(GroupLogLikelihood, posteriorDraws(t), "yrep"))
}

func TestLabelsFallBackToIndexDims(t *testing.T) {
	c, err := draws.NewCollection([]string{"b.1", "b.2", "b.3"}, [][][]float64{{{1, 2, 3}}})
	require.NoError(t, err)
	b := NewBuilder(nil, nil)
	require.NoError(t, b.AddDraws(GroupPosterior, c, "yrep"))
	v, err := b.Build().Variable(GroupPosterior, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"chain", "draw", "b_dim_0"}, v.Dims)
	assert.Equal(t, []string{"0", "1", "2"}, v.Coords["b_dim_0"])
}

func TestCoordinateLengthMismatch(t *testing.T) {
	b := NewBuilder(dataset.CoordDict{"observation": {"only"}}, map[string][]string{"llik": {"observation"}})
	err := b.AddDraws(GroupPosterior, posteriorDraws(t), "yrep")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `coordinate "observation" has 1 labels`)
}

func TestAddObservedData(t *testing.T) {
	b := NewBuilder(dataset.CoordDict{"observation": {"a", "b"}, "covariate": {"x1", "x2", "x1:x2"}},
		map[string][]string{"x": {"observation", "covariate"}, "y": {"observation"}})
	input := stan.Input{
		"N":        2,
		"x":        [][]float64{{1, 2, 2}, {3, 4, 12}},
		"y":        []float64{0.5, 0.7},
		"ix_train": []int{1, 2},
	}
	require.NoError(t, b.AddObservedData(input))
	result := b.Build()
	observed := result.Groups[GroupObservedData]
	assert.Equal(t, []string{"N", "ix_train", "x", "y"}, observed.VariableNames())

	x := observed.Variables["x"]
	assert.Equal(t, []int{2, 3}, x.Shape)
	assert.Equal(t, 12.0, x.At(1, 2))
	assert.Equal(t, []string{"x1", "x2", "x1:x2"}, x.Coords["covariate"])
	assert.Empty(t, observed.Variables["N"].Shape)

	bad := NewBuilder(nil, nil)
	assert.Error(t, bad.AddObservedData(stan.Input{"x": [][]float64{{1}, {1, 2}}}))
	assert.Error(t, bad.AddObservedData(stan.Input{"s": "text"}))
}

func TestLogLikelihoodNamesDoNotCollide(t *testing.T) {
	b := NewBuilder(nil, nil)
	v, err := NewVariable([]string{"chain", "draw"}, []int{1, 2}, nil, []float64{1, 2})
	require.NoError(t, err)
	require.NoError(t, b.AddLogLikelihood("llik_kfold", v))
	assert.Error(t, b.AddLogLikelihood("llik_kfold", v))
	_, err = NewVariable([]string{"chain"}, []int{2}, nil, []float64{1})
	assert.Error(t, err)
}

func TestEqualIsBitExact(t *testing.T) {
	mk := func(x float64) *InferenceData {
		v, err := NewVariable([]string{"chain"}, []int{2}, map[string][]string{"chain": {"0", "1"}}, []float64{x, math.Inf(-1)})
		require.NoError(t, err)
		return &InferenceData{
			Groups: map[string]*Group{"posterior": {Variables: map[string]*Variable{"mu": v}}},
			Attrs:  map[string]string{"name": "test"},
		}
	}
	assert.True(t, mk(math.NaN()).Equal(mk(math.NaN())))
	assert.False(t, mk(0).Equal(mk(math.Copysign(0, -1))))
	assert.False(t, mk(1).Equal(mk(2)))

	other := mk(1)
	other.Attrs["name"] = "changed"
	assert.False(t, mk(1).Equal(other))
}
