package stan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teddygroves/bibat/domain/dataset"
	"github.com/teddygroves/bibat/internal/errors"
)

func TestInputWithDoesNotMutate(t *testing.T) {
	base := Input{"N": 2, KeyLikelihood: 1, KeyIxTrain: []int{1, 2}}
	prior := base.With(Input{KeyLikelihood: 0})

	assert.Equal(t, 0, prior[KeyLikelihood])
	assert.Equal(t, 1, base[KeyLikelihood])
	assert.Equal(t, []string{"N", KeyIxTrain, KeyLikelihood}, prior.Keys())

	ix, ok := base.Ints(KeyIxTrain)
	require.True(t, ok)
	ix[0] = 99
	assert.Equal(t, []int{1, 2}, base[KeyIxTrain])

	_, ok = base.Ints("N")
	assert.False(t, ok)
}

func TestInputValidate(t *testing.T) {
	assert.NoError(t, Input{"N": 2, "y": []float64{1, 2}, "x": [][]float64{{1}, {2}}}.Validate())
	assert.Error(t, Input{"name": "not a number"}.Validate())
}

func TestFunctionsLookup(t *testing.T) {
	fns := NewFunctions(map[string]InputFunction{
		"get_stan_input": func(*dataset.PreparedData) (Input, error) { return Input{"N": 0}, nil },
	})
	fn, err := fns.Lookup("get_stan_input")
	require.NoError(t, err)
	in, err := fn(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, in["N"])

	_, err = fns.Lookup("XXXXXXXX")
	assert.True(t, errors.IsUnknownAdapter(err))
	assert.Contains(t, err.Error(), "get_stan_input")

	var none *Functions
	_, err = none.Lookup("anything")
	assert.True(t, errors.IsUnknownAdapter(err))
}

func TestParseSampleOptionsLayers(t *testing.T) {
	opts, err := ParseSampleOptions(
		map[string]any{"show_progress": false, "chains": int64(4)},
		map[string]any{"chains": int64(2), "iter_warmup": int64(50), "iter_sampling": "50", "adapt_delta": 0.7, "step_size": 0.01},
		map[string]any{"show_progress": true},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, *opts.Chains)
	assert.Equal(t, 50, *opts.IterWarmup)
	assert.Equal(t, 50, *opts.IterSampling)
	assert.Equal(t, 0.7, *opts.AdaptDelta)
	assert.Equal(t, 0.01, *opts.StepSize)
	assert.True(t, opts.ShowProgress)
	assert.Nil(t, opts.Seed)
	assert.Equal(t, 1000, IntOr(opts.Thin, 1000))
}

func TestParseSampleOptionsRejectsBadInput(t *testing.T) {
	_, err := ParseSampleOptions(map[string]any{
		"chians":        int64(2),
		"chains":        2.5,
		"adapt_delta":   1.5,
		"show_progress": "yes",
	})
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `unknown sampler option "chians"`)
	assert.Contains(t, msg, "chains: 2.5 is not an integer")
	assert.Contains(t, msg, "adapt_delta: 1.5 must be below 1")
	assert.Contains(t, msg, "show_progress: yes is not a boolean")
}

func TestCoerceInt(t *testing.T) {
	for _, good := range []any{10, int64(10), 10.0, "10", " 10 "} {
		n, err := CoerceInt(good)
		require.NoError(t, err, "%v", good)
		assert.Equal(t, 10, n)
	}
	for _, bad := range []any{2.5, "ten", true, nil, map[string]any{}} {
		_, err := CoerceInt(bad)
		assert.Error(t, err, "%v", bad)
	}
}
