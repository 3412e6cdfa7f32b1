package idatastore

import (
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teddygroves/bibat/domain/idata"
	"github.com/teddygroves/bibat/internal/errors"
	"github.com/teddygroves/bibat/ports"
)

var _ ports.ResultStore = (*Store)(nil)

func sampleData(t *testing.T) *idata.InferenceData {
	t.Helper()
	mu, err := idata.NewVariable(
		[]string{"chain", "draw"}, []int{2, 3},
		map[string][]string{"chain": {"0", "1"}, "draw": {"0", "1", "2"}},
		[]float64{0.1, -2.5e-310, math.MaxFloat64, math.NaN(), math.Inf(1), math.Copysign(0, -1)},
	)
	require.NoError(t, err)
	llik, err := idata.NewVariable(
		[]string{"chain", "draw", "observation"}, []int{1, 2, 3},
		map[string][]string{"observation": {"a", "b", "c"}},
		[]float64{-1, -2, -3, -4, math.Inf(-1), -6},
	)
	require.NoError(t, err)
	llik.Aux = map[string]idata.AuxCoord{"fold": {Dim: "observation", Values: []int{0, 1, 0}}}
	n, err := idata.NewVariable([]string{}, []int{}, nil, []float64{3})
	require.NoError(t, err)

	return &idata.InferenceData{
		Groups: map[string]*idata.Group{
			idata.GroupPosterior:     {Variables: map[string]*idata.Variable{"mu": mu}},
			idata.GroupLogLikelihood: {Variables: map[string]*idata.Variable{"llik_kfold": llik}},
			idata.GroupObservedData:  {Variables: map[string]*idata.Variable{"N": n}},
		},
		Attrs: map[string]string{"inference": "interaction", "fitting_modes": "posterior,kfold"},
	}
}

func TestRoundTripBothFormats(t *testing.T) {
	for _, format := range idata.Formats() {
		t.Run(string(format), func(t *testing.T) {
			store := New()
			original := sampleData(t)
			dir := t.TempDir()

			path, err := store.Save(dir, original, format)
			require.NoError(t, err)

			loaded, err := store.Load(path)
			require.NoError(t, err)
			assert.Equal(t, original.GroupNames(), loaded.GroupNames())
			assert.True(t, original.Equal(loaded), "round trip changed the data")

			mu, err := loaded.Variable(idata.GroupPosterior, "mu")
			require.NoError(t, err)
			assert.True(t, math.IsNaN(mu.Values[3]))
			assert.True(t, math.Signbit(mu.Values[5]))
			assert.Equal(t, -2.5e-310, mu.Values[1])
		})
	}
}

func TestFormatsAreEquivalent(t *testing.T) {
	store := New()
	original := sampleData(t)
	jsonPath, err := store.Save(t.TempDir(), original, idata.FormatJSON)
	require.NoError(t, err)
	dirPath, err := store.Save(t.TempDir(), original, idata.FormatDirectory)
	require.NoError(t, err)

	fromJSON, err := store.Load(jsonPath)
	require.NoError(t, err)
	fromDir, err := store.Load(dirPath)
	require.NoError(t, err)
	assert.True(t, fromJSON.Equal(fromDir))
}

func TestSaveLayout(t *testing.T) {
	store := New()
	dir := t.TempDir()

	path, err := store.Save(dir, sampleData(t), idata.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "idata.json"), path)

	path, err = store.Save(dir, sampleData(t), idata.FormatDirectory)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "idata"), path)
	for _, name := range []string{"attrs", "posterior", "log_likelihood", "observed_data"} {
		assert.FileExists(t, filepath.Join(path, name+".cbor.zst"))
	}
}

func TestSavedResultsAreWorldReadable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	store := New()
	dir := t.TempDir()

	path, err := store.Save(dir, sampleData(t), idata.FormatJSON)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	path, err = store.Save(dir, sampleData(t), idata.FormatDirectory)
	require.NoError(t, err)
	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	info, err = os.Stat(filepath.Join(path, "posterior.cbor.zst"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestDirectorySaveReplacesStaleGroups(t *testing.T) {
	store := New()
	dir := t.TempDir()
	_, err := store.Save(dir, sampleData(t), idata.FormatDirectory)
	require.NoError(t, err)

	smaller := sampleData(t)
	delete(smaller.Groups, idata.GroupLogLikelihood)
	path, err := store.Save(dir, smaller, idata.FormatDirectory)
	require.NoError(t, err)

	loaded, err := store.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"observed_data", "posterior"}, loaded.GroupNames())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "staging directories must be cleaned up")
}

func TestSaveAndLoadErrors(t *testing.T) {
	store := New()
	_, err := store.Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.True(t, errors.IsNotFound(err))

	_, err = store.Save(t.TempDir(), sampleData(t), idata.Format("zarr"))
	assert.Error(t, err)

	bad := sampleData(t)
	bad.Groups["attrs"] = &idata.Group{Variables: map[string]*idata.Variable{}}
	_, err = store.Save(t.TempDir(), bad, idata.FormatDirectory)
	assert.Error(t, err)

	garbage := filepath.Join(t.TempDir(), "idata.json")
	require.NoError(t, os.WriteFile(garbage, []byte(`{"groups":{"posterior":{"mu":{"dims":["chain"],"shape":[2],"values":[1]}}}}`), 0o644))
	_, err = store.Load(garbage)
	assert.Error(t, err)
}

func TestJSONFloatEncoding(t *testing.T) {
	for _, tc := range []struct {
		in   float64
		want string
	}{
		{math.NaN(), `"NaN"`},
		{math.Inf(1), `"Infinity"`},
		{math.Inf(-1), `"-Infinity"`},
		{0.1, `0.1`},
		{1e21, `1e+21`},
	} {
		raw, err := jsonFloat(tc.in).MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, tc.want, string(raw))
	}
	var f jsonFloat
	assert.Error(t, f.UnmarshalJSON([]byte(`"nan"`)))
}

func TestParseFormat(t *testing.T) {
	f, err := idata.ParseFormat(" Directory ")
	require.NoError(t, err)
	assert.Equal(t, idata.FormatDirectory, f)
	_, err = idata.ParseFormat("zarr")
	assert.Error(t, err)
}
