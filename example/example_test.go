package example

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teddygroves/bibat/adapters/excel"
	"github.com/teddygroves/bibat/domain/dataset"
	"github.com/teddygroves/bibat/internal/errors"
)

const rawCSV = `X1,x2,yButIThoughtIdAddSomeLetters,site
0.5,1.0,2.1,north
1.5,-1.0,,south
2.0,0.5,3.3,south
-1.0,2.0,0.4,north
`

func writeRaw(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), RawMeasurementsFile)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func readRaw(t *testing.T, body string) *excel.RawData {
	t.Helper()
	raw, err := excel.NewDataReader(writeRaw(t, body)).ReadData()
	require.NoError(t, err)
	return raw
}

func TestProcessMeasurements(t *testing.T) {
	m, err := ProcessMeasurements(readRaw(t, rawCSV))
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "2", "3"}, m.Observations)
	assert.Equal(t, []float64{0.5, 2.0, -1.0}, m.X1)
	assert.Equal(t, []float64{2.1, 3.3, 0.4}, m.Y)
	assert.Equal(t, []float64{0.5, 1.0, -2.0}, m.Interaction())
	assert.Equal(t, []string{"site"}, m.ExtraNames)
	assert.Equal(t, []string{"south"}, m.Extra[1])
}

func TestProcessMeasurementsReportsEveryProblem(t *testing.T) {
	_, err := ProcessMeasurements(readRaw(t, "x1,y\n1,2\n"))
	require.Error(t, err)
	assert.True(t, errors.IsDataIntegrity(err))
	assert.Contains(t, err.Error(), `missing column "x2"`)

	_, err = ProcessMeasurements(readRaw(t, "x1,x2,y\nabc,1,2\n1,inf,3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 violation(s)")
	assert.Contains(t, err.Error(), `row 0 column "x1"`)
	assert.Contains(t, err.Error(), `row 1 column "x2"`)
}

func TestPrepareFunctions(t *testing.T) {
	m, err := ProcessMeasurements(readRaw(t, rawCSV))
	require.NoError(t, err)

	interaction, err := PrepareInteraction(m)
	require.NoError(t, err)
	assert.Equal(t, "interaction", interaction.Name)
	assert.Equal(t, []string{"x1", "x2", "x1:x2"}, interaction.Coords["covariate"])
	assert.Equal(t, []string{"0", "2", "3"}, interaction.Coords[dataset.ObservationDim])

	none, err := PrepareNoInteraction(m)
	require.NoError(t, err)
	assert.Equal(t, []string{"x1", "x2"}, none.Coords["covariate"])

	fake, err := PrepareFakeInteraction(m)
	require.NoError(t, err)
	again, err := PrepareFakeInteraction(m)
	require.NoError(t, err)
	fakeY, err := fake.Measurements.Floats(ColY)
	require.NoError(t, err)
	againY, err := again.Measurements.Floats(ColY)
	require.NoError(t, err)
	assert.Equal(t, fakeY, againY, "fake data is seeded")
	assert.NotEqual(t, m.Y, fakeY)
	assert.Equal(t, []float64{2.1, 3.3, 0.4}, m.Y, "fake data must not modify its input")
}

func TestPrepareDataWritesLoadableFiles(t *testing.T) {
	preparedDir := filepath.Join(t.TempDir(), "prepared")
	paths, err := PrepareData(writeRaw(t, rawCSV), preparedDir, nil)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(preparedDir, "interaction.json"), paths[0])

	data, err := Loader()(paths[0])
	require.NoError(t, err)
	assert.Equal(t, 3, data.Measurements.Len())
}

func TestStanInputFunctions(t *testing.T) {
	m, err := ProcessMeasurements(readRaw(t, rawCSV))
	require.NoError(t, err)
	data, err := PrepareInteraction(m)
	require.NoError(t, err)

	fn, err := Functions().Lookup(InputInteraction)
	require.NoError(t, err)
	input, err := fn(data)
	require.NoError(t, err)
	require.NoError(t, input.Validate())
	assert.Equal(t, 3, input["N"])
	assert.Equal(t, 3, input["K"])
	assert.Equal(t, []float64{0.5, 1.0, 0.5}, input["x"].([][]float64)[0])
	assert.Equal(t, []int{1, 2, 3}, input["ix_train"])

	input, err = GetStanInputNoInteraction(data)
	require.NoError(t, err)
	assert.Equal(t, 2, input["K"])
	assert.Len(t, input["x"].([][]float64)[2], 2)

	_, err = Functions().Lookup("get_stan_input_typo")
	assert.True(t, errors.IsUnknownAdapter(err))
}
