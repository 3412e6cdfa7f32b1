package example

import (
	"log/slog"
	"math/rand/v2"
	"path/filepath"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/teddygroves/bibat/adapters/excel"
	"github.com/teddygroves/bibat/domain/dataset"
	"github.com/teddygroves/bibat/internal/errors"
)

// RawMeasurementsFile is the raw data file name under data/raw.
const RawMeasurementsFile = "raw_measurements.csv"

// FakeDataSeed seeds the simulated y values of fake_interaction.
const FakeDataSeed uint64 = 1234

// Parameters used to simulate fake_interaction.
var (
	TrueIntercept = 1.0
	TrueEffects   = []float64{0.6, -0.3, 0.2}
	TrueSigma     = 0.3
)

// PrepareFunc turns processed measurements into one prepared dataset.
type PrepareFunc func(*Measurements) (*dataset.PreparedData, error)

func prepared(name string, covariates []string, m *Measurements) (*dataset.PreparedData, error) {
	table, err := m.Table()
	if err != nil {
		return nil, err
	}
	data := &dataset.PreparedData{
		Name: name,
		Coords: dataset.CoordDict{
			"covariate":            covariates,
			dataset.ObservationDim: append([]string(nil), m.Observations...),
		},
		Measurements: table,
	}
	if err := data.Validate(&MeasurementsSchema); err != nil {
		return nil, err
	}
	return data, nil
}

// PrepareInteraction keeps the measurements with all three covariates.
func PrepareInteraction(m *Measurements) (*dataset.PreparedData, error) {
	return prepared("interaction", []string{ColX1, ColX2, ColInteraction}, m)
}

// PrepareNoInteraction labels only the two main-effect covariates.
func PrepareNoInteraction(m *Measurements) (*dataset.PreparedData, error) {
	return prepared("no_interaction", []string{ColX1, ColX2}, m)
}

// PrepareFakeInteraction replaces y with draws from the interaction model
// at known parameter values: y ~ Normal(a + x * b, sigma).
func PrepareFakeInteraction(m *Measurements) (*dataset.PreparedData, error) {
	fake := *m
	fake.Y = make([]float64, m.Len())
	noise := distuv.Normal{Mu: 0, Sigma: TrueSigma, Src: rand.NewPCG(FakeDataSeed, FakeDataSeed)}
	interaction := m.Interaction()
	for i := range fake.Y {
		yhat := TrueIntercept + m.X1[i]*TrueEffects[0] + m.X2[i]*TrueEffects[1] + interaction[i]*TrueEffects[2]
		fake.Y[i] = yhat + noise.Rand()
	}
	return prepared("fake_interaction", []string{ColX1, ColX2, ColInteraction}, &fake)
}

// PrepareFuncs are run by PrepareData in this order.
func PrepareFuncs() []PrepareFunc {
	return []PrepareFunc{PrepareInteraction, PrepareNoInteraction, PrepareFakeInteraction}
}

// PrepareData reads the raw measurements, runs every prepare function and
// writes each result to preparedDir/<name>.json.
func PrepareData(rawFile, preparedDir string, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Step 1: Read raw data
	logger.Info("reading raw data", "file", rawFile)
	raw, err := excel.NewDataReader(rawFile).WithLogger(logger).ReadData()
	if err != nil {
		return nil, err
	}
	measurements, err := ProcessMeasurements(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "processing %s", filepath.Base(rawFile))
	}

	// Step 2: Prepare and write each dataset
	var paths []string
	for _, prepare := range PrepareFuncs() {
		data, err := prepare(measurements)
		if err != nil {
			return nil, err
		}
		path, err := dataset.WriteJSON(preparedDir, data)
		if err != nil {
			return nil, err
		}
		logger.Info("wrote prepared data", "name", data.Name, "file", path, "observations", measurements.Len())
		paths = append(paths, path)
	}
	return paths, nil
}
