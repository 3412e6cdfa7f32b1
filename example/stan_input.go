package example

import (
	"github.com/teddygroves/bibat/domain/dataset"
	"github.com/teddygroves/bibat/domain/stan"
)

// Names of the bundled Stan input functions, as written in config.toml.
const (
	InputInteraction   = "get_stan_input_interaction"
	InputNoInteraction = "get_stan_input_no_interaction"
)

// stanInput builds the regression's input: every observation is used for
// both training and testing unless the caller overrides ix_train/ix_test.
func stanInput(data *dataset.PreparedData, xCols []string) (stan.Input, error) {
	t := data.Measurements
	n := t.Len()
	cols := make([][]float64, len(xCols))
	for j, name := range xCols {
		values, err := t.Floats(name)
		if err != nil {
			return nil, err
		}
		cols[j] = values
	}
	y, err := t.Floats(ColY)
	if err != nil {
		return nil, err
	}
	x := make([][]float64, n)
	ix := make([]int, n)
	for i := 0; i < n; i++ {
		x[i] = make([]float64, len(xCols))
		for j := range xCols {
			x[i][j] = cols[j][i]
		}
		ix[i] = i + 1
	}
	return stan.Input{
		"N":        n,
		"N_train":  n,
		"N_test":   n,
		"K":        len(xCols),
		"x":        x,
		"y":        y,
		"ix_train": ix,
		"ix_test":  append([]int(nil), ix...),
	}, nil
}

// GetStanInputInteraction uses x1, x2 and their interaction.
func GetStanInputInteraction(data *dataset.PreparedData) (stan.Input, error) {
	return stanInput(data, []string{ColX1, ColX2, ColInteraction})
}

// GetStanInputNoInteraction uses x1 and x2 only.
func GetStanInputNoInteraction(data *dataset.PreparedData) (stan.Input, error) {
	return stanInput(data, []string{ColX1, ColX2})
}

// Functions is the input function registry of the bundled analysis.
func Functions() *stan.Functions {
	return stan.NewFunctions(map[string]stan.InputFunction{
		InputInteraction:   GetStanInputInteraction,
		InputNoInteraction: GetStanInputNoInteraction,
	})
}

// Loader reads prepared data and checks it against MeasurementsSchema.
func Loader() dataset.Loader {
	return dataset.NewJSONLoader(MeasurementsSchema)
}
