package idatastore

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/teddygroves/bibat/domain/idata"
	"github.com/teddygroves/bibat/internal/errors"
)

// jsonFloat encodes non-finite values as the strings "NaN", "Infinity"
// and "-Infinity".
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func (f *jsonFloat) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"NaN"`:
		*f = jsonFloat(math.NaN())
		return nil
	case `"Infinity"`:
		*f = jsonFloat(math.Inf(1))
		return nil
	case `"-Infinity"`:
		*f = jsonFloat(math.Inf(-1))
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid number %s", data)
	}
	*f = jsonFloat(v)
	return nil
}

type jsonVariable struct {
	Dims   []string                  `json:"dims"`
	Shape  []int                     `json:"shape"`
	Coords map[string][]string       `json:"coords,omitempty"`
	Aux    map[string]idata.AuxCoord `json:"aux,omitempty"`
	Values []jsonFloat               `json:"values"`
}

type jsonDocument struct {
	Groups map[string]map[string]jsonVariable `json:"groups"`
	Attrs  map[string]string                  `json:"attrs,omitempty"`
}

func writeJSON(path string, data *idata.InferenceData) error {
	doc := jsonDocument{Groups: map[string]map[string]jsonVariable{}, Attrs: data.Attrs}
	for name, g := range data.Groups {
		vars := make(map[string]jsonVariable, len(g.Variables))
		for vname, v := range g.Variables {
			values := make([]jsonFloat, len(v.Values))
			for i, x := range v.Values {
				values[i] = jsonFloat(x)
			}
			vars[vname] = jsonVariable{Dims: v.Dims, Shape: v.Shape, Coords: v.Coords, Aux: v.Aux, Values: values}
		}
		doc.Groups[name] = vars
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encoding inference data as JSON")
	}
	return writeAtomic(path, raw)
}

func readJSON(path string) (*idata.InferenceData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.StorageError(fmt.Sprintf("reading %s", path), err)
	}
	var doc jsonDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.StorageError(fmt.Sprintf("decoding %s", path), err)
	}
	data := &idata.InferenceData{Groups: map[string]*idata.Group{}, Attrs: doc.Attrs}
	if data.Attrs == nil {
		data.Attrs = map[string]string{}
	}
	for name, vars := range doc.Groups {
		g := &idata.Group{Variables: make(map[string]*idata.Variable, len(vars))}
		for vname, jv := range vars {
			values := make([]float64, len(jv.Values))
			for i, x := range jv.Values {
				values[i] = float64(x)
			}
			v := &idata.Variable{Dims: jv.Dims, Shape: jv.Shape, Coords: jv.Coords, Aux: jv.Aux, Values: values}
			if err := v.Validate(); err != nil {
				return nil, errors.Wrapf(err, "%s: %s/%s", path, name, vname)
			}
			g.Variables[vname] = v
		}
		data.Groups[name] = g
	}
	return data, nil
}
