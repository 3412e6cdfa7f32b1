package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/teddygroves/bibat/internal/errors"
)

// PreparedData is an analysis-ready measurements table plus the
// coordinates that label it.
type PreparedData struct {
	Name         string    `json:"name"`
	Coords       CoordDict `json:"coords"`
	Measurements *Table    `json:"measurements"`
}

// Validate checks the container invariants and, when schema is not nil,
// the measurements schema. Coerced columns replace the stored table.
func (p *PreparedData) Validate(schema *Schema) error {
	var violations []string
	if p.Name == "" {
		violations = append(violations, "name is empty")
	}
	if p.Measurements == nil {
		violations = append(violations, "measurements table is missing")
	} else {
		if obs, ok := p.Coords[ObservationDim]; ok && len(obs) != p.Measurements.Len() {
			violations = append(violations, fmt.Sprintf("coordinate %q has %d labels but measurements has %d rows",
				ObservationDim, len(obs), p.Measurements.Len()))
		}
		if schema != nil {
			validated, schemaViolations := schema.check(p.Measurements)
			if len(schemaViolations) > 0 {
				violations = append(violations, schemaViolations...)
			} else {
				p.Measurements = validated
			}
		}
	}
	if len(violations) > 0 {
		return errors.DataIntegrity(fmt.Sprintf("prepared data %q", p.Name), violations)
	}
	return nil
}

// Loader reads one prepared data file.
type Loader func(path string) (*PreparedData, error)

// NewJSONLoader returns a Loader that validates against schema at load time.
func NewJSONLoader(schema Schema) Loader {
	return func(path string) (*PreparedData, error) {
		data, err := ReadJSON(path)
		if err != nil {
			return nil, err
		}
		if err := data.Validate(&schema); err != nil {
			return nil, errors.Wrapf(err, "loading %s", path)
		}
		return data, nil
	}
}

// ReadJSON reads a prepared data file without a measurements schema.
func ReadJSON(path string) (*PreparedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(fmt.Sprintf("prepared data file %s", path))
		}
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	var data PreparedData
	if err := json.Unmarshal(raw, &data); err != nil {
		if errors.IsDataIntegrity(err) {
			return nil, errors.Wrapf(err, "loading %s", path)
		}
		return nil, errors.DataIntegrity(path, []string{err.Error()})
	}
	if err := data.Validate(nil); err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	return &data, nil
}

// WriteJSON writes data to <dir>/<name>.json, creating dir if needed.
func WriteJSON(dir string, data *PreparedData) (string, error) {
	if err := data.Validate(nil); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating %s", dir)
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return "", errors.Wrapf(err, "encoding prepared data %q", data.Name)
	}
	path := filepath.Join(dir, data.Name+".json")
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return "", errors.Wrapf(err, "writing %s", path)
	}
	return path, nil
}
