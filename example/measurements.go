// Package example is the analysis a freshly scaffolded project ships with:
// a linear regression of y on x1, x2 and optionally their interaction. It
// provides the data preparation step, the measurements schema and the
// Stan input functions the bundled inference jobs refer to.
package example

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/teddygroves/bibat/adapters/excel"
	"github.com/teddygroves/bibat/domain/dataset"
	"github.com/teddygroves/bibat/internal/errors"
)

// Column names of processed measurements.
const (
	ColX1          = "x1"
	ColX2          = "x2"
	ColInteraction = "x1:x2"
	ColY           = "y"
)

// renamedColumns maps raw headers to processed names before lower-casing.
var renamedColumns = map[string]string{"yButIThoughtIdAddSomeLetters": ColY}

// MeasurementsSchema is the shape every prepared dataset's measurements
// must have. Other columns are allowed.
var MeasurementsSchema = dataset.Schema{
	Name: "measurements",
	Columns: []dataset.ColumnSpec{
		{Name: ColX1, Type: dataset.ColumnFloat, Coerce: true},
		{Name: ColX2, Type: dataset.ColumnFloat, Coerce: true},
		{Name: ColInteraction, Type: dataset.ColumnFloat, Coerce: true},
		{Name: ColY, Type: dataset.ColumnFloat, Coerce: true},
	},
}

// Measurements are processed raw measurements. Observations holds the
// zero-based raw row index of each kept row.
type Measurements struct {
	Observations []string
	X1           []float64
	X2           []float64
	Y            []float64
	// Extra holds columns the analysis does not use, as text.
	ExtraNames []string
	Extra      [][]string
}

// Len is the number of observations.
func (m *Measurements) Len() int { return len(m.Observations) }

// Interaction is x1 * x2 for every observation.
func (m *Measurements) Interaction() []float64 {
	out := make([]float64, m.Len())
	for i := range out {
		out[i] = m.X1[i] * m.X2[i]
	}
	return out
}

// Table renders the measurements with the interaction column appended.
func (m *Measurements) Table() (*dataset.Table, error) {
	columns := []dataset.Column{
		{Name: ColX1, Type: dataset.ColumnFloat},
		{Name: ColX2, Type: dataset.ColumnFloat},
		{Name: ColY, Type: dataset.ColumnFloat},
	}
	for _, name := range m.ExtraNames {
		columns = append(columns, dataset.Column{Name: name, Type: dataset.ColumnString})
	}
	columns = append(columns, dataset.Column{Name: ColInteraction, Type: dataset.ColumnFloat})
	table, err := dataset.NewTable(columns...)
	if err != nil {
		return nil, err
	}
	interaction := m.Interaction()
	for i := 0; i < m.Len(); i++ {
		row := []any{m.X1[i], m.X2[i], m.Y[i]}
		for j := range m.ExtraNames {
			row = append(row, m.Extra[i][j])
		}
		row = append(row, interaction[i])
		if err := table.AppendRow(row...); err != nil {
			return nil, errors.Wrapf(err, "observation %s", m.Observations[i])
		}
	}
	return table, nil
}

// ProcessMeasurements renames and lower-cases headers, drops rows with no
// y value, parses the numeric columns and records each kept row's raw
// index as its observation label. Every parse failure is reported.
func ProcessMeasurements(raw *excel.RawData) (*Measurements, error) {
	headers := make([]string, len(raw.Headers))
	for i, h := range raw.Headers {
		if renamed, ok := renamedColumns[h]; ok {
			h = renamed
		}
		headers[i] = strings.ToLower(h)
	}

	var violations []string
	source := make(map[string]string, len(headers))
	for i, h := range headers {
		if prev, dup := source[h]; dup {
			violations = append(violations, fmt.Sprintf("columns %q and %q both become %q", prev, raw.Headers[i], h))
		}
		source[h] = raw.Headers[i]
	}
	for _, required := range []string{ColX1, ColX2, ColY} {
		if _, ok := source[required]; !ok {
			violations = append(violations, fmt.Sprintf("missing column %q", required))
		}
	}
	if len(violations) > 0 {
		return nil, errors.DataIntegrity("raw measurements", violations)
	}

	m := &Measurements{}
	for _, h := range headers {
		if h != ColX1 && h != ColX2 && h != ColY && h != ColInteraction {
			m.ExtraNames = append(m.ExtraNames, h)
		}
	}
	for i, row := range raw.Rows {
		yText := row[source[ColY]]
		if isMissing(yText) {
			continue
		}
		values := make(map[string]float64, 3)
		for _, col := range []string{ColX1, ColX2, ColY} {
			v, err := strconv.ParseFloat(row[source[col]], 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				violations = append(violations, fmt.Sprintf("row %d column %q: %q is not a finite number", i, col, row[source[col]]))
				continue
			}
			values[col] = v
		}
		m.Observations = append(m.Observations, strconv.Itoa(i))
		m.X1 = append(m.X1, values[ColX1])
		m.X2 = append(m.X2, values[ColX2])
		m.Y = append(m.Y, values[ColY])
		extra := make([]string, len(m.ExtraNames))
		for j, name := range m.ExtraNames {
			extra[j] = row[source[name]]
		}
		m.Extra = append(m.Extra, extra)
	}
	if len(violations) > 0 {
		return nil, errors.DataIntegrity("raw measurements", violations)
	}
	return m, nil
}

func isMissing(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "na", "nan", "null", "none":
		return true
	}
	return false
}
