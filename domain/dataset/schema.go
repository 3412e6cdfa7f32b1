package dataset

import (
	"fmt"

	"github.com/teddygroves/bibat/internal/errors"
)

// ColumnSpec declares one required column. Min and Max bound numeric
// columns. Coerce allows widening a stored column to Type (int to float,
// anything to string) instead of reporting a type violation.
type ColumnSpec struct {
	Name   string
	Type   ColumnType
	Min    *float64
	Max    *float64
	Coerce bool
}

// Schema is the declared shape of a measurements table. Columns not
// named in the schema are allowed.
type Schema struct {
	Name    string
	Columns []ColumnSpec
}

// Bound is a helper for ColumnSpec.Min and ColumnSpec.Max literals.
func Bound(v float64) *float64 { return &v }

// Validate checks t against the schema and returns the table with coerced
// columns applied. Every violation is collected into one DATA_INTEGRITY
// error rather than failing on the first.
func (s Schema) Validate(t *Table) (*Table, error) {
	if t == nil {
		return nil, errors.DataIntegrity(s.label(), []string{"measurements table is missing"})
	}
	out, violations := s.check(t)
	if len(violations) > 0 {
		return nil, errors.DataIntegrity(s.label(), violations)
	}
	return out, nil
}

// check returns a coerced copy of t and every violation found.
func (s Schema) check(t *Table) (*Table, []string) {
	out := t.clone()
	var violations []string
	for _, spec := range s.Columns {
		i, ok := out.index[spec.Name]
		if !ok {
			violations = append(violations, fmt.Sprintf("missing column %q", spec.Name))
			continue
		}
		if got := out.columns[i].Type; got != spec.Type {
			if !spec.Coerce {
				violations = append(violations, fmt.Sprintf("column %q has type %s, want %s", spec.Name, got, spec.Type))
				continue
			}
			if err := out.retype(i, spec.Type); err != nil {
				violations = append(violations, fmt.Sprintf("column %q: %v", spec.Name, err))
				continue
			}
		}
		violations = append(violations, checkBounds(out, i, spec)...)
	}
	return out, violations
}

func (s Schema) label() string {
	if s.Name == "" {
		return "measurements"
	}
	return s.Name
}

func checkBounds(t *Table, i int, spec ColumnSpec) []string {
	if spec.Min == nil && spec.Max == nil {
		return nil
	}
	if spec.Type == ColumnString {
		return []string{fmt.Sprintf("column %q: bounds declared on a string column", spec.Name)}
	}
	var violations []string
	below, above := 0, 0
	firstBelow, firstAbove := -1, -1
	for r, row := range t.rows {
		var v float64
		switch x := row[i].(type) {
		case int:
			v = float64(x)
		case float64:
			v = x
		}
		if spec.Min != nil && v < *spec.Min {
			if below == 0 {
				firstBelow = r
			}
			below++
		}
		if spec.Max != nil && v > *spec.Max {
			if above == 0 {
				firstAbove = r
			}
			above++
		}
	}
	if below > 0 {
		violations = append(violations, fmt.Sprintf("column %q: %d value(s) below minimum %v (first at row %d)", spec.Name, below, *spec.Min, firstBelow))
	}
	if above > 0 {
		violations = append(violations, fmt.Sprintf("column %q: %d value(s) above maximum %v (first at row %d)", spec.Name, above, *spec.Max, firstAbove))
	}
	return violations
}

func (t *Table) clone() *Table {
	out := &Table{
		columns: t.Columns(),
		index:   make(map[string]int, len(t.index)),
		rows:    make([][]any, len(t.rows)),
	}
	for k, v := range t.index {
		out.index[k] = v
	}
	for r := range t.rows {
		out.rows[r] = t.Row(r)
	}
	return out
}
