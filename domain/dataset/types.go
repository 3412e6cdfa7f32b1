package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/teddygroves/bibat/internal/errors"
)

// ColumnType is the declared type of a measurements column.
type ColumnType string

const (
	ColumnString ColumnType = "string"
	ColumnInt    ColumnType = "int"
	ColumnFloat  ColumnType = "float"
)

// ParseColumnType parses a column type name.
func ParseColumnType(s string) (ColumnType, error) {
	switch ColumnType(s) {
	case ColumnString, ColumnInt, ColumnFloat:
		return ColumnType(s), nil
	default:
		return "", fmt.Errorf("unknown column type %q", s)
	}
}

// Column names and types one table column.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Table is a row-oriented table with named, typed columns. Cells hold
// string, int or float64 values according to their column type.
type Table struct {
	columns []Column
	index   map[string]int
	rows    [][]any
}

// NewTable creates an empty table. Column names must be unique.
func NewTable(columns ...Column) (*Table, error) {
	t := &Table{
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		if c.Name == "" {
			return nil, errors.InvalidInput("column name cannot be empty")
		}
		if _, err := ParseColumnType(string(c.Type)); err != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("column %q: %v", c.Name, err))
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, errors.InvalidInput(fmt.Sprintf("duplicate column %q", c.Name))
		}
		t.index[c.Name] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// MustNewTable is NewTable for statically known columns.
func MustNewTable(columns ...Column) *Table {
	t, err := NewTable(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// Columns returns a copy of the column declarations.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// Column looks up a column declaration by name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []any {
	out := make([]any, len(t.rows[i]))
	copy(out, t.rows[i])
	return out
}

// AppendRow appends one row, checking each value against its column type.
// Integers are accepted in float columns.
func (t *Table) AppendRow(values ...any) error {
	if len(values) != len(t.columns) {
		return errors.InvalidInput(fmt.Sprintf("row has %d values, table has %d columns", len(values), len(t.columns)))
	}
	row := make([]any, len(values))
	for i, v := range values {
		cell, err := convertCell(t.columns[i].Type, v)
		if err != nil {
			return errors.InvalidInput(fmt.Sprintf("column %q: %v", t.columns[i].Name, err))
		}
		row[i] = cell
	}
	t.rows = append(t.rows, row)
	return nil
}

func convertCell(typ ColumnType, v any) (any, error) {
	switch typ {
	case ColumnString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case ColumnInt:
		switch x := v.(type) {
		case int:
			return x, nil
		case int64:
			return int(x), nil
		case int32:
			return int(x), nil
		}
	case ColumnFloat:
		var f float64
		switch x := v.(type) {
		case float64:
			f = x
		case float32:
			f = float64(x)
		case int:
			f = float64(x)
		case int64:
			f = float64(x)
		default:
			return nil, fmt.Errorf("value %v (%T) is not a float", v, v)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("non-finite value %v", f)
		}
		return f, nil
	}
	return nil, fmt.Errorf("value %v (%T) is not a %s", v, v, typ)
}

// Floats returns a numeric column as float64 values.
func (t *Table) Floats(name string) ([]float64, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("column %q", name))
	}
	out := make([]float64, len(t.rows))
	switch t.columns[i].Type {
	case ColumnFloat:
		for r, row := range t.rows {
			out[r] = row[i].(float64)
		}
	case ColumnInt:
		for r, row := range t.rows {
			out[r] = float64(row[i].(int))
		}
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("column %q has type %s, not numeric", name, t.columns[i].Type))
	}
	return out, nil
}

// Ints returns an int column.
func (t *Table) Ints(name string) ([]int, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("column %q", name))
	}
	if t.columns[i].Type != ColumnInt {
		return nil, errors.InvalidInput(fmt.Sprintf("column %q has type %s, not int", name, t.columns[i].Type))
	}
	out := make([]int, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i].(int)
	}
	return out, nil
}

// Strings returns a string column.
func (t *Table) Strings(name string) ([]string, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("column %q", name))
	}
	if t.columns[i].Type != ColumnString {
		return nil, errors.InvalidInput(fmt.Sprintf("column %q has type %s, not string", name, t.columns[i].Type))
	}
	out := make([]string, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i].(string)
	}
	return out, nil
}

// retype converts column i to typ in place. Only widening conversions
// (int to float, anything to string) are supported.
func (t *Table) retype(i int, typ ColumnType) error {
	from := t.columns[i].Type
	if from == typ {
		return nil
	}
	for _, row := range t.rows {
		switch {
		case typ == ColumnFloat && from == ColumnInt:
			row[i] = float64(row[i].(int))
		case typ == ColumnString:
			row[i] = fmt.Sprint(row[i])
		default:
			return fmt.Errorf("cannot coerce %s to %s", from, typ)
		}
	}
	t.columns[i].Type = typ
	return nil
}

type tableJSON struct {
	Columns []Column `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// MarshalJSON encodes the table as {"columns": [...], "rows": [[...], ...]}.
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := t.rows
	if rows == nil {
		rows = [][]any{}
	}
	return json.Marshal(tableJSON{Columns: t.columns, Rows: rows})
}

// UnmarshalJSON decodes a table, converting every cell to its declared
// column type. All cell violations are reported in one DATA_INTEGRITY error.
func (t *Table) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw tableJSON
	if err := dec.Decode(&raw); err != nil {
		return errors.Wrap(err, "decoding measurements table")
	}
	decoded, err := NewTable(raw.Columns...)
	if err != nil {
		return errors.DataIntegrity("measurements table", []string{err.Error()})
	}

	var violations []string
	for r, cells := range raw.Rows {
		if len(cells) != len(raw.Columns) {
			violations = append(violations, fmt.Sprintf("row %d has %d cells, want %d", r, len(cells), len(raw.Columns)))
			continue
		}
		row := make([]any, len(cells))
		for c, cell := range cells {
			v, err := decodeCell(raw.Columns[c].Type, cell)
			if err != nil {
				violations = append(violations, fmt.Sprintf("row %d column %q: %v", r, raw.Columns[c].Name, err))
				continue
			}
			row[c] = v
		}
		decoded.rows = append(decoded.rows, row)
	}
	if len(violations) > 0 {
		return errors.DataIntegrity("measurements table", violations)
	}
	*t = *decoded
	return nil
}

func decodeCell(typ ColumnType, cell any) (any, error) {
	switch typ {
	case ColumnString:
		if s, ok := cell.(string); ok {
			return s, nil
		}
	case ColumnInt:
		if n, ok := cell.(json.Number); ok {
			i, err := n.Int64()
			if err != nil {
				return nil, fmt.Errorf("%s is not an integer", n)
			}
			return int(i), nil
		}
	case ColumnFloat:
		if n, ok := cell.(json.Number); ok {
			f, err := n.Float64()
			if err != nil {
				return nil, fmt.Errorf("%s is not a float", n)
			}
			return f, nil
		}
	}
	return nil, fmt.Errorf("value %v is not a %s", cell, typ)
}
