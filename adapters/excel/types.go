package excel

// RawRow maps header to trimmed cell text. Cells missing from a short row
// are empty strings.
type RawRow map[string]string

// RawData is a spreadsheet read as text: the header row plus every data row
// in file order.
type RawData struct {
	Headers []string
	Rows    []RawRow
}

// Column returns the cells of header in row order.
func (d *RawData) Column(header string) ([]string, bool) {
	found := false
	for _, h := range d.Headers {
		if h == header {
			found = true
			break
		}
	}
	if !found {
		return nil, false
	}
	out := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row[header]
	}
	return out, true
}
