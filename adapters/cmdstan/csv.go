package cmdstan

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadCSV parses a Stan CSV file: comment lines start with '#', the first
// other line is the header, every remaining line is one draw.
func ReadCSV(r io.Reader) ([]string, [][]float64, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("stan csv has no header")
		}
		return nil, nil, fmt.Errorf("reading stan csv header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	var rows [][]float64
	for {
		record, err := reader.Read()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading stan csv: %w", err)
		}
		row := make([]float64, len(record))
		for j, cell := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				line, _ := reader.FieldPos(j)
				return nil, nil, fmt.Errorf("stan csv line %d column %q: %w", line, columns[j], err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return columns, rows, nil
}

// ReadCSVFile parses the Stan CSV file at path.
func ReadCSVFile(path string) ([]string, [][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}
