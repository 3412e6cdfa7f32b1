package cmdstan

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/teddygroves/bibat/domain/stan"
	"github.com/teddygroves/bibat/internal/errors"
)

// stanFloat writes non-finite values the way CmdStan's JSON reader
// expects them.
type stanFloat float64

func (f stanFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-inf"`), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func toStanJSON(value any) (any, error) {
	switch v := value.(type) {
	case int, int64, []int, []int64, [][]int:
		return v, nil
	case float64:
		return stanFloat(v), nil
	case []float64:
		out := make([]stanFloat, len(v))
		for i, x := range v {
			out[i] = stanFloat(x)
		}
		return out, nil
	case [][]float64:
		out := make([][]stanFloat, len(v))
		for i, row := range v {
			out[i] = make([]stanFloat, len(row))
			for j, x := range row {
				out[i][j] = stanFloat(x)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported stan input value of type %T", value)
}

// EncodeInput writes input as Stan JSON.
func EncodeInput(w io.Writer, input stan.Input) error {
	out := make(map[string]any, len(input))
	for _, k := range input.Keys() {
		v, err := toStanJSON(input[k])
		if err != nil {
			return errors.InvalidInput(fmt.Sprintf("%s: %v", k, err))
		}
		out[k] = v
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	return enc.Encode(out)
}

// WriteInputFile writes input as Stan JSON to path.
func WriteInputFile(path string, input stan.Input) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.StorageError("writing stan input", err)
	}
	if err := EncodeInput(f, input); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
