package stan

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// SampleOptions are the sampler options bibat recognizes. Nil pointers
// leave the sampler's own default in place.
type SampleOptions struct {
	Chains       *int
	IterWarmup   *int
	IterSampling *int
	Thin         *int
	Seed         *int
	MaxTreedepth *int
	Refresh      *int
	AdaptDelta   *float64
	StepSize     *float64
	ShowProgress bool
	SaveWarmup   bool
}

type optionKind int

const (
	intOption optionKind = iota
	floatOption
	boolOption
)

var recognizedOptions = map[string]optionKind{
	"chains":        intOption,
	"iter_warmup":   intOption,
	"iter_sampling": intOption,
	"thin":          intOption,
	"seed":          intOption,
	"max_treedepth": intOption,
	"refresh":       intOption,
	"adapt_delta":   floatOption,
	"step_size":     floatOption,
	"show_progress": boolOption,
	"save_warmup":   boolOption,
}

// RecognizedOptions lists the option names ParseSampleOptions accepts.
func RecognizedOptions() []string {
	names := make([]string, 0, len(recognizedOptions))
	for name := range recognizedOptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MergeOptions merges option layers; later layers win.
func MergeOptions(layers ...map[string]any) map[string]any {
	out := map[string]any{}
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

// ParseSampleOptions merges the layers (later wins) and converts the result
// into typed options. Unknown names and ill-typed values are errors.
func ParseSampleOptions(layers ...map[string]any) (SampleOptions, error) {
	merged := MergeOptions(layers...)
	var opts SampleOptions
	var problems []string
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := merged[key]
		kind, ok := recognizedOptions[key]
		if !ok {
			problems = append(problems, fmt.Sprintf("unknown sampler option %q", key))
			continue
		}
		switch kind {
		case intOption:
			n, err := CoerceInt(value)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", key, err))
				continue
			}
			if n < 0 || (n == 0 && key != "seed" && key != "refresh" && key != "iter_warmup") {
				problems = append(problems, fmt.Sprintf("%s: %d is out of range", key, n))
				continue
			}
			setInt(&opts, key, n)
		case floatOption:
			f, err := coerceFloat(value)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", key, err))
				continue
			}
			if f <= 0 {
				problems = append(problems, fmt.Sprintf("%s: %v must be positive", key, f))
				continue
			}
			if key == "adapt_delta" {
				if f >= 1 {
					problems = append(problems, fmt.Sprintf("adapt_delta: %v must be below 1", f))
					continue
				}
				opts.AdaptDelta = &f
			} else {
				opts.StepSize = &f
			}
		case boolOption:
			b, ok := value.(bool)
			if !ok {
				problems = append(problems, fmt.Sprintf("%s: %v is not a boolean", key, value))
				continue
			}
			if key == "show_progress" {
				opts.ShowProgress = b
			} else {
				opts.SaveWarmup = b
			}
		}
	}
	if len(problems) > 0 {
		return SampleOptions{}, fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return opts, nil
}

func setInt(opts *SampleOptions, key string, n int) {
	switch key {
	case "chains":
		opts.Chains = &n
	case "iter_warmup":
		opts.IterWarmup = &n
	case "iter_sampling":
		opts.IterSampling = &n
	case "thin":
		opts.Thin = &n
	case "seed":
		opts.Seed = &n
	case "max_treedepth":
		opts.MaxTreedepth = &n
	case "refresh":
		opts.Refresh = &n
	}
}

// CoerceInt converts TOML-decoded values to int. Integral floats and
// numeric strings are accepted; fractional values and booleans are not.
func CoerceInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("could not coerce %q to int", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("could not coerce %v (%T) to int", value, value)
	}
}

func coerceFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("could not coerce %q to float", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("could not coerce %v (%T) to float", value, value)
	}
}

// IntOr dereferences p, falling back to def.
func IntOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
