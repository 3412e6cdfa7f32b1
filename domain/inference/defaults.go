package inference

// DefaultDims labels the log likelihood and replicated observations along
// the observation coordinate.
func DefaultDims() map[string][]string {
	return map[string][]string{
		"llik": {"observation"},
		"yrep": {"observation"},
	}
}

// DefaultSampleKwargs are the sampler options every job starts from.
func DefaultSampleKwargs() map[string]any {
	return map[string]any{"show_progress": false}
}

// MergeDims returns base with override's keys on top. Neither argument is
// modified.
func MergeDims(base, override map[string][]string) map[string][]string {
	out := make(map[string][]string, len(base)+len(override))
	for _, m := range []map[string][]string{base, override} {
		for k, v := range m {
			out[k] = append([]string(nil), v...)
		}
	}
	return out
}

// MergeDefaults returns base with override's keys on top. Neither argument
// is modified.
func MergeDefaults(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for _, m := range []map[string]any{base, override} {
		for k, v := range m {
			out[k] = deepCopy(v)
		}
	}
	return out
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = deepCopy(x)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = deepCopy(x)
		}
		return out
	default:
		return v
	}
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return deepCopy(m).(map[string]any)
}
