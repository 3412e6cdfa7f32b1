package dataset

import (
	"fmt"
	"sort"
)

// ObservationDim is the coordinate that labels the measurements rows.
const ObservationDim = "observation"

// CoordDict maps a dimension name to its ordered labels.
type CoordDict map[string][]string

// Labels returns a copy of the labels for dim.
func (c CoordDict) Labels(dim string) ([]string, bool) {
	labels, ok := c[dim]
	if !ok {
		return nil, false
	}
	out := make([]string, len(labels))
	copy(out, labels)
	return out, true
}

// Clone returns a deep copy.
func (c CoordDict) Clone() CoordDict {
	out := make(CoordDict, len(c))
	for k, v := range c {
		labels := make([]string, len(v))
		copy(labels, v)
		out[k] = labels
	}
	return out
}

// MissingDims lists every "param: dim" pair in dims whose dim has no
// coordinate here, sorted for stable messages.
func (c CoordDict) MissingDims(dims map[string][]string) []string {
	var missing []string
	for param, names := range dims {
		for _, name := range names {
			if _, ok := c[name]; !ok {
				missing = append(missing, fmt.Sprintf("%s: %s", param, name))
			}
		}
	}
	sort.Strings(missing)
	return missing
}
