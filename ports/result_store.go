package ports

import (
	"github.com/teddygroves/bibat/domain/idata"
)

// ResultStore persists unified inference results.
type ResultStore interface {
	// Save writes data into dir and returns the path of what it wrote.
	Save(dir string, data *idata.InferenceData, format idata.Format) (string, error)
	// Load reads a result back, detecting the format from the path.
	Load(path string) (*idata.InferenceData, error)
}
