package inference

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/teddygroves/bibat/internal/errors"
	"github.com/teddygroves/bibat/ports"
)

// Decode parses a TOML job description. Unknown keys are rejected.
func Decode(raw []byte) (Document, error) {
	var doc Document
	dec := toml.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		var strict *toml.StrictMissingError
		if stderrors.As(err, &strict) {
			keys := make([]string, 0, len(strict.Errors))
			for _, e := range strict.Errors {
				keys = append(keys, strings.Join(e.Key(), "."))
			}
			return Document{}, errors.ConfigurationError("config.toml", "unknown keys: "+strings.Join(keys, ", "))
		}
		var decodeErr *toml.DecodeError
		if stderrors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return Document{}, errors.ConfigurationError("config.toml", fmt.Sprintf("line %d column %d: %s", row, col, decodeErr.Error()))
		}
		return Document{}, errors.ConfigurationError("config.toml", err.Error())
	}
	return doc, nil
}

// Load reads and validates <jobDir>/config.toml.
func Load(jobDir string, programs ports.ProgramResolver) (*Configuration, error) {
	path := filepath.Join(jobDir, ConfigFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(path)
		}
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	doc, err := Decode(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	cfg, err := New(doc, programs)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	cfg.source = raw
	return cfg, nil
}
