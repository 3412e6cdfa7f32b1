// Package idatastore persists unified inference results, either as one
// JSON document or as a directory holding one compressed CBOR file per
// group.
package idatastore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/teddygroves/bibat/domain/idata"
	"github.com/teddygroves/bibat/internal/errors"
)

// File and directory names written inside a job directory.
const (
	JSONFile     = "idata.json"
	DirectoryDir = "idata"
)

// Store implements ports.ResultStore on the local filesystem.
type Store struct{}

// New creates a result store
func New() *Store { return &Store{} }

// Save writes data into dir in the requested format.
func (s *Store) Save(dir string, data *idata.InferenceData, format idata.Format) (string, error) {
	if data == nil {
		return "", errors.InvalidInput("no inference data to save")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.StorageError(fmt.Sprintf("creating %s", dir), err)
	}
	switch format {
	case idata.FormatJSON, "":
		path := filepath.Join(dir, JSONFile)
		return path, writeJSON(path, data)
	case idata.FormatDirectory:
		path := filepath.Join(dir, DirectoryDir)
		return path, writeDirectory(path, data)
	}
	return "", errors.InvalidInput(fmt.Sprintf("unknown idata format %q", format))
}

// Load reads a result written by Save. A directory is read as the
// directory format, anything else as JSON.
func (s *Store) Load(path string) (*idata.InferenceData, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(fmt.Sprintf("inference data %s", path))
		}
		return nil, errors.StorageError(fmt.Sprintf("reading %s", path), err)
	}
	if info.IsDir() {
		return readDirectory(path)
	}
	return readJSON(path)
}

// writeAtomic writes through a temporary file in the same directory.
func writeAtomic(path string, raw []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.StorageError(fmt.Sprintf("writing %s", path), err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.StorageError(fmt.Sprintf("writing %s", path), err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return errors.StorageError(fmt.Sprintf("writing %s", path), err)
	}
	if err := tmp.Close(); err != nil {
		return errors.StorageError(fmt.Sprintf("writing %s", path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.StorageError(fmt.Sprintf("writing %s", path), err)
	}
	return nil
}
