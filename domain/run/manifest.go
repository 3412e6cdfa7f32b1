// Package run describes one execution of one inference job: what was
// fitted, from which inputs, where the result went and how it ended.
package run

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/teddygroves/bibat/domain/core"
	"github.com/teddygroves/bibat/internal/errors"
)

// ManifestFile is written next to the result in each job directory.
const ManifestFile = "run.json"

// Status of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Manifest records one run of one inference job.
type Manifest struct {
	RunID        core.RunID  `json:"run_id" db:"run_id"`
	Job          string      `json:"job" db:"job"`
	ConfigName   string      `json:"config_name" db:"config_name"`
	StanFile     string      `json:"stan_file" db:"stan_file"`
	PreparedData string      `json:"prepared_data" db:"prepared_data"`
	Modes        []string    `json:"modes" db:"-"`
	Format       string      `json:"format" db:"format"`
	ResultPath   string      `json:"result_path,omitempty" db:"result_path"`
	Fingerprint  Fingerprint `json:"fingerprint" db:"-"`
	Status       Status      `json:"status" db:"status"`
	Error        string      `json:"error,omitempty" db:"error"`
	StartedAt    time.Time   `json:"started_at" db:"started_at"`
	FinishedAt   *time.Time  `json:"finished_at,omitempty" db:"finished_at"`
}

// NewManifest starts a running manifest for job.
func NewManifest(job string, startedAt time.Time) *Manifest {
	return &Manifest{
		RunID:     core.NewRunID(),
		Job:       job,
		Status:    StatusRunning,
		StartedAt: startedAt.UTC(),
	}
}

// Succeed marks the run finished with its result at path.
func (m *Manifest) Succeed(path string, at time.Time) {
	finished := at.UTC()
	m.Status = StatusSucceeded
	m.ResultPath = path
	m.Error = ""
	m.FinishedAt = &finished
}

// Fail marks the run finished with err.
func (m *Manifest) Fail(err error, at time.Time) {
	finished := at.UTC()
	m.Status = StatusFailed
	if err != nil {
		m.Error = err.Error()
	}
	m.FinishedAt = &finished
}

// Duration is zero while the run is still going.
func (m *Manifest) Duration() time.Duration {
	if m.FinishedAt == nil {
		return 0
	}
	return m.FinishedAt.Sub(m.StartedAt)
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if m.RunID.IsEmpty() {
		return errors.ValidationError("run manifest: run_id cannot be empty")
	}
	if m.Job == "" {
		return errors.ValidationError("run manifest: job cannot be empty")
	}
	switch m.Status {
	case StatusRunning:
	case StatusSucceeded:
		if m.ResultPath == "" {
			return errors.ValidationError("run manifest: succeeded run has no result_path")
		}
	case StatusFailed:
		if m.Error == "" {
			return errors.ValidationError("run manifest: failed run has no error")
		}
	default:
		return errors.ValidationError(fmt.Sprintf("run manifest: unknown status %q", m.Status))
	}
	if m.FinishedAt != nil && m.FinishedAt.Before(m.StartedAt) {
		return errors.ValidationError("run manifest: finished before it started")
	}
	return nil
}

// Write stores the manifest as dir/run.json.
func (m *Manifest) Write(dir string) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encoding run manifest")
	}
	path := filepath.Join(dir, ManifestFile)
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return "", errors.StorageError("writing run manifest", err)
	}
	return path, nil
}

// ReadManifest loads a manifest written by Write.
func ReadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(fmt.Sprintf("run manifest %s", path))
		}
		return nil, errors.StorageError("reading run manifest", err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrapf(err, "decoding run manifest %s", path)
	}
	return &m, nil
}
