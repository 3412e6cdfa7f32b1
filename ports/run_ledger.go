package ports

import (
	"context"

	"github.com/teddygroves/bibat/domain/core"
	"github.com/teddygroves/bibat/domain/run"
)

// RunLedgerWriter records run manifests. Recording the same run ID twice
// replaces the earlier record.
type RunLedgerWriter interface {
	Record(ctx context.Context, manifest *run.Manifest) error
}

// RunLedgerReader provides read-only access to recorded runs.
type RunLedgerReader interface {
	// List returns at most limit runs, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]run.Manifest, error)
	Get(ctx context.Context, id core.RunID) (*run.Manifest, error)
}

// RunLedger combines read and write access.
type RunLedger interface {
	RunLedgerWriter
	RunLedgerReader
	Close() error
}
