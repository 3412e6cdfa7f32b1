// Package ledger keeps a SQL history of inference runs. SQLite (pure Go,
// via modernc.org/sqlite) is the default backend; postgres URLs use
// lib/pq.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/teddygroves/bibat/domain/core"
	"github.com/teddygroves/bibat/domain/run"
	"github.com/teddygroves/bibat/internal/errors"
	"github.com/teddygroves/bibat/ports"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Ledger implements ports.RunLedger on a SQL database.
type Ledger struct {
	db     *sqlx.DB
	logger *slog.Logger
}

var _ ports.RunLedger = (*Ledger)(nil)

// ParseURL maps a ledger URL to a database/sql driver name and DSN.
// postgres:// and postgresql:// go to lib/pq; sqlite://<path> and bare
// paths go to sqlite.
func ParseURL(url string) (driver, dsn string, err error) {
	url = strings.TrimSpace(url)
	switch {
	case url == "":
		return "", "", errors.ConfigurationError("BIBAT_LEDGER_URL", "ledger URL is empty")
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return "postgres", url, nil
	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		if path == "" {
			return "", "", errors.ConfigurationError("BIBAT_LEDGER_URL", "sqlite URL has no path")
		}
		return "sqlite", path, nil
	case strings.Contains(url, "://"):
		return "", "", errors.ConfigurationError("BIBAT_LEDGER_URL", fmt.Sprintf("unsupported ledger URL %q", url))
	default:
		return "sqlite", url, nil
	}
}

// Open connects to the ledger at url and brings its schema up to date.
func Open(ctx context.Context, url string, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	driver, dsn, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, errors.StorageError("failed to connect to run ledger", err)
	}
	if driver == "sqlite" {
		// One connection keeps writes serialized and ":memory:" usable.
		db.SetMaxOpenConns(1)
	}
	if err := migrate(ctx, db, logger); err != nil {
		db.Close()
		return nil, errors.StorageError("run ledger migration failed", err)
	}
	return &Ledger{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// runRow is the storage shape of a manifest.
type runRow struct {
	RunID        string         `db:"run_id"`
	Job          string         `db:"job"`
	ConfigName   string         `db:"config_name"`
	StanFile     string         `db:"stan_file"`
	PreparedData string         `db:"prepared_data"`
	Modes        string         `db:"modes"`
	Format       string         `db:"format"`
	ResultPath   string         `db:"result_path"`
	Fingerprint  string         `db:"fingerprint"`
	Status       string         `db:"status"`
	Error        string         `db:"error"`
	StartedAt    string         `db:"started_at"`
	FinishedAt   sql.NullString `db:"finished_at"`
}

func toRow(m *run.Manifest) (runRow, error) {
	modes := m.Modes
	if modes == nil {
		modes = []string{}
	}
	modesJSON, err := json.Marshal(modes)
	if err != nil {
		return runRow{}, err
	}
	fingerprintJSON, err := json.Marshal(m.Fingerprint)
	if err != nil {
		return runRow{}, err
	}
	row := runRow{
		RunID:        m.RunID.String(),
		Job:          m.Job,
		ConfigName:   m.ConfigName,
		StanFile:     m.StanFile,
		PreparedData: m.PreparedData,
		Modes:        string(modesJSON),
		Format:       m.Format,
		ResultPath:   m.ResultPath,
		Fingerprint:  string(fingerprintJSON),
		Status:       string(m.Status),
		Error:        m.Error,
		StartedAt:    m.StartedAt.UTC().Format(timeLayout),
	}
	if m.FinishedAt != nil {
		row.FinishedAt = sql.NullString{String: m.FinishedAt.UTC().Format(timeLayout), Valid: true}
	}
	return row, nil
}

func (r runRow) manifest() (*run.Manifest, error) {
	m := &run.Manifest{
		RunID:        core.RunID(r.RunID),
		Job:          r.Job,
		ConfigName:   r.ConfigName,
		StanFile:     r.StanFile,
		PreparedData: r.PreparedData,
		Format:       r.Format,
		ResultPath:   r.ResultPath,
		Status:       run.Status(r.Status),
		Error:        r.Error,
	}
	if err := json.Unmarshal([]byte(r.Modes), &m.Modes); err != nil {
		return nil, fmt.Errorf("run %s: modes: %w", r.RunID, err)
	}
	if err := json.Unmarshal([]byte(r.Fingerprint), &m.Fingerprint); err != nil {
		return nil, fmt.Errorf("run %s: fingerprint: %w", r.RunID, err)
	}
	started, err := time.Parse(timeLayout, r.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("run %s: started_at: %w", r.RunID, err)
	}
	m.StartedAt = started
	if r.FinishedAt.Valid {
		finished, err := time.Parse(timeLayout, r.FinishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("run %s: finished_at: %w", r.RunID, err)
		}
		m.FinishedAt = &finished
	}
	return m, nil
}

const selectRuns = `SELECT run_id, job, config_name, stan_file, prepared_data, modes, format,
	result_path, fingerprint, status, error, started_at, finished_at FROM runs`

// Record inserts m, or replaces the stored row with the same run ID.
func (l *Ledger) Record(ctx context.Context, m *run.Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}
	row, err := toRow(m)
	if err != nil {
		return errors.Wrap(err, "encoding run manifest")
	}
	_, err = l.db.NamedExecContext(ctx, `
		INSERT INTO runs (run_id, job, config_name, stan_file, prepared_data, modes, format,
			result_path, fingerprint, status, error, started_at, finished_at)
		VALUES (:run_id, :job, :config_name, :stan_file, :prepared_data, :modes, :format,
			:result_path, :fingerprint, :status, :error, :started_at, :finished_at)
		ON CONFLICT (run_id) DO UPDATE SET
			job = excluded.job,
			config_name = excluded.config_name,
			stan_file = excluded.stan_file,
			prepared_data = excluded.prepared_data,
			modes = excluded.modes,
			format = excluded.format,
			result_path = excluded.result_path,
			fingerprint = excluded.fingerprint,
			status = excluded.status,
			error = excluded.error,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at
	`, row)
	if err != nil {
		return errors.StorageError(fmt.Sprintf("recording run %s", m.RunID), err)
	}
	l.logger.Debug("recorded run", "run_id", m.RunID.String(), "job", m.Job, "status", m.Status)
	return nil
}

// List returns up to limit runs, newest first. limit <= 0 lists every run.
func (l *Ledger) List(ctx context.Context, limit int) ([]run.Manifest, error) {
	query := selectRuns + " ORDER BY started_at DESC, run_id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	var rows []runRow
	if err := l.db.SelectContext(ctx, &rows, l.db.Rebind(query), args...); err != nil {
		return nil, errors.StorageError("listing runs", err)
	}
	out := make([]run.Manifest, 0, len(rows))
	for _, r := range rows {
		m, err := r.manifest()
		if err != nil {
			return nil, errors.StorageError("decoding run", err)
		}
		out = append(out, *m)
	}
	return out, nil
}

// Get returns one run; unknown IDs are NOT_FOUND.
func (l *Ledger) Get(ctx context.Context, id core.RunID) (*run.Manifest, error) {
	var r runRow
	err := l.db.GetContext(ctx, &r, l.db.Rebind(selectRuns+" WHERE run_id = ?"), id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound(fmt.Sprintf("run %s", id))
	}
	if err != nil {
		return nil, errors.StorageError(fmt.Sprintf("loading run %s", id), err)
	}
	m, err := r.manifest()
	if err != nil {
		return nil, errors.StorageError("decoding run", err)
	}
	return m, nil
}
