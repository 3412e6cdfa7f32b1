package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teddygroves/bibat/domain/dataset"
	"github.com/teddygroves/bibat/domain/fitting"
	"github.com/teddygroves/bibat/domain/idata"
	"github.com/teddygroves/bibat/domain/inference"
	"github.com/teddygroves/bibat/domain/run"
	"github.com/teddygroves/bibat/domain/stan"
	"github.com/teddygroves/bibat/internal/errors"
	"github.com/teddygroves/bibat/ports"
)

// PredictiveVar is the Stan variable stored as the prior or posterior
// predictive.
const PredictiveVar = "yrep"

// FittingService runs inference jobs and persists their results.
type FittingService struct {
	sampler     ports.Sampler
	programs    ports.ProgramResolver
	modes       *fitting.Registry
	functions   *stan.Functions
	store       ports.ResultStore
	ledger      ports.RunLedgerWriter
	logger      *slog.Logger
	codeVersion string
	now         func() time.Time
}

// NewFittingService creates a fitting service
func NewFittingService(
	sampler ports.Sampler,
	programs ports.ProgramResolver,
	modes *fitting.Registry,
	functions *stan.Functions,
	store ports.ResultStore,
) *FittingService {
	if modes == nil {
		modes = fitting.DefaultRegistry()
	}
	return &FittingService{
		sampler:     sampler,
		programs:    programs,
		modes:       modes,
		functions:   functions,
		store:       store,
		logger:      slog.Default(),
		codeVersion: "dev",
		now:         time.Now,
	}
}

// WithLedger records every run in ledger.
func (s *FittingService) WithLedger(ledger ports.RunLedgerWriter) *FittingService {
	s.ledger = ledger
	return s
}

// WithLogger replaces the default logger.
func (s *FittingService) WithLogger(logger *slog.Logger) *FittingService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithCodeVersion sets the version stamped into run fingerprints.
func (s *FittingService) WithCodeVersion(version string) *FittingService {
	s.codeVersion = version
	return s
}

// RunInference fits every mode of one configuration and assembles the
// unified result. Mode and input function names are resolved before the
// sampler is first called.
func (s *FittingService) RunInference(ctx context.Context, cfg *inference.Configuration, data *dataset.PreparedData) (*idata.InferenceData, error) {
	job := cfg.Name()

	// Step 1: Resolve every name the job refers to
	modes, err := s.modes.Resolve(cfg.FittingModes())
	if err != nil {
		return nil, err
	}
	inputFn, err := s.functions.Lookup(cfg.StanInputFunction())
	if err != nil {
		return nil, err
	}
	if missing := data.Coords.MissingDims(cfg.Dims()); len(missing) > 0 {
		s.logger.Debug("dims without coordinates are labelled by index", "job", job, "dims", missing)
	}

	// Step 2: Start the result with the observed data
	builder := idata.NewBuilder(data.Coords, cfg.Dims())
	observed, err := inputFn(data)
	if err != nil {
		return nil, errors.Wrapf(err, "stan input function %q", cfg.StanInputFunction())
	}
	if err := builder.AddObservedData(observed); err != nil {
		return nil, errors.Wrap(err, "observed data")
	}

	// Step 3: Run the modes in declared order and route their output
	env := fitting.Env{
		Config:    cfg,
		Data:      data,
		Functions: s.functions,
		Sampler:   s.sampler,
		Programs:  s.programs,
		Logger:    s.logger,
	}
	for _, mode := range modes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.logger.Info("running fitting mode", "job", job, "mode", mode.Name(), "target", mode.Target())
		out, err := mode.Fit(ctx, env)
		if err != nil {
			return nil, err
		}
		switch target := mode.Target(); target {
		case fitting.TargetPrior, fitting.TargetPosterior:
			if out.Draws == nil {
				return nil, errors.SamplerError(job, mode.Name(), fmt.Errorf("mode produced no draws"))
			}
			if err := builder.AddDraws(string(target), out.Draws, PredictiveVar); err != nil {
				return nil, errors.SamplerError(job, mode.Name(), err)
			}
		case fitting.TargetLogLikelihood:
			if out.LogLikelihood == nil {
				return nil, errors.SamplerError(job, mode.Name(), fmt.Errorf("mode produced no log likelihood"))
			}
			if err := builder.AddLogLikelihood("llik_"+mode.Name(), out.LogLikelihood); err != nil {
				return nil, errors.SamplerError(job, mode.Name(), err)
			}
		default:
			return nil, errors.InternalError(fmt.Sprintf("mode %q has unknown target %q", mode.Name(), target))
		}
	}

	// Step 4: Record what was fitted
	builder.SetAttr("inference", job)
	builder.SetAttr("stan_file", cfg.StanFile())
	builder.SetAttr("prepared_data", cfg.PreparedData())
	builder.SetAttr("fitting_modes", strings.Join(cfg.FittingModes(), ","))
	builder.SetAttr("created_by", "bibat "+s.codeVersion)
	return builder.Build(), nil
}

// BatchOptions controls RunAllInferences.
type BatchOptions struct {
	// InferencesDir holds one subdirectory per job, each with a config.toml.
	InferencesDir string
	// DataDir holds <prepared_data>.json files.
	DataDir string
	// Loader reads prepared data. Defaults to dataset.ReadJSON.
	Loader dataset.Loader
	// Format of the persisted results. Defaults to JSON.
	Format idata.Format
	// ContinueOnError runs the remaining jobs after a failure and returns
	// every failure joined together at the end.
	ContinueOnError bool
}

// JobResult is the outcome of one job.
type JobResult struct {
	Job        string
	Dir        string
	ResultPath string
	Manifest   *run.Manifest
	Err        error
}

// BatchReport lists job outcomes in execution order.
type BatchReport struct {
	Jobs []JobResult
}

// Succeeded counts the jobs that finished without error.
func (r *BatchReport) Succeeded() int {
	n := 0
	for _, j := range r.Jobs {
		if j.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts the jobs that returned an error.
func (r *BatchReport) Failed() int { return len(r.Jobs) - r.Succeeded() }

// RunAllInferences runs every job directory under opts.InferencesDir in
// lexicographic order. Results written by earlier jobs are kept when a
// later job fails.
func (s *FittingService) RunAllInferences(ctx context.Context, opts BatchOptions) (*BatchReport, error) {
	if opts.Loader == nil {
		opts.Loader = dataset.ReadJSON
	}
	if opts.Format == "" {
		opts.Format = idata.FormatJSON
	}
	jobDirs, err := s.jobDirs(opts.InferencesDir)
	if err != nil {
		return nil, err
	}

	report := &BatchReport{}
	var failures []error
	for _, dir := range jobDirs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		result := s.runJob(ctx, dir, opts)
		report.Jobs = append(report.Jobs, result)
		if result.Err == nil {
			continue
		}
		if !opts.ContinueOnError {
			return report, result.Err
		}
		s.logger.Error("inference failed, continuing with the next one", "job", result.Job, "error", result.Err)
		failures = append(failures, result.Err)
	}
	s.logger.Info("finished inferences", "succeeded", report.Succeeded(), "failed", report.Failed())
	if len(failures) > 0 {
		return report, errors.Join(failures...)
	}
	return report, nil
}

// jobDirs lists subdirectories holding a config.toml. os.ReadDir sorts by
// name.
func (s *FittingService) jobDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(fmt.Sprintf("inferences directory %s", root))
		}
		return nil, errors.StorageError("listing inferences directory", err)
	}
	var dirs []string
	for _, e := range entries {
		dir := filepath.Join(root, e.Name())
		if !e.IsDir() {
			s.logger.Debug("skipping non-directory", "path", dir)
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, inference.ConfigFile)); err != nil {
			s.logger.Debug("skipping directory without config.toml", "path", dir)
			continue
		}
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

func (s *FittingService) runJob(ctx context.Context, dir string, opts BatchOptions) JobResult {
	job := filepath.Base(dir)
	manifest := run.NewManifest(job, s.now())
	manifest.Format = string(opts.Format)
	result := JobResult{Job: job, Dir: dir, Manifest: manifest}

	path, err := s.fitJob(ctx, dir, opts, manifest)
	if err != nil {
		manifest.Fail(err, s.now())
		result.Err = errors.Wrapf(err, "inference %q", job)
	} else {
		manifest.Succeed(path, s.now())
		result.ResultPath = path
		s.logger.Info("saved inference", "job", job, "path", path, "run_id", manifest.RunID, "fingerprint", manifest.Fingerprint.Fingerprint.Short())
	}

	if _, werr := manifest.Write(dir); werr != nil {
		result.Err = errors.Join(result.Err, werr)
	}
	if s.ledger != nil {
		if lerr := s.ledger.Record(ctx, manifest); lerr != nil {
			result.Err = errors.Join(result.Err, errors.StorageError("recording run in ledger", lerr))
		}
	}
	return result
}

func (s *FittingService) fitJob(ctx context.Context, dir string, opts BatchOptions, manifest *run.Manifest) (string, error) {
	job := manifest.Job

	s.logger.Info("loading inference configuration", "job", job, "dir", dir)
	cfg, err := inference.Load(dir, s.programs)
	if err != nil {
		return "", err
	}
	manifest.ConfigName = cfg.Name()
	manifest.StanFile = cfg.StanFile()
	manifest.PreparedData = cfg.PreparedData()
	manifest.Modes = cfg.FittingModes()

	dataPath := filepath.Join(opts.DataDir, cfg.PreparedData()+".json")
	s.logger.Info("loading prepared data", "job", job, "path", dataPath)
	data, err := opts.Loader(dataPath)
	if err != nil {
		return "", err
	}
	dataBytes, err := os.ReadFile(dataPath)
	if err != nil {
		return "", errors.StorageError(fmt.Sprintf("reading %s for the run fingerprint", dataPath), err)
	}
	manifest.Fingerprint = run.NewFingerprint(cfg.Source(), dataBytes, cfg.Seed(""), s.codeVersion)

	result, err := s.RunInference(ctx, cfg, data)
	if err != nil {
		return "", err
	}

	s.logger.Info("saving inference", "job", job, "format", opts.Format)
	return s.store.Save(dir, result, opts.Format)
}
