// Package inference loads and validates inference configurations: the
// declarative description of one fitting job.
package inference

import (
	"fmt"
	"sort"

	"github.com/teddygroves/bibat/domain/stan"
	"github.com/teddygroves/bibat/internal/errors"
	"github.com/teddygroves/bibat/ports"
)

// Mode names with configuration rules attached.
const (
	ModeKfold  = "kfold"
	KeyNFolds  = "n_folds"
	ConfigFile = "config.toml"
)

// Document is the raw form of a config.toml file.
type Document struct {
	Name              string              `toml:"name"`
	StanFile          string              `toml:"stan_file"`
	PreparedData      string              `toml:"prepared_data"`
	StanInputFunction string              `toml:"stan_input_function"`
	Modes             []string            `toml:"modes"`
	SampleKwargs      map[string]any      `toml:"sample_kwargs"`
	Dims              map[string][]string `toml:"dims"`
	ModeOptions       map[string]any      `toml:"mode_options"`
	CppOptions        map[string]any      `toml:"cpp_options"`
	StancOptions      map[string]any      `toml:"stanc_options"`
}

// Configuration is a validated, read-only inference configuration.
type Configuration struct {
	name              string
	stanFile          string
	preparedData      string
	stanInputFunction string
	modes             []string
	sampleKwargs      map[string]any
	dims              map[string][]string
	modeOptions       map[string]map[string]any
	cppOptions        map[string]any
	stancOptions      map[string]any
	nFolds            int
	source            []byte
}

// New validates doc. The stan file is checked through programs so that no
// lookup depends on the working directory. Mode and input function names
// are resolved later, by whoever runs the configuration.
func New(doc Document, programs ports.ProgramResolver) (*Configuration, error) {
	required := []struct{ field, value string }{
		{"name", doc.Name},
		{"stan_file", doc.StanFile},
		{"prepared_data", doc.PreparedData},
		{"stan_input_function", doc.StanInputFunction},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, errors.ConfigurationError(r.field, "is required")
		}
	}
	if len(doc.Modes) == 0 {
		return nil, errors.ConfigurationError("modes", "at least one fitting mode is required")
	}
	if programs == nil {
		return nil, errors.ConfigurationError("stan_file", "no program resolver to check it against")
	}
	if err := programs.Exists(doc.StanFile); err != nil {
		return nil, err
	}

	cfg := &Configuration{
		name:              doc.Name,
		stanFile:          doc.StanFile,
		preparedData:      doc.PreparedData,
		stanInputFunction: doc.StanInputFunction,
		modes:             uniqueModes(doc.Modes),
		sampleKwargs:      MergeDefaults(DefaultSampleKwargs(), doc.SampleKwargs),
		dims:              MergeDims(DefaultDims(), doc.Dims),
		modeOptions:       map[string]map[string]any{},
		cppOptions:        copyMap(doc.CppOptions),
		stancOptions:      copyMap(doc.StancOptions),
	}
	for _, m := range cfg.modes {
		if m == "" {
			return nil, errors.ConfigurationError("modes", "mode names cannot be empty")
		}
	}
	if err := checkScalarOptions("cpp_options", cfg.cppOptions); err != nil {
		return nil, err
	}
	if _, err := stan.ParseSampleOptions(cfg.sampleKwargs); err != nil {
		return nil, errors.ConfigurationError("sample_kwargs", err.Error())
	}

	modeNames := make([]string, 0, len(doc.ModeOptions))
	for m := range doc.ModeOptions {
		modeNames = append(modeNames, m)
	}
	sort.Strings(modeNames)
	for _, m := range modeNames {
		field := "mode_options." + m
		table, ok := doc.ModeOptions[m].(map[string]any)
		if !ok {
			return nil, errors.ConfigurationError(field, fmt.Sprintf("must be a table, got %T", doc.ModeOptions[m]))
		}
		table = copyMap(table)
		if _, err := stan.ParseSampleOptions(cfg.sampleKwargs, withoutNFolds(m, table)); err != nil {
			return nil, errors.ConfigurationError(field, err.Error())
		}
		cfg.modeOptions[m] = table
	}

	if cfg.HasMode(ModeKfold) {
		n, err := checkNFolds(cfg.modeOptions)
		if err != nil {
			return nil, err
		}
		cfg.nFolds = n
	}
	return cfg, nil
}

func checkNFolds(modeOptions map[string]map[string]any) (int, error) {
	const field = "mode_options.kfold.n_folds"
	table, ok := modeOptions[ModeKfold]
	if !ok {
		return 0, errors.ConfigurationError("mode_options.kfold", "mode 'kfold' requires a mode_options.kfold table")
	}
	raw, ok := table[KeyNFolds]
	if !ok {
		return 0, errors.ConfigurationError(field, "set n_folds in the kfold mode options")
	}
	n, err := stan.CoerceInt(raw)
	if err != nil {
		return 0, errors.ConfigurationError(field, err.Error())
	}
	if n < 1 {
		return 0, errors.ConfigurationError(field, fmt.Sprintf("must be a positive integer, got %d", n))
	}
	return n, nil
}

// withoutNFolds drops n_folds from the kfold options, leaving only
// sampler options.
func withoutNFolds(mode string, table map[string]any) map[string]any {
	if mode != ModeKfold {
		return table
	}
	out := make(map[string]any, len(table))
	for k, v := range table {
		if k != KeyNFolds {
			out[k] = v
		}
	}
	return out
}

// checkScalarOptions rejects values that cannot be passed to make as
// KEY=VALUE.
func checkScalarOptions(field string, options map[string]any) error {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch options[k].(type) {
		case string, bool, int64, int, float64:
		default:
			return errors.ConfigurationError(field+"."+k, fmt.Sprintf("must be a string, number or boolean, got %T", options[k]))
		}
	}
	return nil
}

func uniqueModes(modes []string) []string {
	seen := make(map[string]bool, len(modes))
	out := make([]string, 0, len(modes))
	for _, m := range modes {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

func (c *Configuration) Name() string              { return c.name }
func (c *Configuration) StanFile() string          { return c.stanFile }
func (c *Configuration) PreparedData() string      { return c.preparedData }
func (c *Configuration) StanInputFunction() string { return c.stanInputFunction }

// Source returns the bytes the configuration was loaded from, if any.
func (c *Configuration) Source() []byte { return append([]byte(nil), c.source...) }

// FittingModes returns the mode names in declared order, duplicates removed.
func (c *Configuration) FittingModes() []string {
	return append([]string(nil), c.modes...)
}

// HasMode reports whether mode was requested.
func (c *Configuration) HasMode(mode string) bool {
	for _, m := range c.modes {
		if m == mode {
			return true
		}
	}
	return false
}

// SampleKwargs returns the sampler options with defaults merged in.
func (c *Configuration) SampleKwargs() map[string]any { return copyMap(c.sampleKwargs) }

// Dims returns the dimension labels with defaults merged in.
func (c *Configuration) Dims() map[string][]string { return MergeDims(nil, c.dims) }

// ModeOptions returns the options table for mode, or an empty map.
func (c *Configuration) ModeOptions(mode string) map[string]any {
	if table, ok := c.modeOptions[mode]; ok {
		return copyMap(table)
	}
	return map[string]any{}
}

// NFolds is the number of k-fold folds, or zero when kfold is not requested.
func (c *Configuration) NFolds() int { return c.nFolds }

func (c *Configuration) CppOptions() map[string]any   { return copyMap(c.cppOptions) }
func (c *Configuration) StancOptions() map[string]any { return copyMap(c.stancOptions) }

// SampleOptionsFor layers the mode's options over sample_kwargs.
func (c *Configuration) SampleOptionsFor(mode string) (stan.SampleOptions, error) {
	opts, err := stan.ParseSampleOptions(c.sampleKwargs, withoutNFolds(mode, c.modeOptions[mode]))
	if err != nil {
		return stan.SampleOptions{}, errors.ConfigurationError("mode_options."+mode, err.Error())
	}
	return opts, nil
}

// Seed is the configured sampler seed for mode, or zero.
func (c *Configuration) Seed(mode string) int64 {
	opts, err := c.SampleOptionsFor(mode)
	if err != nil {
		return 0
	}
	return int64(stan.IntOr(opts.Seed, 0))
}
