package cmdstan

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/teddygroves/bibat/domain/draws"
	"github.com/teddygroves/bibat/domain/stan"
	"github.com/teddygroves/bibat/internal/errors"
)

const (
	defaultChains  = 4
	defaultWarmup  = 1000
	defaultThin    = 1
	consoleTailLen = 20
)

// Sampler runs CmdStan's NUTS sampler, one chain after another.
type Sampler struct {
	Compiler *Compiler
	// WorkDir holds per-call output directories; empty means the system
	// temporary directory.
	WorkDir string
	// KeepFiles leaves CSV and console output on disk after a run.
	KeepFiles bool
	Logger    *slog.Logger
}

// NewSampler creates a sampler that compiles programs with compiler.
func NewSampler(compiler *Compiler, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sampler{Compiler: compiler, Logger: logger}
}

// Sample compiles program if needed, runs every chain and returns the
// post-warmup draws.
func (s *Sampler) Sample(ctx context.Context, program stan.Program, input stan.Input, opts stan.SampleOptions) (*draws.Collection, error) {
	// Step 1: Compile
	compiler := s.Compiler
	if compiler == nil {
		compiler = &Compiler{Logger: s.Logger}
	}
	exe, err := compiler.Ensure(ctx, program)
	if err != nil {
		return nil, err
	}

	// Step 2: Stage input
	dir, err := os.MkdirTemp(s.WorkDir, strings.TrimSuffix(filepath.Base(program.Path), ".stan")+"-")
	if err != nil {
		return nil, errors.StorageError("creating sampler output directory", err)
	}
	if !s.KeepFiles {
		defer os.RemoveAll(dir)
	}
	dataFile := filepath.Join(dir, "data.json")
	if err := WriteInputFile(dataFile, input); err != nil {
		return nil, err
	}

	// Step 3: Run chains
	nChains := stan.IntOr(opts.Chains, defaultChains)
	var columns []string
	chains := make([][][]float64, 0, nChains)
	for chain := 1; chain <= nChains; chain++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outputFile := filepath.Join(dir, fmt.Sprintf("output-%d.csv", chain))
		consoleFile := filepath.Join(dir, fmt.Sprintf("console-%d.txt", chain))
		if err := s.runChain(ctx, exe, SampleArgs(chain, opts, dataFile, outputFile), consoleFile, opts.ShowProgress); err != nil {
			return nil, fmt.Errorf("chain %d: %w", chain, err)
		}

		cols, rows, err := ReadCSVFile(outputFile)
		if err != nil {
			return nil, fmt.Errorf("chain %d: %w", chain, err)
		}
		if columns == nil {
			columns = cols
		} else if !sameColumns(columns, cols) {
			return nil, fmt.Errorf("chain %d: columns differ from chain 1", chain)
		}
		chains = append(chains, dropWarmup(rows, opts))
	}

	// Step 4: Collect
	return draws.NewCollection(columns, chains)
}

func (s *Sampler) runChain(ctx context.Context, exe string, args []string, consoleFile string, showProgress bool) error {
	var console bytes.Buffer
	var out io.Writer = &console
	if showProgress {
		out = io.MultiWriter(&console, os.Stderr)
	}
	command := exec.CommandContext(ctx, exe, args...)
	command.Stdout = out
	command.Stderr = out

	runErr := command.Run()
	if err := os.WriteFile(consoleFile, console.Bytes(), 0o644); err != nil {
		s.logger().Warn("could not save console output", "file", consoleFile, "error", err)
	}
	if runErr != nil {
		return fmt.Errorf("%s: %w\n%s", filepath.Base(exe), runErr, tail(console.String(), consoleTailLen))
	}
	return nil
}

func (s *Sampler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// SampleArgs builds the CmdStan command line for one chain. Options left
// unset are omitted so CmdStan's defaults apply.
func SampleArgs(chain int, opts stan.SampleOptions, dataFile, outputFile string) []string {
	args := []string{"id=" + strconv.Itoa(chain)}
	if opts.Seed != nil {
		args = append(args, "random", "seed="+strconv.Itoa(*opts.Seed))
	}
	args = append(args, "data", "file="+dataFile, "output", "file="+outputFile)
	if opts.Refresh != nil {
		args = append(args, "refresh="+strconv.Itoa(*opts.Refresh))
	}
	args = append(args, "method=sample")
	if opts.IterSampling != nil {
		args = append(args, "num_samples="+strconv.Itoa(*opts.IterSampling))
	}
	if opts.IterWarmup != nil {
		args = append(args, "num_warmup="+strconv.Itoa(*opts.IterWarmup))
	}
	if opts.SaveWarmup {
		args = append(args, "save_warmup=1")
	}
	if opts.Thin != nil {
		args = append(args, "thin="+strconv.Itoa(*opts.Thin))
	}
	args = append(args, "algorithm=hmc", "engine=nuts")
	if opts.MaxTreedepth != nil {
		args = append(args, "max_depth="+strconv.Itoa(*opts.MaxTreedepth))
	}
	if opts.StepSize != nil {
		args = append(args, "stepsize="+strconv.FormatFloat(*opts.StepSize, 'g', -1, 64))
	}
	if opts.AdaptDelta != nil {
		args = append(args, "adapt", "delta="+strconv.FormatFloat(*opts.AdaptDelta, 'g', -1, 64))
	}
	return args
}

// dropWarmup removes saved warmup rows so every chain holds only
// post-warmup draws.
func dropWarmup(rows [][]float64, opts stan.SampleOptions) [][]float64 {
	if !opts.SaveWarmup {
		return rows
	}
	warmup := stan.IntOr(opts.IterWarmup, defaultWarmup)
	thin := stan.IntOr(opts.Thin, defaultThin)
	n := (warmup + thin - 1) / thin
	if n > len(rows) {
		n = len(rows)
	}
	return rows[n:]
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
