// Package fitting defines the fitting modes: the ways an inference job
// calls the sampler and where in the result each mode's output belongs.
package fitting

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teddygroves/bibat/domain/dataset"
	"github.com/teddygroves/bibat/domain/draws"
	"github.com/teddygroves/bibat/domain/idata"
	"github.com/teddygroves/bibat/domain/inference"
	"github.com/teddygroves/bibat/domain/stan"
	"github.com/teddygroves/bibat/internal/errors"
	"github.com/teddygroves/bibat/ports"
)

// IdataTarget is the result group a mode's output belongs in.
type IdataTarget string

const (
	TargetPrior         IdataTarget = "prior"
	TargetPosterior     IdataTarget = "posterior"
	TargetLogLikelihood IdataTarget = "log_likelihood"
)

// ParseIdataTarget validates a target name.
func ParseIdataTarget(s string) (IdataTarget, error) {
	switch t := IdataTarget(s); t {
	case TargetPrior, TargetPosterior, TargetLogLikelihood:
		return t, nil
	}
	return "", errors.InvalidInput(fmt.Sprintf("unknown idata target %q", s))
}

// Kind enumerates the built-in modes.
type Kind int

const (
	KindPrior Kind = iota
	KindPosterior
	KindKfold
)

var kindNames = [...]string{
	KindPrior:     "prior",
	KindPosterior: "posterior",
	KindKfold:     "kfold",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// KindNames lists the built-in mode names.
func KindNames() []string {
	return []string{kindNames[KindKfold], kindNames[KindPosterior], kindNames[KindPrior]}
}

// ParseKind maps a mode name to its kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return 0, errors.UnknownMode(name, KindNames())
}

// Env is everything a mode needs to fit one job.
type Env struct {
	Config    *inference.Configuration
	Data      *dataset.PreparedData
	Functions *stan.Functions
	Sampler   ports.Sampler
	Programs  ports.ProgramResolver
	Logger    *slog.Logger
}

func (e Env) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// StanInput runs the configured input function on the prepared data.
func (e Env) StanInput() (stan.Input, error) {
	fn, err := e.Functions.Lookup(e.Config.StanInputFunction())
	if err != nil {
		return nil, err
	}
	input, err := fn(e.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "stan input function %q", e.Config.StanInputFunction())
	}
	if err := input.Validate(); err != nil {
		return nil, errors.Wrapf(err, "stan input function %q", e.Config.StanInputFunction())
	}
	return input, nil
}

// Program resolves the configured Stan program with its compile options.
func (e Env) Program() (stan.Program, error) {
	program, err := e.Programs.Resolve(e.Config.StanFile())
	if err != nil {
		return stan.Program{}, err
	}
	program.CppOptions = e.Config.CppOptions()
	program.StancOptions = e.Config.StancOptions()
	return program, nil
}

// Output is what a mode produces: draws for the prior and posterior
// targets, a log likelihood variable for the log_likelihood target.
type Output struct {
	Draws         *draws.Collection
	LogLikelihood *idata.Variable
}

// Mode is one way of fitting a job.
type Mode interface {
	Name() string
	Target() IdataTarget
	Fit(ctx context.Context, env Env) (Output, error)
}

// builtin dispatches on Kind.
type builtin struct{ kind Kind }

// Builtin returns the mode for kind.
func Builtin(kind Kind) Mode { return builtin{kind: kind} }

func (m builtin) Name() string { return m.kind.String() }

func (m builtin) Target() IdataTarget {
	switch m.kind {
	case KindPrior:
		return TargetPrior
	case KindPosterior:
		return TargetPosterior
	default:
		return TargetLogLikelihood
	}
}

func (m builtin) Fit(ctx context.Context, env Env) (Output, error) {
	switch m.kind {
	case KindPrior:
		return fitHMC(ctx, env, m.Name(), 0)
	case KindPosterior:
		return fitHMC(ctx, env, m.Name(), 1)
	case KindKfold:
		return fitKfold(ctx, env, m.Name())
	}
	return Output{}, errors.InternalError(fmt.Sprintf("no fit for mode kind %d", int(m.kind)))
}

// fitHMC samples once with the likelihood flag forced.
func fitHMC(ctx context.Context, env Env, mode string, likelihood int) (Output, error) {
	job := env.Config.Name()
	base, err := env.StanInput()
	if err != nil {
		return Output{}, err
	}
	program, err := env.Program()
	if err != nil {
		return Output{}, err
	}
	opts, err := env.Config.SampleOptionsFor(mode)
	if err != nil {
		return Output{}, err
	}
	input := base.With(stan.Input{stan.KeyLikelihood: likelihood})

	env.logger().Info("sampling", "job", job, "mode", mode, "stan_file", program.Name)
	c, err := env.Sampler.Sample(ctx, program, input, opts)
	if err != nil {
		return Output{}, errors.SamplerError(job, mode, err)
	}
	if c == nil {
		return Output{}, errors.SamplerError(job, mode, fmt.Errorf("sampler returned no draws"))
	}
	return Output{Draws: c}, nil
}
