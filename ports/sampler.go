package ports

import (
	"context"

	"github.com/teddygroves/bibat/domain/draws"
	"github.com/teddygroves/bibat/domain/stan"
)

// Sampler runs an external MCMC sampler. Implementations block until every
// chain has finished and return the draws of all chains.
type Sampler interface {
	Sample(ctx context.Context, program stan.Program, input stan.Input, opts stan.SampleOptions) (*draws.Collection, error)
}

// ProgramResolver locates Stan programs under an explicit base directory.
type ProgramResolver interface {
	// Exists reports a configuration error naming the file and the
	// directory searched when stanFile is not a regular file.
	Exists(stanFile string) error
	// Resolve returns a handle usable by a Sampler.
	Resolve(stanFile string) (stan.Program, error)
}
