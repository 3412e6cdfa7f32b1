// Package cmdstan runs Stan programs through a CmdStan installation:
// locating and compiling programs, writing Stan JSON input, invoking the
// sampler and parsing its CSV output.
package cmdstan

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/teddygroves/bibat/domain/stan"
	"github.com/teddygroves/bibat/internal/errors"
)

// ProgramResolver finds Stan programs in StanDir.
type ProgramResolver struct {
	StanDir string
}

// NewProgramResolver resolves programs under <projectRoot>/src/stan.
func NewProgramResolver(projectRoot string) *ProgramResolver {
	return &ProgramResolver{StanDir: filepath.Join(projectRoot, "src", "stan")}
}

// Exists checks that stanFile is a regular file in StanDir.
func (r *ProgramResolver) Exists(stanFile string) error {
	path := filepath.Join(r.StanDir, filepath.FromSlash(stanFile))
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return errors.ConfigurationError("stan_file", fmt.Sprintf("%s is not a file in %s", stanFile, r.StanDir))
	}
	return nil
}

// Resolve returns a handle with an absolute source path.
func (r *ProgramResolver) Resolve(stanFile string) (stan.Program, error) {
	if err := r.Exists(stanFile); err != nil {
		return stan.Program{}, err
	}
	path, err := filepath.Abs(filepath.Join(r.StanDir, filepath.FromSlash(stanFile)))
	if err != nil {
		return stan.Program{}, errors.Wrapf(err, "resolving %s", stanFile)
	}
	return stan.Program{Name: stanFile, Path: path}, nil
}
