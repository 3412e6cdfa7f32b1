package cmdstan

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"

	"github.com/teddygroves/bibat/domain/stan"
	"github.com/teddygroves/bibat/internal/errors"
)

// Compiler builds Stan programs with CmdStan's makefile.
type Compiler struct {
	CmdStanPath string
	Make        string
	Logger      *slog.Logger
}

// Executable is the path CmdStan builds program into.
func Executable(program stan.Program) string {
	exe := strings.TrimSuffix(program.Path, ".stan")
	if runtime.GOOS == "windows" {
		exe += ".exe"
	}
	return exe
}

// NeedsCompile reports whether the executable is missing or older than
// the Stan source.
func NeedsCompile(program stan.Program) (bool, error) {
	src, err := os.Stat(program.Path)
	if err != nil {
		return false, errors.NotFound(fmt.Sprintf("stan program %s", program.Path))
	}
	exe, err := os.Stat(Executable(program))
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, errors.StorageError("checking executable", err)
	}
	return exe.ModTime().Before(src.ModTime()), nil
}

// Ensure compiles program when needed and returns the executable path.
func (c *Compiler) Ensure(ctx context.Context, program stan.Program) (string, error) {
	exe := Executable(program)
	needed, err := NeedsCompile(program)
	if err != nil {
		return "", err
	}
	if !needed {
		return exe, nil
	}
	if c.CmdStanPath == "" {
		return "", errors.ConfigurationError("CMDSTAN", fmt.Sprintf("%s needs compiling but no CmdStan installation is configured", program.Name))
	}
	args := MakeArgs(c.CmdStanPath, exe, program)
	makeCmd := c.Make
	if makeCmd == "" {
		makeCmd = "make"
	}
	c.logger().Info("compiling stan program", "program", program.Name, "executable", exe)

	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, makeCmd, args...)
	command.Stdout = &stdout
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		return "", fmt.Errorf("compiling %s: %w (stderr: %s)", program.Name, err, strings.TrimSpace(stderr.String()))
	}
	return exe, nil
}

func (c *Compiler) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// MakeArgs builds the make invocation: cpp options become KEY=VALUE
// variables and stanc options are collected into STANCFLAGS.
func MakeArgs(cmdstanPath, exe string, program stan.Program) []string {
	args := []string{"-C", cmdstanPath, exe}
	for _, k := range sortedKeys(program.CppOptions) {
		args = append(args, fmt.Sprintf("%s=%v", k, program.CppOptions[k]))
	}
	var flags []string
	for _, k := range sortedKeys(program.StancOptions) {
		switch v := program.StancOptions[k].(type) {
		case bool:
			if v {
				flags = append(flags, "--"+k)
			}
		default:
			flags = append(flags, fmt.Sprintf("--%s=%v", k, v))
		}
	}
	if len(flags) > 0 {
		args = append(args, "STANCFLAGS="+strings.Join(flags, " "))
	}
	return args
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
