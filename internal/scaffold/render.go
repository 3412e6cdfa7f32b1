package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/teddygroves/bibat/internal/errors"
)

//go:embed all:templates/project
var projectFS embed.FS

const (
	templateRoot   = "templates/project"
	templateSuffix = ".tmpl"
)

// Paths only Sphinx or only Quarto documentation needs.
var (
	SphinxOnlyPaths = []string{"docs/_build", "docs/_static", "docs/_templates", "docs/conf.py", "docs/index.rst", "docs/make.bat", "docs/Makefile"}
	QuartoOnlyPaths = []string{"docs/report.qmd", "docs/bibliography.bib"}
)

// Render writes a new project into outDir/<repo_name> and prunes it with
// PostGenerate. An existing project directory is never overwritten.
func Render(ctx Context, outDir string, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	repo := ctx["repo_name"]
	if repo == "" || strings.ContainsAny(repo, `/\`) || repo == "." || repo == ".." {
		return "", errors.ConfigurationError("repo_name", fmt.Sprintf("%q is not a usable directory name", repo))
	}
	dir := filepath.Join(outDir, repo)
	if _, err := os.Stat(dir); err == nil {
		return "", errors.ConfigurationError("repo_name", fmt.Sprintf("%s already exists", dir))
	}

	// Step 1: Render into a staging directory
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", errors.StorageError("creating output directory", err)
	}
	staging, err := os.MkdirTemp(outDir, "."+repo+"-")
	if err != nil {
		return "", errors.StorageError("creating staging directory", err)
	}
	defer os.RemoveAll(staging)

	root, err := fs.Sub(projectFS, templateRoot)
	if err != nil {
		return "", err
	}
	if err := renderTree(root, ctx, staging); err != nil {
		return "", err
	}

	// Step 2: Prune according to the answers
	if err := PostGenerate(staging, ctx); err != nil {
		return "", err
	}

	// Step 3: Move into place
	if err := os.Rename(staging, dir); err != nil {
		return "", errors.StorageError("moving project into place", err)
	}
	logger.Info("created project", "dir", dir)
	return dir, nil
}

func renderTree(root fs.FS, ctx Context, dest string) error {
	return fs.WalkDir(root, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(dest, filepath.FromSlash(p))
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		body, err := fs.ReadFile(root, p)
		if err != nil {
			return err
		}
		if strings.HasSuffix(p, templateSuffix) {
			target = strings.TrimSuffix(target, templateSuffix)
			body, err = renderFile(p, body, ctx)
			if err != nil {
				return err
			}
		}
		return os.WriteFile(target, body, 0o644)
	})
}

func renderFile(name string, body []byte, ctx Context) ([]byte, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(body))
	if err != nil {
		return nil, errors.Wrapf(err, "parsing template %s", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]string(ctx)); err != nil {
		return nil, errors.Wrapf(err, "rendering template %s", name)
	}
	return buf.Bytes(), nil
}

// RemovedPaths lists the project-relative paths the answers opt out of.
func RemovedPaths(ctx Context) []string {
	var out []string
	docs := ctx["docs_format"]
	if docs == DocsNone {
		out = append(out, "docs")
	}
	if !ctx.Is("create_tests_directory") {
		out = append(out, "tests")
	}
	if !ctx.Is("create_dotgithub_directory") {
		out = append(out, ".github")
	}
	if docs != DocsSphinx && docs != DocsNone {
		out = append(out, SphinxOnlyPaths...)
	}
	if docs != DocsQuarto && docs != DocsNone {
		out = append(out, QuartoOnlyPaths...)
	}
	if ctx["open_source_license"] == LicenseNone {
		out = append(out, "LICENSE")
	}
	return out
}

// PostGenerate removes RemovedPaths from a rendered project. Paths that
// do not exist are skipped.
func PostGenerate(dir string, ctx Context) error {
	for _, p := range RemovedPaths(ctx) {
		if err := os.RemoveAll(filepath.Join(dir, filepath.FromSlash(p))); err != nil {
			return errors.StorageError(fmt.Sprintf("removing %s", p), err)
		}
	}
	return nil
}
