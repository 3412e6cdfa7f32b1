package scaffold

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teddygroves/bibat/domain/inference"
	"github.com/teddygroves/bibat/internal/errors"
)

func TestWizardFieldsAreValid(t *testing.T) {
	names := map[string]bool{}
	for _, f := range WizardFields() {
		assert.NoError(t, f.Validate(), f.FieldName())
		assert.False(t, names[f.FieldName()], "duplicate field %s", f.FieldName())
		names[f.FieldName()] = true
	}
}

func TestFieldValidation(t *testing.T) {
	assert.Error(t, StringField{Name: "x", Prompt: "x?"}.Validate())
	assert.NoError(t, StringField{Name: "x", Prompt: "x?", DefaultFunc: func(Answers) string { return "d" }}.Validate())

	assert.Error(t, ChoiceField{Name: "c", Options: []string{"a", "b"}, Default: "z"}.Validate())
	assert.Error(t, ChoiceField{Name: "c", Options: []string{"a", "b"}}.Validate())
	assert.Error(t, ChoiceField{Name: "c", Default: "a"}.Validate())
	assert.NoError(t, ChoiceField{Name: "c", Options: []string{"a", "b"}, Default: "b"}.Validate())
}

func TestPrompterDefaultsAndRetries(t *testing.T) {
	in := strings.NewReader("\nGPL\n2\n")
	var out bytes.Buffer
	p := NewPrompter(in, &out)

	name, err := p.Ask(StringField{Name: "project_name", Prompt: "Name?", Default: "Project Name"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Project Name", name)

	license, err := p.Ask(WizardFields()[5], Answers{})
	require.NoError(t, err)
	assert.Equal(t, LicenseBSD3, license)
	assert.Contains(t, out.String(), `"GPL" is not a valid choice`)

	_, err = p.Ask(StringField{Name: "x", Prompt: "x?", Default: "d"}, nil)
	assert.Error(t, err, "input is exhausted")
}

func TestAskAllUsesEarlierAnswers(t *testing.T) {
	in := strings.NewReader("My Study\nAda\nada@example.com\n\n\n\n\nn\n\n")
	answers, err := NewPrompter(in, &bytes.Buffer{}).AskAll(WizardFields())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", answers["coc_contact"])
	assert.Equal(t, LicenseMIT, answers["open_source_license"])
	assert.Equal(t, DocsQuarto, answers["docs_format"])
	assert.Equal(t, "n", answers["create_tests_directory"])

	ctx := NewContext(answers, "1.0.0")
	assert.Equal(t, "my_study", ctx["repo_name"])
	assert.Equal(t, "1.0.0", ctx["bibat_version"])
	assert.False(t, ctx.Is("create_tests_directory"))
	assert.True(t, ctx.Is("create_dotgithub_directory"))
}

func TestLoadContextFile(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "nested.yml")
	require.NoError(t, os.WriteFile(nested, []byte(`default_context:
  project_name: "Test Project"
  author_email: "t@example.com"
  docs_format: Sphinx
`), 0o644))

	ctx, err := LoadContextFile(nested, WizardFields(), "dev")
	require.NoError(t, err)
	assert.Equal(t, "test_project", ctx["repo_name"])
	assert.Equal(t, DocsSphinx, ctx["docs_format"])
	assert.Equal(t, LicenseMIT, ctx["open_source_license"])
	assert.Equal(t, "t@example.com", ctx["coc_contact"])

	flat := filepath.Join(dir, "flat.yml")
	require.NoError(t, os.WriteFile(flat, []byte("project_name: Flat\nopen_source_license: GPL\n"), 0o644))
	_, err = LoadContextFile(flat, WizardFields(), "dev")
	assert.True(t, errors.IsConfigurationError(err))

	_, err = LoadContextFile(filepath.Join(dir, "absent.yml"), WizardFields(), "dev")
	assert.True(t, errors.IsNotFound(err))
}

func defaultContext(overrides Answers) Context {
	answers := Answers{}
	for _, f := range WizardFields() {
		answers[f.FieldName()] = f.DefaultFor(answers)
	}
	for k, v := range overrides {
		answers[k] = v
	}
	return NewContext(answers, "test")
}

func TestRenderDefaultProject(t *testing.T) {
	out := t.TempDir()
	dir, err := Render(defaultContext(nil), out, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "project_name"), dir)

	readme, err := os.ReadFile(filepath.Join(dir, "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "# Project Name")
	assert.NoFileExists(t, filepath.Join(dir, "README.md.tmpl"))

	license, err := os.ReadFile(filepath.Join(dir, "LICENSE"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(license), "MIT License"))

	assert.FileExists(t, filepath.Join(dir, "docs", "report.qmd"))
	assert.NoFileExists(t, filepath.Join(dir, "docs", "conf.py"))
	assert.NoDirExists(t, filepath.Join(dir, "docs", "_static"))
	assert.DirExists(t, filepath.Join(dir, "tests"))
	assert.DirExists(t, filepath.Join(dir, ".github"))
	assert.FileExists(t, filepath.Join(dir, "data", "raw", "raw_measurements.csv"))

	for _, job := range []string{"interaction", "no_interaction", "fake_interaction"} {
		doc, err := inference.Decode(mustRead(t, filepath.Join(dir, "inferences", job, inference.ConfigFile)))
		require.NoError(t, err, job)
		assert.Equal(t, job, doc.Name)
		assert.Equal(t, "linear-regression.stan", doc.StanFile)
		assert.FileExists(t, filepath.Join(dir, "src", "stan", doc.StanFile))
	}

	_, err = Render(defaultContext(nil), out, nil)
	assert.True(t, errors.IsConfigurationError(err), "existing project is not overwritten")
}

func TestRenderPrunesOptOuts(t *testing.T) {
	dir, err := Render(defaultContext(Answers{
		"docs_format":                DocsNone,
		"create_tests_directory":     "n",
		"create_dotgithub_directory": "n",
		"open_source_license":        LicenseNone,
	}), t.TempDir(), nil)
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(dir, "docs"))
	assert.NoDirExists(t, filepath.Join(dir, "tests"))
	assert.NoDirExists(t, filepath.Join(dir, ".github"))
	assert.NoFileExists(t, filepath.Join(dir, "LICENSE"))
}

func TestRenderSphinxKeepsSphinxFiles(t *testing.T) {
	dir, err := Render(defaultContext(Answers{"docs_format": DocsSphinx, "open_source_license": LicenseBSD3}), t.TempDir(), nil)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "docs", "conf.py"))
	assert.NoFileExists(t, filepath.Join(dir, "docs", "report.qmd"))

	license, err := os.ReadFile(filepath.Join(dir, "LICENSE"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(license), "BSD 3-Clause License"))
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return raw
}
