package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teddygroves/bibat/adapters/idatastore"
	"github.com/teddygroves/bibat/adapters/ledger"
	"github.com/teddygroves/bibat/domain/idata"
	"github.com/teddygroves/bibat/domain/run"
	"github.com/teddygroves/bibat/internal/errors"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("BIBAT_LOG_LEVEL", "error")
	var out, errOut bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestScaffoldFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	answers := filepath.Join(dir, "answers.yml")
	require.NoError(t, os.WriteFile(answers, []byte("default_context:\n  project_name: Cli Study\n"), 0o644))

	out, err := execute(t, "", "--config-file", answers, "--output-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "cli_study"))
	assert.FileExists(t, filepath.Join(dir, "cli_study", "inferences", "interaction", "config.toml"))
}

func TestScaffoldInteractiveDefaults(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, strings.Repeat("\n", 9), "--output-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome")
	assert.DirExists(t, filepath.Join(dir, "project_name"))
}

func TestFitRejectsUnknownFormat(t *testing.T) {
	_, err := execute(t, "", "fit", "--project-root", t.TempDir(), "--format", "parquet")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestSummarizePrintsTableAndELPD(t *testing.T) {
	mu, err := idata.NewVariable([]string{idata.DimChain, idata.DimDraw}, []int{2, 3}, nil,
		[]float64{1, 2, 3, 2, 3, 4})
	require.NoError(t, err)
	half := -0.6931471805599453
	llik, err := idata.NewVariable([]string{idata.DimChain, idata.DimDraw, "observation"}, []int{1, 2, 2},
		map[string][]string{"observation": {"a", "b"}}, []float64{half, half, half, half})
	require.NoError(t, err)
	data := &idata.InferenceData{Groups: map[string]*idata.Group{
		idata.GroupPosterior:     {Variables: map[string]*idata.Variable{"mu": mu}},
		idata.GroupLogLikelihood: {Variables: map[string]*idata.Variable{"llik_posterior": llik}},
	}}
	path, err := idatastore.New().Save(t.TempDir(), data, idata.FormatJSON)
	require.NoError(t, err)

	out, err := execute(t, "", "summarize", path)
	require.NoError(t, err)
	assert.Contains(t, out, "rhat")
	assert.Contains(t, out, "mu")
	assert.Contains(t, out, "llik_posterior: elpd -1.39 (se 0.00)")

	_, err = execute(t, "", "summarize", path, "--group", "prior")
	assert.True(t, errors.IsNotFound(err))
}

func TestRunsListsLedger(t *testing.T) {
	url := "sqlite://" + filepath.Join(t.TempDir(), "runs.db")
	l, err := ledger.Open(context.Background(), url, nil)
	require.NoError(t, err)
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := run.NewManifest("interaction", started)
	m.ConfigName = "interaction"
	m.StanFile = "linear-regression.stan"
	m.PreparedData = "interaction"
	m.Modes = []string{"posterior"}
	m.Format = "json"
	m.Fingerprint = run.NewFingerprint([]byte("name = 'interaction'"), []byte("{}"), 1234, "test")
	m.Succeed("inferences/interaction/idata.json", started.Add(time.Minute))
	require.NoError(t, l.Record(context.Background(), m))
	require.NoError(t, l.Close())

	out, err := execute(t, "", "runs", "--ledger", url)
	require.NoError(t, err)
	assert.Contains(t, out, "interaction")
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "1m0s")

	t.Setenv("BIBAT_LEDGER_URL", "")
	_, err = execute(t, "", "runs")
	assert.True(t, errors.IsConfigurationError(err))
}
