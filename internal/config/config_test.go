package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teddygroves/bibat/domain/idata"
	"github.com/teddygroves/bibat/internal/errors"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"BIBAT_PROJECT_ROOT", "CMDSTAN", "BIBAT_MAKE", "BIBAT_IDATA_FORMAT",
		"BIBAT_CONTINUE_ON_ERROR", "BIBAT_LEDGER_URL", "BIBAT_LOG_LEVEL", "BIBAT_LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.Project.Root)
	assert.Equal(t, "make", cfg.CmdStan.Make)
	assert.Equal(t, idata.FormatJSON, cfg.Fit.Format)
	assert.False(t, cfg.Fit.ContinueOnError)
	assert.Empty(t, cfg.Ledger.URL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, filepath.Join(".", "src", "stan"), cfg.Project.StanDir())
	assert.Equal(t, filepath.Join(".", "data", "prepared"), cfg.Project.PreparedDataDir())
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("BIBAT_PROJECT_ROOT", "/work/project")
	t.Setenv("CMDSTAN", "/opt/cmdstan")
	t.Setenv("BIBAT_IDATA_FORMAT", "Directory")
	t.Setenv("BIBAT_CONTINUE_ON_ERROR", "true")
	t.Setenv("BIBAT_LOG_LEVEL", "DEBUG")
	t.Setenv("BIBAT_LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/work/project", cfg.Project.Root)
	assert.Equal(t, "/opt/cmdstan", cfg.CmdStan.Path)
	assert.Equal(t, idata.FormatDirectory, cfg.Fit.Format)
	assert.True(t, cfg.Fit.ContinueOnError)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, filepath.Join("/work/project", "inferences"), cfg.Project.InferencesDir())
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"BIBAT_IDATA_FORMAT":      "netcdf",
		"BIBAT_CONTINUE_ON_ERROR": "sometimes",
		"BIBAT_LOG_LEVEL":         "trace",
		"BIBAT_LOG_FORMAT":        "xml",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
			assert.True(t, errors.IsConfigurationError(err))
			assert.Contains(t, err.Error(), key)
		})
	}
}
