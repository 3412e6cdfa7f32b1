package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/teddygroves/bibat/domain/idata"
	"github.com/teddygroves/bibat/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Project ProjectConfig
	CmdStan CmdStanConfig
	Fit     FitConfig
	Ledger  LedgerConfig
	Log     LogConfig
}

// ProjectConfig locates a bibat project.
type ProjectConfig struct {
	Root string
}

// CmdStanConfig holds compilation settings
type CmdStanConfig struct {
	Path string
	Make string
}

// FitConfig holds batch fitting settings
type FitConfig struct {
	Format          idata.Format
	ContinueOnError bool
}

// LedgerConfig holds the run ledger connection; an empty URL disables it.
type LedgerConfig struct {
	URL string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string
}

// StanDir is where Stan programs live.
func (p ProjectConfig) StanDir() string { return filepath.Join(p.Root, "src", "stan") }

// InferencesDir holds one directory per inference job.
func (p ProjectConfig) InferencesDir() string { return filepath.Join(p.Root, "inferences") }

// RawDataDir holds raw measurement files.
func (p ProjectConfig) RawDataDir() string { return filepath.Join(p.Root, "data", "raw") }

// PreparedDataDir holds prepared datasets.
func (p ProjectConfig) PreparedDataDir() string { return filepath.Join(p.Root, "data", "prepared") }

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Project: ProjectConfig{
			Root: getEnvOrDefault("BIBAT_PROJECT_ROOT", "."),
		},
		CmdStan: CmdStanConfig{
			Path: getEnvOrDefault("CMDSTAN", ""),
			Make: getEnvOrDefault("BIBAT_MAKE", "make"),
		},
		Ledger: LedgerConfig{
			URL: getEnvOrDefault("BIBAT_LEDGER_URL", ""),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnvOrDefault("BIBAT_LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnvOrDefault("BIBAT_LOG_FORMAT", "text")),
		},
	}

	format, err := idata.ParseFormat(getEnvOrDefault("BIBAT_IDATA_FORMAT", string(idata.FormatJSON)))
	if err != nil {
		return nil, errors.ConfigurationError("BIBAT_IDATA_FORMAT", err.Error())
	}
	config.Fit.Format = format

	continueOnError, err := getEnvBool("BIBAT_CONTINUE_ON_ERROR", false)
	if err != nil {
		return nil, err
	}
	config.Fit.ContinueOnError = continueOnError

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Project.Root == "" {
		return errors.ConfigurationError("BIBAT_PROJECT_ROOT", "project root is required")
	}
	if config.CmdStan.Make == "" {
		return errors.ConfigurationError("BIBAT_MAKE", "make command is required")
	}
	switch config.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.ConfigurationError("BIBAT_LOG_LEVEL", "want one of debug, info, warn, error")
	}
	switch config.Log.Format {
	case "text", "json":
	default:
		return errors.ConfigurationError("BIBAT_LOG_FORMAT", "want text or json")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool is strict: a set but unparseable value is an error rather
// than a silent default.
func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return false, errors.ConfigurationError(key, "not a boolean: "+value)
	}
	return boolValue, nil
}
