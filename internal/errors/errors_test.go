package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsInnerCode(t *testing.T) {
	inner := ConfigurationError("stan_file", "missing.stan is not a file in src/stan")
	wrapped := Wrap(inner, "loading inference example")

	assert.Equal(t, CodeConfigInvalid, GetCode(wrapped))
	assert.True(t, IsConfigurationError(wrapped))
	assert.Contains(t, wrapped.Error(), "stan_file")
	assert.True(t, stderrors.Is(wrapped, inner))
}

func TestWrapPlainErrorIsInternal(t *testing.T) {
	wrapped := Wrap(fmt.Errorf("boom"), "context")
	assert.Equal(t, CodeInternalError, GetCode(wrapped))
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestCodeThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("job a: %w", SamplerError("a", "kfold", fmt.Errorf("exit status 1")))
	assert.True(t, IsSamplerError(err))
	assert.False(t, IsUnknownMode(err))
	assert.Equal(t, "UNKNOWN", GetCode(fmt.Errorf("plain")))
}

func TestDataIntegrityListsEveryViolation(t *testing.T) {
	err := DataIntegrity("measurements", []string{"missing column \"y\"", "column \"x1\" has type string, want float"})
	assert.True(t, IsDataIntegrity(err))
	assert.Contains(t, err.Error(), "2 violation(s)")
	assert.Contains(t, err.Error(), "missing column \"y\"")
	assert.Contains(t, err.Error(), "column \"x1\"")
}

func TestUnknownNamesListAlternatives(t *testing.T) {
	err := UnknownMode("prio", []string{"kfold", "posterior", "prior"})
	assert.True(t, IsUnknownMode(err))
	assert.Contains(t, err.Error(), "\"prio\"")
	assert.Contains(t, err.Error(), "kfold, posterior, prior")

	adapterErr := UnknownAdapter("get_x", nil)
	assert.True(t, IsUnknownAdapter(adapterErr))
}
