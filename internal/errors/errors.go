package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context. The code of the innermost
// AppError is kept so callers can still classify the failure.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the error code if err wraps an AppError, otherwise "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}

// Join combines several errors, mirroring the standard library.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// Predefined error codes
const (
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeUnknownMode     = "UNKNOWN_MODE"
	CodeUnknownAdapter  = "UNKNOWN_ADAPTER"
	CodeSamplerError    = "SAMPLER_ERROR"
	CodeDataIntegrity   = "DATA_INTEGRITY"
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeStorageError    = "STORAGE_ERROR"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

// ConfigurationError reports an invalid or incomplete job description.
// field names the offending configuration key.
func ConfigurationError(field, message string) *AppError {
	return New(CodeConfigInvalid, fmt.Sprintf("invalid configuration field %q: %s", field, message))
}

// UnknownMode reports a fitting mode name with no registry entry.
func UnknownMode(name string, known []string) *AppError {
	return New(CodeUnknownMode, fmt.Sprintf("unknown fitting mode %q (available: %s)", name, strings.Join(known, ", ")))
}

// UnknownAdapter reports a Stan input function name with no registry entry.
func UnknownAdapter(name string, known []string) *AppError {
	return New(CodeUnknownAdapter, fmt.Sprintf("unknown stan input function %q (available: %s)", name, strings.Join(known, ", ")))
}

// SamplerError reports a failed or unusable sampler invocation.
func SamplerError(job, mode string, cause error) *AppError {
	return &AppError{
		Code:    CodeSamplerError,
		Message: fmt.Sprintf("sampler failed for inference %q in mode %q", job, mode),
		Cause:   cause,
	}
}

// DataIntegrity aggregates every schema violation found in one dataset.
func DataIntegrity(source string, violations []string) *AppError {
	return New(CodeDataIntegrity, fmt.Sprintf("%s failed validation with %d violation(s):\n  - %s",
		source, len(violations), strings.Join(violations, "\n  - ")))
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func StorageError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeStorageError,
		Message: message,
		Cause:   cause,
	}
}

// IsConfigurationError reports whether err is a CONFIG_INVALID error.
func IsConfigurationError(err error) bool { return HasCode(err, CodeConfigInvalid) }

// IsUnknownMode reports whether err is an UNKNOWN_MODE error.
func IsUnknownMode(err error) bool { return HasCode(err, CodeUnknownMode) }

// IsUnknownAdapter reports whether err is an UNKNOWN_ADAPTER error.
func IsUnknownAdapter(err error) bool { return HasCode(err, CodeUnknownAdapter) }

// IsSamplerError reports whether err is a SAMPLER_ERROR.
func IsSamplerError(err error) bool { return HasCode(err, CodeSamplerError) }

// IsDataIntegrity reports whether err is a DATA_INTEGRITY error.
func IsDataIntegrity(err error) bool { return HasCode(err, CodeDataIntegrity) }

// IsNotFound reports whether err is a NOT_FOUND error.
func IsNotFound(err error) bool { return HasCode(err, CodeNotFound) }
