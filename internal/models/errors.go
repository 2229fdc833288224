package models

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError reports missing or insufficient user input. It is
// user-correctable and never reaches a backend.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConfigurationError reports a backend that cannot be used as configured,
// typically a missing cloud credential.
type ConfigurationError struct {
	Backend string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s backend not configured: %s", e.Backend, e.Message)
}

// BackendError wraps a transport or API failure from a generation backend.
// Unreachable is set when the backend could not be contacted at all.
type BackendError struct {
	Backend     string
	Status      int
	Unreachable bool
	Message     string
	Err         error
}

func (e *BackendError) Error() string {
	switch {
	case e.Unreachable:
		return fmt.Sprintf("%s backend unreachable: %s", e.Backend, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s backend returned HTTP %d: %s", e.Backend, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s backend error: %s", e.Backend, e.Message)
	}
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// ParseError reports content that could not be decoded: a corrupt upload or,
// in strict mode, a model reply that is not JSON.
type ParseError struct {
	Source  string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse %s: %s: %v", e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Source, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type UnsupportedFormatError struct {
	Filename string
	Format   string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("unsupported file type for %q: only PDF and DOCX are accepted", e.Filename)
	}
	return fmt.Sprintf("unsupported file type %q for %q: only PDF and DOCX are accepted", e.Format, e.Filename)
}

// RateLimitError reports a request refused by the per-client or global limit.
type RateLimitError struct {
	Scope      string
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return e.Message
}

var ErrNotFound = errors.New("record not found")

// ErrorKind names the taxonomy entry of err, or "internal" when it has none.
func ErrorKind(err error) string {
	var (
		validationErr  *ValidationError
		configErr      *ConfigurationError
		backendErr     *BackendError
		parseErr       *ParseError
		unsupportedErr *UnsupportedFormatError
		rateLimitErr   *RateLimitError
	)

	switch {
	case errors.As(err, &validationErr):
		return "validation_error"
	case errors.As(err, &unsupportedErr):
		return "unsupported_format"
	case errors.As(err, &parseErr):
		return "parse_error"
	case errors.As(err, &configErr):
		return "configuration_error"
	case errors.As(err, &backendErr):
		return "backend_error"
	case errors.As(err, &rateLimitErr):
		return "rate_limited"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
