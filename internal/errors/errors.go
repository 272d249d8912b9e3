package errors

import (
	"errors"
	"fmt"
)

// DocError is the structured error type for docsearch.
// It carries enough context for logging, retry decisions and user presentation.
type DocError struct {
	// Code is the unique error code (e.g., "ERR_205_CORRUPT_STATE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Sentinels for errors.Is matching. Matching is by code, so any DocError
// carrying the same code satisfies errors.Is against these.
var (
	ErrConfiguration     = &DocError{Code: ErrCodeConfigInvalid}
	ErrNotInitialized    = &DocError{Code: ErrCodeNotInitialized}
	ErrCorruptState      = &DocError{Code: ErrCodeCorruptState}
	ErrDimensionMismatch = &DocError{Code: ErrCodeDimensionMismatch}
	ErrUnsupportedType   = &DocError{Code: ErrCodeExtractionUnsupported}
	ErrReadFailure       = &DocError{Code: ErrCodeExtractionRead}
	ErrQueryEmpty        = &DocError{Code: ErrCodeQueryEmpty}
	ErrInvalidInput      = &DocError{Code: ErrCodeInvalidInput}
)

// Error implements the error interface.
func (e *DocError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *DocError) Unwrap() error {
	return e.Cause
}

// Is matches another DocError by code.
func (e *DocError) Is(target error) bool {
	if t, ok := target.(*DocError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *DocError) WithDetail(key, value string) *DocError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *DocError) WithSuggestion(suggestion string) *DocError {
	e.Suggestion = suggestion
	return e
}

// New creates a new DocError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *DocError {
	return &DocError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a DocError from an existing error.
// The error's message becomes the DocError message.
func Wrap(code string, err error) *DocError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a ConfigurationError.
func ConfigError(message string, cause error) *DocError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// CorruptStateError reports persisted artifacts that disagree with each other.
func CorruptStateError(message string, cause error) *DocError {
	return New(ErrCodeCorruptState, message, cause).
		WithSuggestion("inspect or remove the index directory and re-run 'docsearch index'")
}

// NotInitializedError reports an index used before load_or_create.
func NotInitializedError(op string) *DocError {
	return New(ErrCodeNotInitialized, op+" called before the index was initialized", nil)
}

// DimensionMismatchError reports a vector whose length disagrees with the index.
func DimensionMismatchError(expected, got int) *DocError {
	return New(ErrCodeDimensionMismatch,
		fmt.Sprintf("dimension mismatch: expected %d, got %d", expected, got), nil).
		WithDetail("expected", fmt.Sprint(expected)).
		WithDetail("got", fmt.Sprint(got))
}

// IOError creates an I/O-related error.
func IOError(message string, cause error) *DocError {
	return New(ErrCodeFileNotFound, message, cause)
}

// NetworkError creates a network-related error.
// Network errors are typically retryable.
func NetworkError(message string, cause error) *DocError {
	return New(ErrCodeNetworkTimeout, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *DocError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *DocError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var de *DocError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var de *DocError
	if errors.As(err, &de) {
		return de.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a DocError anywhere in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var de *DocError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
