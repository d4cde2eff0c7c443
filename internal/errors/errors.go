package errors

import (
	"errors"
	"fmt"
)

// LoaderError is the structured error type used across loadermcp.
// The Message is safe to show to a protocol client; Cause is for logs only.
type LoaderError struct {
	// Code is the unique error code (e.g., "ERR_302_RETRIEVAL_UNAVAILABLE").
	Code string

	// Message is the caller-facing message.
	Message string

	Category Category
	Severity Severity

	// Details contains additional caller-safe context.
	Details map[string]string

	// Cause is the underlying error. Never sent over the wire.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable hint for CLI users.
	Suggestion string
}

// Error implements the error interface.
func (e *LoaderError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *LoaderError) Unwrap() error {
	return e.Cause
}

// Is matches another LoaderError by code.
func (e *LoaderError) Is(target error) bool {
	if t, ok := target.(*LoaderError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *LoaderError) WithDetail(key, value string) *LoaderError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *LoaderError) WithSuggestion(suggestion string) *LoaderError {
	e.Suggestion = suggestion
	return e
}

// Sentinels for errors.Is checks. Compare by code, so any LoaderError with the
// same code matches regardless of message or cause.
var (
	ErrEmbeddingUnavailable = &LoaderError{Code: ErrCodeEmbeddingUnavailable}
	ErrRetrievalUnavailable = &LoaderError{Code: ErrCodeRetrievalUnavailable}
	ErrInvalidSessionState  = &LoaderError{Code: ErrCodeInvalidSessionState}
	ErrValidation           = &LoaderError{Code: ErrCodeInvalidInput}
	ErrInternal             = &LoaderError{Code: ErrCodeInternal}
	ErrCancelled            = &LoaderError{Code: ErrCodeRequestCancelled}
)

// New creates a new LoaderError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *LoaderError {
	return &LoaderError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a LoaderError from an existing error.
// The error text becomes the message, so only use it for errors that are safe
// to surface.
func Wrap(code string, err error) *LoaderError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *LoaderError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation error. All validation codes
// still match ErrValidation via IsValidation.
func ValidationError(message string, cause error) *LoaderError {
	return New(ErrCodeInvalidInput, message, cause)
}

// EmbeddingUnavailable wraps a provider failure.
func EmbeddingUnavailable(cause error) *LoaderError {
	return New(ErrCodeEmbeddingUnavailable, "embedding provider unavailable", cause)
}

// RetrievalUnavailable wraps a vector store failure.
func RetrievalUnavailable(cause error) *LoaderError {
	return New(ErrCodeRetrievalUnavailable, "vector store unavailable", cause).
		WithSuggestion("Check that the vector store is running, then retry.")
}

// InvalidSessionState reports a method received in a state that does not permit it.
func InvalidSessionState(method, state string) *LoaderError {
	return New(ErrCodeInvalidSessionState,
		fmt.Sprintf("method %q not allowed in state %s", method, state), nil).
		WithDetail("state", state)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *LoaderError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var le *LoaderError
	if errors.As(err, &le) {
		return le.Retryable
	}
	return false
}

// IsValidation reports whether err is any validation-category error.
func IsValidation(err error) bool {
	return GetCategory(err) == CategoryValidation
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var le *LoaderError
	if errors.As(err, &le) {
		return le.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a LoaderError anywhere in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var le *LoaderError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// GetCategory extracts the category from a LoaderError anywhere in the chain.
func GetCategory(err error) Category {
	var le *LoaderError
	if errors.As(err, &le) {
		return le.Category
	}
	return ""
}
