package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Domain errors represent business logic failures.
// They are grouped by how the pipeline reacts to them: transient errors are
// retried with backoff, validation errors fail a single document, fatal
// errors abort the whole run.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotConfigured indicates a required component has no configuration.
	ErrNotConfigured = errors.New("not configured")

	// ErrUnsupportedType indicates an unknown provider, source or OCR kind.
	ErrUnsupportedType = errors.New("unsupported type")

	// Transient errors.

	// ErrRateLimited indicates a provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates an external call exceeded its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrProviderUnavailable indicates a provider could not be reached
	// or answered with a server-side failure.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrSourceUnavailable indicates the document source could not be reached.
	// It is retried by the next batch run, never mid-document.
	ErrSourceUnavailable = errors.New("source unavailable")

	// Validation errors.

	// ErrInvalidInput indicates a provider rejected the request payload.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyDocument indicates every page was blank after cleaning.
	// It signals an OCR problem upstream and is never retried.
	ErrEmptyDocument = errors.New("empty document")

	// ErrSummaryFormat indicates the language model did not produce a
	// summary matching the schema, even after a stricter retry.
	ErrSummaryFormat = errors.New("summary format invalid")

	// ErrOCRFailure indicates the OCR adapter could not extract text.
	ErrOCRFailure = errors.New("ocr failure")

	// ErrEmbeddingProvider indicates a document's embedding step failed
	// terminally. No embeddings of that document are persisted.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// Fatal configuration errors.

	// ErrModelMismatch indicates the index was built with a different
	// embedding model than the one currently configured.
	ErrModelMismatch = errors.New("embedding model mismatch")

	// ErrMissingCredentials indicates a provider has no usable credentials.
	ErrMissingCredentials = errors.New("missing credentials")

	// Informational.

	// ErrNoRelevantContext indicates no stored chunk passed the relevance
	// threshold. The query engine reports this as a result, not a failure.
	ErrNoRelevantContext = errors.New("no sufficiently relevant context found")
)

// ErrorClass groups errors by the way the pipeline reacts to them.
type ErrorClass int

// Error classes.
const (
	ErrorClassUnknown ErrorClass = iota
	ErrorClassTransient
	ErrorClassValidation
	ErrorClassFatal
)

// String returns the string representation.
func (c ErrorClass) String() string {
	switch c {
	case ErrorClassTransient:
		return "transient"
	case ErrorClassValidation:
		return "validation"
	case ErrorClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Classify returns the class of err. Fatal wins over validation, which
// wins over transient, so a wrapped chain is classified by its most severe cause.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ErrorClassUnknown
	case errors.Is(err, ErrModelMismatch),
		errors.Is(err, ErrMissingCredentials),
		errors.Is(err, ErrNotConfigured):
		return ErrorClassFatal
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrEmptyDocument),
		errors.Is(err, ErrSummaryFormat),
		errors.Is(err, ErrOCRFailure),
		errors.Is(err, ErrEmbeddingProvider):
		return ErrorClassValidation
	case errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrProviderUnavailable),
		errors.Is(err, ErrSourceUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return ErrorClassTransient
	default:
		return ErrorClassUnknown
	}
}

// IsTransient reports whether err should be retried with backoff.
func IsTransient(err error) bool {
	return Classify(err) == ErrorClassTransient
}

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	return Classify(err) == ErrorClassFatal
}

// ErrorForStatus maps a provider HTTP status code onto the error taxonomy.
// It returns nil for 2xx codes.
func ErrorForStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return ErrTimeout
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrMissingCredentials
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return ErrProviderUnavailable
	default:
		return ErrInvalidInput
	}
}

// OCRError carries the reason an OCR adapter failed.
type OCRError struct {
	// Adapter is the name of the failing OCR adapter.
	Adapter string

	// Reason is a human-readable cause.
	Reason string
}

func (e *OCRError) Error() string {
	return fmt.Sprintf("ocr failure (%s): %s", e.Adapter, e.Reason)
}

// Unwrap lets errors.Is match ErrOCRFailure.
func (e *OCRError) Unwrap() error {
	return ErrOCRFailure
}

// EmbeddingError records a terminal embedding failure for one document.
type EmbeddingError struct {
	// DocumentID is the document whose embedding step failed.
	DocumentID string

	// Attempts is the number of attempts made for the failing batch.
	Attempts int

	// Err is the last provider error.
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding provider error for %s after %d attempt(s): %v", e.DocumentID, e.Attempts, e.Err)
}

// Unwrap exposes both the sentinel and the provider cause.
func (e *EmbeddingError) Unwrap() []error {
	return []error{ErrEmbeddingProvider, e.Err}
}
