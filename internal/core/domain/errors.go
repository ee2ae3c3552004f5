package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown document, backend or store type.
	ErrUnsupportedType = errors.New("unsupported type")

	// Configuration Errors.

	// ErrProfileNotFound indicates the named profile is not configured.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrNoDocuments indicates a profile has no documents with a known loader.
	ErrNoDocuments = errors.New("profile has no documents to ingest")

	// ErrInvalidConfig indicates a profile or backend is misconfigured.
	ErrInvalidConfig = errors.New("invalid configuration")

	// Pipeline Errors.

	// ErrEmbedding matches every EmbeddingError.
	ErrEmbedding = errors.New("embedding failed")

	// ErrVectorStore matches every VectorStoreError.
	ErrVectorStore = errors.New("vector store error")

	// ErrDimensionMismatch indicates a vector length differs from the declared dim.
	ErrDimensionMismatch = errors.New("vector dim mismatch")

	// ErrInvalidVector indicates a vector holds NaN or Inf values.
	ErrInvalidVector = errors.New("invalid number in vector")

	// ErrEmbeddingUnavailable indicates a backend is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrCanceledByUser is stored on jobs stopped through cancellation.
	ErrCanceledByUser = errors.New("cancelled by user")
)

// EmbeddingError is returned when no configured backend produced a valid
// vector, or when a vector failed validation.
type EmbeddingError struct {
	Backend string
	Err     error
}

func (e *EmbeddingError) Error() string {
	if e.Backend == "" {
		return fmt.Sprintf("embedding failed: %v", e.Err)
	}
	return fmt.Sprintf("embedding failed (backend=%s): %v", e.Backend, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrEmbedding) match any EmbeddingError.
func (e *EmbeddingError) Is(target error) bool { return target == ErrEmbedding }

// VectorStoreError wraps validation and transport failures of a vector store.
type VectorStoreError struct {
	Op         string
	Collection string
	Err        error
}

func (e *VectorStoreError) Error() string {
	return fmt.Sprintf("vector store %s %q: %v", e.Op, e.Collection, e.Err)
}

func (e *VectorStoreError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrVectorStore) match any VectorStoreError.
func (e *VectorStoreError) Is(target error) bool { return target == ErrVectorStore }

// LoaderError reports a single document that could not be loaded.
// The loader registry logs and skips these.
type LoaderError struct {
	Type DocumentType
	Path string
	Err  error
}

func (e *LoaderError) Error() string {
	return fmt.Sprintf("load %s %s: %v", e.Type, e.Path, e.Err)
}

func (e *LoaderError) Unwrap() error { return e.Err }

// BackendError is a non-2xx response from an embedding provider.
type BackendError struct {
	Backend    string
	StatusCode int
	// RetryAfter is the server hint, zero when absent.
	RetryAfter time.Duration
	Body       string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Backend, e.StatusCode, e.Body)
}

// Is lets callers match rate limits with errors.Is(err, ErrRateLimited).
func (e *BackendError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// Retryable reports whether the status is worth another attempt.
func (e *BackendError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
