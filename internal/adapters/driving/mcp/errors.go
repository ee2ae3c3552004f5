// Package mcp exposes ingestion and search as Model Context Protocol tools
// and resources.
package mcp

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

var (
	// ErrMissingSearchService is returned when the search service is not provided.
	ErrMissingSearchService = errors.New("mcp: search service is required")

	// ErrMissingIngestionService is returned when the ingestion service is not provided.
	ErrMissingIngestionService = errors.New("mcp: ingestion service is required")
)

// toolError turns a service error into the message a tool caller sees.
// Well-known domain errors get a short stable prefix so clients can branch
// on it; the original error stays in the chain.
func toolError(op string, err error) error {
	var kind string
	switch {
	case errors.Is(err, domain.ErrProfileNotFound):
		kind = "profile_not_found"
	case errors.Is(err, domain.ErrNoDocuments):
		kind = "no_documents"
	case errors.Is(err, domain.ErrNotFound):
		kind = "not_found"
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidConfig):
		kind = "invalid_input"
	case errors.Is(err, domain.ErrEmbeddingUnavailable), errors.Is(err, domain.ErrEmbedding):
		kind = "embedding_unavailable"
	case errors.Is(err, domain.ErrVectorStore):
		kind = "vector_store"
	default:
		kind = "internal"
	}
	return fmt.Errorf("%s: %s: %w", op, kind, err)
}
