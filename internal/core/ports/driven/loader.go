package driven

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// LoadOptions parameterise a single document load.
type LoadOptions struct {
	// DocID is stamped on every chunk. It is the profile name.
	DocID        string
	Chunking     domain.ChunkingConfig
	IncludePages string
	ExcludePages string
}

// DocumentLoader extracts and chunks one document type.
type DocumentLoader interface {
	// Type returns the document type tag this loader handles.
	Type() domain.DocumentType

	// Load returns the chunks of one document.
	Load(ctx context.Context, path string, opts LoadOptions) ([]domain.Chunk, error)
}

// PageCounter reports the true page count of a paged document.
type PageCounter interface {
	PageCount(ctx context.Context, path string) (int, error)
}

// ProgressFunc receives progress after each document.
type ProgressFunc func(domain.DocumentProgress)

// LoaderRegistry dispatches a profile's document specs to loaders.
// Unknown types and missing files are skipped, never fatal.
type LoaderRegistry interface {
	// Register adds a loader for its type.
	Register(loader DocumentLoader)

	// Collect loads and chunks every known document. Only context
	// cancellation is returned as an error.
	Collect(ctx context.Context, profile *domain.Profile, progress ProgressFunc) ([]domain.Chunk, domain.CollectStats, error)

	// KnownDocumentCount counts documents that have a registered loader.
	KnownDocumentCount(profile *domain.Profile) int

	// EstimatePagesTotal sums selected pages across paged documents.
	EstimatePagesTotal(ctx context.Context, profile *domain.Profile) int
}

// CommandRunner executes an external command and returns stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
