package driven

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// VectorStore drives one collection of an external vector database.
// Every failure is returned as *domain.VectorStoreError.
type VectorStore interface {
	// EnsureCollection creates the collection when absent. It never
	// recreates an existing collection.
	EnsureCollection(ctx context.Context) error

	// Truncate deletes and recreates the collection.
	Truncate(ctx context.Context) error

	// CollectionExists reports whether the collection exists.
	CollectionExists(ctx context.Context) (bool, error)

	// Upsert validates every vector before any write, then writes in
	// batches. Returns the written ids in input order.
	Upsert(ctx context.Context, points []domain.VectorPoint) ([]string, error)

	// Search returns up to topK hits, score-descending. filter is an AND of
	// payload field equality conditions and may be nil.
	Search(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]domain.ScoredPoint, error)

	// Count returns the number of points in the collection.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// VectorStoreFactory builds a store for a profile's target collection.
type VectorStoreFactory interface {
	Create(cfg domain.VectorStoreConfig, dim int) (VectorStore, error)
}
