package driving

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// SearchService provides the semantic read path.
type SearchService interface {
	// Search embeds the query and returns nearest chunks. An empty or
	// unreachable collection yields status "error" rather than an error.
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)
}

// HealthService checks a profile's backends.
type HealthService interface {
	// Check pings each configured embedding backend and the vector store.
	Check(ctx context.Context, profile string) ([]domain.HealthCheck, error)
}
