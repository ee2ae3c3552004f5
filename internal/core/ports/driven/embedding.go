package driven

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// EmbeddingBackend turns one text into one vector through a provider.
//
// Implementations:
//   - Ollama (local model server, /api/embeddings)
//   - Cloudflare Workers AI (/ai/run/{model})
//   - OpenAI-compatible servers (/embeddings)
//
// Backends make exactly one provider call per Embed. Retries, fan-out and
// fallback belong to the embedding orchestrator. Non-2xx responses are
// returned as *domain.BackendError.
type EmbeddingBackend interface {
	// Name returns the backend name (ollama, cloudflare, openai).
	Name() string

	// Model returns the configured model.
	Model() string

	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Ping validates the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// EmbeddingBackendFactory builds backends by name from a profile's config.
type EmbeddingBackendFactory interface {
	// Create returns the named backend. Returns ErrEmbeddingUnavailable when
	// the backend lacks required settings and ErrUnsupportedType for
	// unknown names.
	Create(name string, cfg domain.EmbeddingConfig) (EmbeddingBackend, error)
}

// EmbeddingCache stores vectors by caller-supplied id.
type EmbeddingCache interface {
	// Get returns the cached vector and whether it was found.
	Get(ctx context.Context, key string) ([]float32, bool, error)

	// Set stores a vector.
	Set(ctx context.Context, key string, vec []float32) error
}

// EmbeddingCacheProvider returns the cache for a profile, or nil when the
// profile disables caching.
type EmbeddingCacheProvider interface {
	CacheFor(profile *domain.Profile) (EmbeddingCache, error)
}
