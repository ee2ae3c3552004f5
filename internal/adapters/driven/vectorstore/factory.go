// Package vectorstore selects a vector store implementation by kind.
package vectorstore

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/vectorstore/pgvector"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/vectorstore/qdrant"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.VectorStoreFactory = (*Factory)(nil)

// Factory creates stores for qdrant, pgvector and memory kinds.
type Factory struct {
	// DefaultURL fills profiles without a vector_store.url.
	DefaultURL string

	memory *memory.DB
}

// NewFactory returns a factory. Memory stores opened through it share one
// in-process database.
func NewFactory(defaultURL string) *Factory {
	return &Factory{DefaultURL: defaultURL, memory: memory.NewDB()}
}

// Create opens a store for cfg.
func (f *Factory) Create(cfg domain.VectorStoreConfig, dim int) (driven.VectorStore, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))
	if kind == "" {
		kind = domain.VectorStoreQdrant
	}

	switch kind {
	case domain.VectorStoreMemory:
		return f.memory.Open(cfg, dim), nil

	case domain.VectorStoreQdrant:
		if cfg.URL == "" && !strings.HasPrefix(f.DefaultURL, "postgres") {
			cfg.URL = f.DefaultURL
		}
		return qdrant.New(cfg, dim), nil

	case domain.VectorStorePGVector:
		if cfg.URL == "" && strings.HasPrefix(f.DefaultURL, "postgres") {
			cfg.URL = f.DefaultURL
		}
		s, err := pgvector.New(cfg, dim)
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("%w: vector store kind %q", domain.ErrUnsupportedType, cfg.Kind)
	}
}
