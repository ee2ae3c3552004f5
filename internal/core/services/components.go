package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Components builds the per-profile collaborators of a job or search.
// Profiles are loaded fresh per request, so embedders and vector stores
// are built per request too.
type Components struct {
	Backends driven.EmbeddingBackendFactory
	Stores   driven.VectorStoreFactory

	// Caches may be nil, which disables embedding caching.
	Caches driven.EmbeddingCacheProvider
}

// Embedder builds the backend chain for a profile. The primary backend
// must be available. An unavailable fallback is logged and skipped.
func (c *Components) Embedder(profile *domain.Profile, withCache bool) (*Embedder, error) {
	cfg := profile.Embedding
	var backends []driven.EmbeddingBackend
	for i, name := range cfg.BackendOrder() {
		b, err := c.Backends.Create(name, cfg)
		if err != nil {
			if i == 0 {
				closeAll(backends)
				return nil, &domain.EmbeddingError{Backend: name, Err: err}
			}
			logger.Warn("embed.fallback.unavailable profile=%s backend=%s err=%v", profile.Name, name, err)
			continue
		}
		backends = append(backends, b)
	}

	var cache driven.EmbeddingCache
	if withCache && c.Caches != nil {
		var err error
		cache, err = c.Caches.CacheFor(profile)
		if err != nil {
			logger.Warn("embed.cache.unavailable profile=%s err=%v", profile.Name, err)
			cache = nil
		}
	}
	return NewEmbedder(cfg, backends, cache), nil
}

// VectorStore builds the store for a profile's collection.
func (c *Components) VectorStore(profile *domain.Profile) (driven.VectorStore, error) {
	store, err := c.Stores.Create(profile.VectorStore, profile.Embedding.Dim)
	if err != nil {
		var vse *domain.VectorStoreError
		if errors.As(err, &vse) {
			return nil, err
		}
		return nil, &domain.VectorStoreError{Op: "open", Collection: profile.VectorStore.Collection, Err: err}
	}
	return store, nil
}

func closeAll(backends []driven.EmbeddingBackend) {
	for _, b := range backends {
		if err := b.Close(); err != nil {
			logger.Debug("embed.backend.close backend=%s err=%v", b.Name(), err)
		}
	}
}

// describeBackends renders "ollama/nomic-embed-text,cloudflare/@cf/..." for logs.
func describeBackends(backends []driven.EmbeddingBackend) string {
	parts := make([]string, len(backends))
	for i, b := range backends {
		parts[i] = fmt.Sprintf("%s/%s", b.Name(), b.Model())
	}
	return strings.Join(parts, ",")
}
