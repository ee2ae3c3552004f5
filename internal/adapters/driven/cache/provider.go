// Package cache picks the embedding cache a profile asks for.
package cache

import (
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/cache/badger"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.EmbeddingCacheProvider = (*Provider)(nil)

// Provider hands out one shared cache per kind. The badger store is opened
// on first use.
type Provider struct {
	sqlite    driven.EmbeddingCache
	badgerDir string
	memory    *memory.EmbeddingCache

	mu     sync.Mutex
	badger *badger.Cache
}

// NewProvider creates a provider. sqliteCache may be nil, in which case
// profiles asking for sqlite run without a cache.
func NewProvider(sqliteCache driven.EmbeddingCache, badgerDir string) *Provider {
	return &Provider{
		sqlite:    sqliteCache,
		badgerDir: badgerDir,
		memory:    memory.NewEmbeddingCache(),
	}
}

// CacheFor returns the cache for profile, or nil for kind "none".
func (p *Provider) CacheFor(profile *domain.Profile) (driven.EmbeddingCache, error) {
	kind := strings.ToLower(strings.TrimSpace(profile.Embedding.Cache))
	switch kind {
	case domain.CacheNone:
		return nil, nil
	case "", domain.CacheSQLite:
		if p.sqlite == nil {
			return nil, nil
		}
		return p.sqlite, nil
	case domain.CacheMemory:
		return p.memory, nil
	case domain.CacheBadger:
		return p.openBadger()
	default:
		return nil, fmt.Errorf("%w: embedding cache %q", domain.ErrUnsupportedType, profile.Embedding.Cache)
	}
}

func (p *Provider) openBadger() (driven.EmbeddingCache, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.badger == nil {
		c, err := badger.Open(p.badgerDir)
		if err != nil {
			return nil, err
		}
		p.badger = c
	}
	return p.badger, nil
}

// Close closes the badger store if it was opened. The sqlite cache is owned
// by its store.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.badger == nil {
		return nil
	}
	err := p.badger.Close()
	p.badger = nil
	return err
}
