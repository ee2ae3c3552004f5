package services

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	vsmemory "github.com/custodia-labs/sercha-ingest/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// --- Mock implementations for service testing ---

// fakeBackend is a scriptable embedding backend.
type fakeBackend struct {
	name  string
	model string
	dim   int

	// embed overrides the default deterministic vector.
	embed func(ctx context.Context, text string) ([]float32, error)

	mu    sync.Mutex
	calls int
	texts []string
}

func newFakeBackend(name string, dim int) *fakeBackend {
	return &fakeBackend{name: name, model: name + "-model", dim: dim}
}

func (b *fakeBackend) Name() string  { return b.name }
func (b *fakeBackend) Model() string { return b.model }

func (b *fakeBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	b.mu.Lock()
	b.calls++
	b.texts = append(b.texts, text)
	fn := b.embed
	b.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}
	return vectorFor(text, b.dim), nil
}

func (b *fakeBackend) Ping(context.Context) error { return nil }
func (b *fakeBackend) Close() error               { return nil }

func (b *fakeBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// vectorFor derives a deterministic, non-zero vector from text.
func vectorFor(text string, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32((len(text)+i)%7 + 1)
	}
	return v
}

// backendFactory hands out prebuilt backends by name.
type backendFactory struct {
	backends map[string]driven.EmbeddingBackend
}

func (f *backendFactory) Create(name string, _ domain.EmbeddingConfig) (driven.EmbeddingBackend, error) {
	b, ok := f.backends[name]
	if !ok {
		return nil, domain.ErrEmbeddingUnavailable
	}
	return b, nil
}

// memoryStores opens every collection on one shared memory DB.
type memoryStores struct {
	db *vsmemory.DB
}

func (f *memoryStores) Create(cfg domain.VectorStoreConfig, dim int) (driven.VectorStore, error) {
	return f.db.Open(cfg, dim), nil
}

// failingStores always fails to open.
type failingStores struct{ err error }

func (f failingStores) Create(domain.VectorStoreConfig, int) (driven.VectorStore, error) {
	return nil, f.err
}

type cacheProvider struct {
	cache driven.EmbeddingCache
}

func (p cacheProvider) CacheFor(*domain.Profile) (driven.EmbeddingCache, error) {
	return p.cache, nil
}

// profileSource serves profiles from a map.
type profileSource struct {
	mu       sync.Mutex
	profiles map[string]domain.Profile
}

func newProfileSource(profiles ...domain.Profile) *profileSource {
	s := &profileSource{profiles: make(map[string]domain.Profile)}
	for _, p := range profiles {
		s.profiles[p.Name] = p
	}
	return s
}

func (s *profileSource) LoadProfile(_ context.Context, name string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[name]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return p.ApplyDefaults(), nil
}

func (s *profileSource) ListProfiles(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.profiles))
	for n := range s.profiles {
		names = append(names, n)
	}
	return names, nil
}

// testProfile returns a memory-backed profile with a 4-dim embedding.
func testProfile(name string, docs ...domain.DocumentSpec) domain.Profile {
	return domain.Profile{
		Name:      name,
		Documents: docs,
		Chunking:  domain.ChunkingConfig{Size: 800, Overlap: 100},
		Embedding: domain.EmbeddingConfig{
			Dim:         4,
			Primary:     domain.BackendOllama,
			Concurrency: 2,
			MaxRetries:  2,
			Cache:       domain.CacheMemory,
		},
		VectorStore: domain.VectorStoreConfig{
			Kind:       domain.VectorStoreMemory,
			Collection: name + "_docs",
		},
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// noSleep records requested sleeps without waiting, honouring ctx.
type noSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (n *noSleep) sleep(ctx context.Context, d time.Duration) error {
	n.mu.Lock()
	if d > 0 {
		n.waits = append(n.waits, d)
	}
	n.mu.Unlock()
	return ctx.Err()
}

func (n *noSleep) Waits() []time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]time.Duration(nil), n.waits...)
}
