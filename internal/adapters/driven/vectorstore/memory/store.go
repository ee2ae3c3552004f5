// Package memory is an in-process vector store. It backs tests and
// profiles with vector_store.kind "memory"; collections live as long as
// the DB value.
package memory

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

type collection struct {
	dim      int
	distance domain.Distance
	points   map[string]domain.VectorPoint
}

// DB holds named collections shared by every Store opened on it.
type DB struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// NewDB creates an empty database.
func NewDB() *DB {
	return &DB{collections: make(map[string]*collection)}
}

// Open returns a store bound to one collection. The collection is not
// created until EnsureCollection or Truncate.
func (db *DB) Open(cfg domain.VectorStoreConfig, dim int) *Store {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = domain.DefaultUpsertBatchSize
	}
	dist := cfg.Distance
	if dist == "" {
		dist = domain.DistanceCosine
	}
	return &Store{db: db, name: cfg.Collection, dim: dim, distance: dist, batchSize: batch}
}

// Store is a handle on one collection.
type Store struct {
	db        *DB
	name      string
	dim       int
	distance  domain.Distance
	batchSize int

	mu      sync.Mutex
	batches int
}

func (s *Store) fail(op string, err error) error {
	return &domain.VectorStoreError{Op: op, Collection: s.name, Err: err}
}

// EnsureCollection creates the collection when absent.
func (s *Store) EnsureCollection(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return s.fail("ensure", err)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.collections[s.name]; !ok {
		s.db.collections[s.name] = s.newCollection()
	}
	return nil
}

// Truncate drops and recreates the collection.
func (s *Store) Truncate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return s.fail("truncate", err)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.collections[s.name] = s.newCollection()
	return nil
}

func (s *Store) newCollection() *collection {
	return &collection{dim: s.dim, distance: s.distance, points: make(map[string]domain.VectorPoint)}
}

// CollectionExists reports whether the collection exists.
func (s *Store) CollectionExists(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, s.fail("exists", err)
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	_, ok := s.db.collections[s.name]
	return ok, nil
}

// Upsert validates all points, then writes them in batches.
func (s *Store) Upsert(ctx context.Context, points []domain.VectorPoint) ([]string, error) {
	for i, p := range points {
		if err := domain.ValidateVector(p.Vector, s.dim); err != nil {
			return nil, s.fail("upsert", fmt.Errorf("point %d: %w", i, err))
		}
	}

	ids := make([]string, 0, len(points))
	for start := 0; start < len(points); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, s.fail("upsert", err)
		}
		batch := points[start:min(start+s.batchSize, len(points))]

		s.db.mu.Lock()
		c, ok := s.db.collections[s.name]
		if !ok {
			s.db.mu.Unlock()
			return nil, s.fail("upsert", domain.ErrNotFound)
		}
		for _, p := range batch {
			c.points[p.ID] = domain.VectorPoint{
				ID:      p.ID,
				Vector:  slices.Clone(p.Vector),
				Payload: maps.Clone(p.Payload),
			}
			ids = append(ids, p.ID)
		}
		s.db.mu.Unlock()

		s.mu.Lock()
		s.batches++
		s.mu.Unlock()
	}
	return ids, nil
}

// Search scores every point and returns the topK best matches.
func (s *Store) Search(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]domain.ScoredPoint, error) {
	if err := domain.ValidateVector(vector, s.dim); err != nil {
		return nil, s.fail("search", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, s.fail("search", err)
	}

	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	c, ok := s.db.collections[s.name]
	if !ok {
		return nil, s.fail("search", domain.ErrNotFound)
	}

	hits := make([]domain.ScoredPoint, 0, len(c.points))
	for _, p := range c.points {
		if !matches(p.Payload, filter) {
			continue
		}
		hits = append(hits, domain.ScoredPoint{
			ID:      p.ID,
			Score:   score(c.distance, vector, p.Vector),
			Payload: maps.Clone(p.Payload),
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Count returns the number of points.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, s.fail("count", err)
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	c, ok := s.db.collections[s.name]
	if !ok {
		return 0, s.fail("count", domain.ErrNotFound)
	}
	return len(c.points), nil
}

// Batches returns how many upsert batches this handle wrote.
func (s *Store) Batches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches
}

// Point returns a stored point by id.
func (s *Store) Point(id string) (domain.VectorPoint, bool) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	c, ok := s.db.collections[s.name]
	if !ok {
		return domain.VectorPoint{}, false
	}
	p, ok := c.points[id]
	return p, ok
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func matches(payload, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := payload[k]
		if !ok || !equalValues(got, want) {
			return false
		}
	}
	return true
}

// equalValues compares payload values, treating numeric types as equal
// when their float64 values are.
func equalValues(a, b any) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum && bNum {
		return fa == fb
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// score returns a similarity where higher is closer.
func score(d domain.Distance, a, b []float32) float64 {
	switch d {
	case domain.DistanceEuclid:
		var sum float64
		for i := range a {
			diff := float64(a[i]) - float64(b[i])
			sum += diff * diff
		}
		return -math.Sqrt(sum)
	case domain.DistanceDot:
		var dot float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
		}
		return dot
	default:
		var dot, na, nb float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
			na += float64(a[i]) * float64(a[i])
			nb += float64(b[i]) * float64(b[i])
		}
		if na == 0 || nb == 0 {
			return 0
		}
		return dot / (math.Sqrt(na) * math.Sqrt(nb))
	}
}
