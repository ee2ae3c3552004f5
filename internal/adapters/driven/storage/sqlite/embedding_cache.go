package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// EmbeddingCache implements driven.EmbeddingCache on the embedding_cache table.
type EmbeddingCache struct {
	store *Store
}

var _ driven.EmbeddingCache = (*EmbeddingCache)(nil)

// Get returns the cached vector for key.
func (c *EmbeddingCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	var (
		dim  int
		blob []byte
	)
	err := c.store.db.QueryRowContext(ctx,
		`SELECT dim, vector FROM embedding_cache WHERE cache_key = ?`, key).Scan(&dim, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading embedding cache: %w", err)
	}
	vec := bytesToFloat32Slice(blob)
	if len(vec) != dim {
		// Corrupt row; treat as a miss so it gets re-embedded and replaced.
		return nil, false, nil
	}
	return vec, true, nil
}

// Set stores or replaces the vector for key.
func (c *EmbeddingCache) Set(ctx context.Context, key string, vec []float32) error {
	_, err := c.store.db.ExecContext(ctx, `
		INSERT INTO embedding_cache (cache_key, dim, vector, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET dim = excluded.dim, vector = excluded.vector, created_at = excluded.created_at`,
		key, len(vec), float32SliceToBytes(vec), formatTime(c.store.now()))
	if err != nil {
		return fmt.Errorf("writing embedding cache: %w", err)
	}
	return nil
}
