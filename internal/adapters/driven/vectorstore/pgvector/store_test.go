package pgvector

import (
	"context"
	"math"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func TestNew_RequiresDSN(t *testing.T) {
	_, err := New(domain.VectorStoreConfig{Collection: "docs"}, 3)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.ErrorIs(t, err, domain.ErrVectorStore)
}

func TestSearch_RejectsWrongDimension(t *testing.T) {
	// Nothing listens on port 1, so reaching the server would fail differently.
	s, err := New(domain.VectorStoreConfig{
		URL:        "postgres://sercha@127.0.0.1:1/sercha?connect_timeout=1",
		Collection: "docs",
	}, 3)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Search(context.Background(), []float32{1, 2}, 5, nil)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.ErrorIs(t, err, domain.ErrVectorStore)

	_, err = s.Search(context.Background(), []float32{1, float32(math.NaN()), 0}, 5, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidVector)
}

func TestSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		distance domain.Distance
		filter   map[string]any
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "cosine without filter",
			distance: domain.DistanceCosine,
			wantSQL:  `SELECT id::text, payload, embedding <=> $1 AS d FROM "docs" ORDER BY d LIMIT $2`,
			wantArgs: []any{nil, 5},
		},
		{
			name:     "euclid with filter",
			distance: domain.DistanceEuclid,
			filter:   map[string]any{"profile": "p", "chunk_idx": 3},
			wantSQL: `SELECT id::text, payload, embedding <-> $1 AS d FROM "docs"` +
				` WHERE payload->>$2::text = $3 AND payload->>$4::text = $5 ORDER BY d LIMIT $6`,
			wantArgs: []any{nil, "chunk_idx", "3", "profile", "p", 5},
		},
		{
			name:     "dot",
			distance: domain.DistanceDot,
			filter:   map[string]any{"flag": true},
			wantSQL: `SELECT id::text, payload, embedding <#> $1 AS d FROM "docs"` +
				` WHERE payload->>$2::text = $3 ORDER BY d LIMIT $4`,
			wantArgs: []any{nil, "flag", "true", 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, args := searchQuery(`"docs"`, tt.distance, 5, tt.filter)
			assert.Equal(t, tt.wantSQL, q)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 0.75, similarity(domain.DistanceCosine, 0.25), 1e-9)
	assert.InDelta(t, -2.0, similarity(domain.DistanceEuclid, 2), 1e-9)
	assert.InDelta(t, 0.9, similarity(domain.DistanceDot, -0.9), 1e-9)
}

func TestFilterText(t *testing.T) {
	assert.Equal(t, "abc", filterText("abc"))
	assert.Equal(t, "1.5", filterText(1.5))
	assert.Equal(t, "false", filterText(false))
	assert.Equal(t, "", filterText(nil))
}

// TestStore_Postgres runs against a real server when PGVECTOR_TEST_DSN is set.
func TestStore_Postgres(t *testing.T) {
	dsn := os.Getenv("PGVECTOR_TEST_DSN")
	if dsn == "" {
		t.Skip("PGVECTOR_TEST_DSN not set")
	}
	ctx := context.Background()
	s, err := New(domain.VectorStoreConfig{
		URL:        dsn,
		Collection: "sercha_test_" + uuid.NewString()[:8],
		Distance:   domain.DistanceCosine,
		BatchSize:  1,
	}, 3)
	require.NoError(t, err)
	defer s.Close()
	defer func() { _, _ = s.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+s.table) }()

	ok, err := s.CollectionExists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.EnsureCollection(ctx))
	a, b := uuid.NewString(), uuid.NewString()
	ids, err := s.Upsert(ctx, []domain.VectorPoint{
		{ID: a, Vector: []float32{1, 0, 0}, Payload: map[string]any{"text": "a", "chunk_idx": 0}},
		{ID: b, Vector: []float32{0, 1, 0}, Payload: map[string]any{"text": "b", "chunk_idx": 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, ids)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := s.Search(ctx, []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, a, hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)

	hits, err = s.Search(ctx, []float32{1, 0, 0}, 2, map[string]any{"chunk_idx": 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, b, hits[0].ID)

	require.NoError(t, s.Truncate(ctx))
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
