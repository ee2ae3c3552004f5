package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns hits", func(t *testing.T) {
		search := &mockSearchService{resp: &domain.SearchResponse{
			Status: domain.SearchOK,
			Results: []domain.SearchHit{
				{Score: 0.91, Text: "Go developer", DocPath: "cv.pdf", ChunkIdx: 2, PageStart: 1},
			},
		}}
		server, err := newTestServer(search, &mockIngestionService{}, nil)
		require.NoError(t, err)

		_, out, err := server.handleSearch(ctx, nil, SearchInput{
			Profile: "cv",
			Query:   "golang",
			TopK:    3,
			Filter:  map[string]any{"source": "cv"},
		})
		require.NoError(t, err)

		assert.Equal(t, "ok", out.Status)
		require.Len(t, out.Results, 1)
		assert.Equal(t, "cv.pdf", out.Results[0].DocPath)
		assert.Equal(t, 3, search.last.TopK)
		assert.Equal(t, "cv", search.last.Filter["source"])
	})

	t.Run("error status is not a tool error", func(t *testing.T) {
		search := &mockSearchService{resp: &domain.SearchResponse{
			Status: domain.SearchError,
			Reason: "collection is empty",
		}}
		server, err := newTestServer(search, &mockIngestionService{}, nil)
		require.NoError(t, err)

		_, out, err := server.handleSearch(ctx, nil, SearchInput{Profile: "cv", Query: "x"})
		require.NoError(t, err)
		assert.Equal(t, "error", out.Status)
		assert.Equal(t, "collection is empty", out.Reason)
		assert.NotNil(t, out.Results)
	})

	t.Run("missing profile", func(t *testing.T) {
		server, err := newTestServer(&mockSearchService{}, &mockIngestionService{}, nil)
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "x"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown profile", func(t *testing.T) {
		search := &mockSearchService{err: domain.ErrProfileNotFound}
		server, err := newTestServer(search, &mockIngestionService{}, nil)
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Profile: "nope", Query: "x"})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrProfileNotFound)
		assert.Contains(t, err.Error(), "profile_not_found")
	})
}

func TestServer_handleEnqueue(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the enqueue result", func(t *testing.T) {
		ingestion := &mockIngestionService{result: &domain.EnqueueResult{
			Status: domain.JobQueued, JobID: "j1", Profile: "cv", CanceledPrevious: 1, Collection: "docs_cv",
		}}
		server, err := newTestServer(&mockSearchService{}, ingestion, nil)
		require.NoError(t, err)

		_, out, err := server.handleEnqueue(ctx, nil, EnqueueInput{Profile: "cv", Truncate: true})
		require.NoError(t, err)
		assert.Equal(t, "queued", out.Status)
		assert.Equal(t, "j1", out.JobID)
		assert.Equal(t, 1, out.CanceledPrevious)
		assert.True(t, ingestion.truncate)
	})

	t.Run("no documents", func(t *testing.T) {
		server, err := newTestServer(&mockSearchService{}, &mockIngestionService{err: domain.ErrNoDocuments}, nil)
		require.NoError(t, err)

		_, _, err = server.handleEnqueue(ctx, nil, EnqueueInput{Profile: "cv"})
		assert.ErrorIs(t, err, domain.ErrNoDocuments)
		assert.Contains(t, err.Error(), "no_documents")
	})

	t.Run("missing profile", func(t *testing.T) {
		server, err := newTestServer(&mockSearchService{}, &mockIngestionService{}, nil)
		require.NoError(t, err)

		_, _, err = server.handleEnqueue(ctx, nil, EnqueueInput{Profile: "  "})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestServer_handleCancelAll(t *testing.T) {
	ctx := context.Background()

	server, err := newTestServer(&mockSearchService{}, &mockIngestionService{canceled: []string{"a", "b"}}, nil)
	require.NoError(t, err)
	_, out, err := server.handleCancelAll(ctx, nil, CancelAllInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, []string{"a", "b"}, out.Canceled)

	server, err = newTestServer(&mockSearchService{}, &mockIngestionService{}, nil)
	require.NoError(t, err)
	_, out, err = server.handleCancelAll(ctx, nil, CancelAllInput{})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Count)
	assert.NotNil(t, out.Canceled)
}

func TestServer_handleJobGet(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ingestion := &mockIngestionService{jobs: map[string]*domain.Job{
		"j1": {
			ID: "j1", Profile: "cv", Status: domain.JobRunning, Phase: domain.PhaseEmbed,
			ChunksDone: 12, CreatedAt: created, UpdatedAt: created.Add(time.Minute),
		},
	}}
	server, err := newTestServer(&mockSearchService{}, ingestion, nil)
	require.NoError(t, err)

	_, out, err := server.handleJobGet(ctx, nil, JobGetInput{JobID: "j1"})
	require.NoError(t, err)
	assert.Equal(t, "running", out.Status)
	assert.Equal(t, "embed", out.Phase)
	assert.Equal(t, 12, out.ChunksDone)
	assert.Equal(t, "2026-03-01T10:00:00Z", out.CreatedAt)

	_, _, err = server.handleJobGet(ctx, nil, JobGetInput{JobID: "nope"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = server.handleJobGet(ctx, nil, JobGetInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestServer_handleJobList(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes the filter", func(t *testing.T) {
		ingestion := &mockIngestionService{list: []domain.Job{
			{ID: "j2", Profile: "cv", Status: domain.JobCompleted},
			{ID: "j1", Profile: "cv", Status: domain.JobCanceled},
		}}
		server, err := newTestServer(&mockSearchService{}, ingestion, nil)
		require.NoError(t, err)

		_, out, err := server.handleJobList(ctx, nil, JobListInput{Profile: "cv", Status: "Completed", Limit: 999})
		require.NoError(t, err)
		assert.Equal(t, 2, out.Count)
		assert.Equal(t, "j2", out.Jobs[0].JobID)
		assert.Equal(t, domain.JobCompleted, ingestion.lastFilter.Status)
		assert.Equal(t, domain.MaxJobListLimit, ingestion.lastFilter.Limit)
	})

	t.Run("default limit", func(t *testing.T) {
		ingestion := &mockIngestionService{}
		server, err := newTestServer(&mockSearchService{}, ingestion, nil)
		require.NoError(t, err)

		_, out, err := server.handleJobList(ctx, nil, JobListInput{})
		require.NoError(t, err)
		assert.Equal(t, 0, out.Count)
		assert.Equal(t, domain.DefaultJobListLimit, ingestion.lastFilter.Limit)
	})

	t.Run("unknown status", func(t *testing.T) {
		server, err := newTestServer(&mockSearchService{}, &mockIngestionService{}, nil)
		require.NoError(t, err)

		_, _, err = server.handleJobList(ctx, nil, JobListInput{Status: "paused"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("store failure", func(t *testing.T) {
		server, err := newTestServer(&mockSearchService{}, &mockIngestionService{err: errors.New("disk full")}, nil)
		require.NoError(t, err)

		_, _, err = server.handleJobList(ctx, nil, JobListInput{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "internal")
	})
}

func TestToolError(t *testing.T) {
	tests := []struct {
		err  error
		kind string
	}{
		{domain.ErrProfileNotFound, "profile_not_found"},
		{domain.ErrNotFound, "not_found"},
		{domain.ErrInvalidConfig, "invalid_input"},
		{domain.ErrEmbeddingUnavailable, "embedding_unavailable"},
		{&domain.VectorStoreError{Op: "search", Err: errors.New("refused")}, "vector_store"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			err := toolError("op", tt.err)
			assert.Contains(t, err.Error(), "op: "+tt.kind+":")
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
