package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchService is the semantic read path over a profile's collection.
type SearchService struct {
	profiles   driven.ProfileSource
	components *Components
}

// NewSearchService creates a search service.
func NewSearchService(profiles driven.ProfileSource, components *Components) *SearchService {
	return &SearchService{profiles: profiles, components: components}
}

// Search embeds the query with the profile's backends (no cache) and
// returns the nearest chunks. A missing or empty collection, or a store
// failure, is reported as status "error" with no results.
func (s *SearchService) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	profile, err := s.profiles.LoadProfile(ctx, req.Profile)
	if err != nil {
		return nil, err
	}
	topK := req.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	logger.Section("Search")
	logger.Debug("search profile=%s collection=%s top_k=%d query=%q", profile.Name, profile.VectorStore.Collection, topK, query)

	vs, err := s.components.VectorStore(profile)
	if err != nil {
		return errorResponse(err.Error()), nil
	}
	defer vs.Close()

	exists, err := vs.CollectionExists(ctx)
	if err != nil {
		return errorResponse(err.Error()), nil
	}
	if !exists {
		return errorResponse(fmt.Sprintf("collection %q not found", profile.VectorStore.Collection)), nil
	}
	count, err := vs.Count(ctx)
	if err != nil {
		return errorResponse(err.Error()), nil
	}
	if count == 0 {
		return errorResponse(fmt.Sprintf("collection %q is empty", profile.VectorStore.Collection)), nil
	}

	embedder, err := s.components.Embedder(profile, false)
	if err != nil {
		return nil, err
	}
	defer embedder.Close()

	vec, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	points, err := vs.Search(ctx, vec, topK, req.Filter)
	if err != nil {
		return errorResponse(err.Error()), nil
	}

	hits := make([]domain.SearchHit, len(points))
	for i, p := range points {
		hits[i] = domain.SearchHit{
			Score:     p.Score,
			Text:      payloadString(p.Payload, "text"),
			DocPath:   payloadString(p.Payload, "doc_path"),
			ChunkIdx:  payloadInt(p.Payload, "chunk_idx"),
			Source:    payloadString(p.Payload, "source"),
			PageStart: payloadInt(p.Payload, "page_start"),
		}
	}
	logger.Debug("search.done profile=%s hits=%d", profile.Name, len(hits))
	return &domain.SearchResponse{Status: domain.SearchOK, Results: hits}, nil
}

func errorResponse(reason string) *domain.SearchResponse {
	logger.Debug("search.error reason=%s", reason)
	return &domain.SearchResponse{Status: domain.SearchError, Results: []domain.SearchHit{}, Reason: reason}
}

func payloadString(p map[string]any, key string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return ""
}

// payloadInt reads an integer that may have travelled through JSON.
func payloadInt(p map[string]any, key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}
