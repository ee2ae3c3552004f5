// Package qdrant drives a Qdrant collection over its REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// DefaultURL is used when a profile does not set vector_store.url.
const DefaultURL = "http://localhost:6333"

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 2048

// errStatus is wrapped by unexpected HTTP statuses.
var errStatus = errors.New("unexpected status")

// Store is a client bound to one collection.
type Store struct {
	client    *http.Client
	baseURL   string
	name      string
	dim       int
	distance  domain.Distance
	batchSize int
}

// New creates a store. It does not contact the server.
func New(cfg domain.VectorStoreConfig, dim int) *Store {
	base := strings.TrimRight(cfg.URL, "/")
	if base == "" {
		base = DefaultURL
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = domain.DefaultUpsertBatchSize
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultVectorStoreTimeout
	}
	return &Store{
		client:    &http.Client{Timeout: timeout},
		baseURL:   base,
		name:      cfg.Collection,
		dim:       dim,
		distance:  cfg.Distance,
		batchSize: batch,
	}
}

func (s *Store) fail(op string, err error) error {
	return &domain.VectorStoreError{Op: op, Collection: s.name, Err: err}
}

func (s *Store) collectionURL(suffix string) string {
	return s.baseURL + "/collections/" + url.PathEscape(s.name) + suffix
}

// qdrantDistance maps a Distance to Qdrant's enum.
func qdrantDistance(d domain.Distance) string {
	switch d {
	case domain.DistanceEuclid:
		return "Euclid"
	case domain.DistanceDot:
		return "Dot"
	default:
		return "Cosine"
	}
}

// do sends a JSON request and decodes a JSON response into out when out is
// non-nil. It returns the status code alongside any error.
func (s *Store) do(ctx context.Context, method, target string, body, out any) (int, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, fmt.Errorf("%w %d: %s", errStatus, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// EnsureCollection creates the collection when absent.
func (s *Store) EnsureCollection(ctx context.Context) error {
	ok, err := s.CollectionExists(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if err := s.create(ctx); err != nil {
		return s.fail("ensure", err)
	}
	return nil
}

func (s *Store) create(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dim,
			"distance": qdrantDistance(s.distance),
		},
	}
	_, err := s.do(ctx, http.MethodPut, s.collectionURL(""), body, nil)
	return err
}

// Truncate deletes and recreates the collection.
func (s *Store) Truncate(ctx context.Context) error {
	status, err := s.do(ctx, http.MethodDelete, s.collectionURL(""), nil, nil)
	if err != nil && status != http.StatusNotFound {
		return s.fail("truncate", err)
	}
	if err := s.create(ctx); err != nil {
		return s.fail("truncate", err)
	}
	return nil
}

// CollectionExists reports whether the collection exists.
func (s *Store) CollectionExists(ctx context.Context) (bool, error) {
	status, err := s.do(ctx, http.MethodGet, s.collectionURL(""), nil, nil)
	if status == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, s.fail("exists", err)
	}
	return true, nil
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Upsert validates every point, then writes batches with wait=true.
func (s *Store) Upsert(ctx context.Context, points []domain.VectorPoint) ([]string, error) {
	for i, p := range points {
		if err := domain.ValidateVector(p.Vector, s.dim); err != nil {
			return nil, s.fail("upsert", fmt.Errorf("point %d: %w", i, err))
		}
	}

	ids := make([]string, 0, len(points))
	for start := 0; start < len(points); start += s.batchSize {
		batch := points[start:min(start+s.batchSize, len(points))]
		body := struct {
			Points []point `json:"points"`
		}{Points: make([]point, 0, len(batch))}
		for _, p := range batch {
			body.Points = append(body.Points, point{ID: p.ID, Vector: p.Vector, Payload: p.Payload})
		}
		if _, err := s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), body, nil); err != nil {
			return nil, s.fail("upsert", err)
		}
		for _, p := range batch {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

type matchCondition struct {
	Key   string         `json:"key"`
	Match map[string]any `json:"match"`
}

// buildFilter turns equality pairs into a Qdrant "must" filter.
func buildFilter(filter map[string]any) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	must := make([]matchCondition, 0, len(filter))
	for _, k := range slices.Sorted(maps.Keys(filter)) {
		must = append(must, matchCondition{Key: k, Match: map[string]any{"value": filter[k]}})
	}
	return map[string]any{"must": must}
}

type searchResponse struct {
	Result []struct {
		ID      any            `json:"id"`
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// Search returns up to topK hits. Euclid distances are negated so higher
// is closer.
func (s *Store) Search(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]domain.ScoredPoint, error) {
	if err := domain.ValidateVector(vector, s.dim); err != nil {
		return nil, s.fail("search", err)
	}
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if f := buildFilter(filter); f != nil {
		body["filter"] = f
	}

	var resp searchResponse
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), body, &resp); err != nil {
		return nil, s.fail("search", err)
	}

	hits := make([]domain.ScoredPoint, 0, len(resp.Result))
	for _, r := range resp.Result {
		score := r.Score
		if s.distance == domain.DistanceEuclid {
			score = -score
		}
		hits = append(hits, domain.ScoredPoint{
			ID:      fmt.Sprint(r.ID),
			Score:   score,
			Payload: r.Payload,
		})
	}
	return hits, nil
}

// Count returns the exact number of points.
func (s *Store) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	body := map[string]any{"exact": true}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/count"), body, &resp); err != nil {
		return 0, s.fail("count", err)
	}
	return resp.Result.Count, nil
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
