package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// fakeQdrant records requests and answers with canned bodies.
type fakeQdrant struct {
	mu       sync.Mutex
	exists   bool
	requests []string
	bodies   []map[string]any
	search   string
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Method+" "+r.URL.RequestURI())
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.bodies = append(f.bodies, body)

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/collections/docs":
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":{"error":"Not found"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":{}}`))
	case r.Method == http.MethodPut && r.URL.Path == "/collections/docs":
		f.exists = true
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.Method == http.MethodDelete:
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.exists = false
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.URL.Path == "/collections/docs/points":
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	case r.URL.Path == "/collections/docs/points/search":
		_, _ = w.Write([]byte(f.search))
	case r.URL.Path == "/collections/docs/points/count":
		_, _ = w.Write([]byte(`{"result":{"count":7}}`))
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (f *fakeQdrant) reqs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakeQdrant) body(i int) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[i]
}

func (f *fakeQdrant) setExists(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exists = v
}

func (f *fakeQdrant) hasCollection() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exists
}

func newStore(t *testing.T, f *fakeQdrant, distance domain.Distance) *Store {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return New(domain.VectorStoreConfig{
		URL:        srv.URL + "/",
		Collection: "docs",
		Distance:   distance,
		BatchSize:  2,
	}, 3)
}

func TestEnsureCollection_CreatesOnce(t *testing.T) {
	f := &fakeQdrant{}
	s := newStore(t, f, domain.DistanceDot)
	ctx := context.Background()

	require.NoError(t, s.EnsureCollection(ctx))
	require.NoError(t, s.EnsureCollection(ctx))

	assert.Equal(t, []string{
		"GET /collections/docs",
		"PUT /collections/docs",
		"GET /collections/docs",
	}, f.reqs())
	vectors := f.body(1)["vectors"].(map[string]any)
	assert.Equal(t, float64(3), vectors["size"])
	assert.Equal(t, "Dot", vectors["distance"])
}

func TestTruncate_MissingCollection(t *testing.T) {
	f := &fakeQdrant{}
	s := newStore(t, f, domain.DistanceCosine)

	require.NoError(t, s.Truncate(context.Background()))
	assert.Equal(t, []string{"DELETE /collections/docs", "PUT /collections/docs"}, f.reqs())
	assert.True(t, f.hasCollection())
}

func TestCollectionExists(t *testing.T) {
	f := &fakeQdrant{}
	s := newStore(t, f, domain.DistanceCosine)

	ok, err := s.CollectionExists(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	f.setExists(true)
	ok, err = s.CollectionExists(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpsert_Batches(t *testing.T) {
	f := &fakeQdrant{exists: true}
	s := newStore(t, f, domain.DistanceCosine)

	points := []domain.VectorPoint{
		{ID: "a", Vector: []float32{1, 0, 0}, Payload: map[string]any{"text": "a"}},
		{ID: "b", Vector: []float32{0, 1, 0}},
		{ID: "c", Vector: []float32{0, 0, 1}},
	}
	ids, err := s.Upsert(context.Background(), points)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, []string{
		"PUT /collections/docs/points?wait=true",
		"PUT /collections/docs/points?wait=true",
	}, f.reqs())
	assert.Len(t, f.body(0)["points"], 2)
	assert.Len(t, f.body(1)["points"], 1)
}

func TestUpsert_ValidatesBeforeWriting(t *testing.T) {
	f := &fakeQdrant{exists: true}
	s := newStore(t, f, domain.DistanceCosine)

	_, err := s.Upsert(context.Background(), []domain.VectorPoint{
		{ID: "a", Vector: []float32{1, 0, 0}},
		{ID: "b", Vector: []float32{1, 0}},
	})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.ErrorIs(t, err, domain.ErrVectorStore)
	assert.Empty(t, f.reqs())
}

func TestSearch(t *testing.T) {
	f := &fakeQdrant{exists: true, search: `{"result":[
		{"id":"p1","score":0.25,"payload":{"text":"one","chunk_idx":0}},
		{"id":"p2","score":0.5,"payload":{"text":"two"}}
	]}`}
	s := newStore(t, f, domain.DistanceEuclid)

	hits, err := s.Search(context.Background(), []float32{1, 0, 0}, 2, map[string]any{"profile": "p", "doc_path": "a.json"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "p1", hits[0].ID)
	assert.InDelta(t, -0.25, hits[0].Score, 1e-9)
	assert.Equal(t, "one", hits[0].Payload["text"])

	body := f.body(0)
	assert.Equal(t, float64(2), body["limit"])
	assert.Equal(t, true, body["with_payload"])
	must := body["filter"].(map[string]any)["must"].([]any)
	require.Len(t, must, 2)
	assert.Equal(t, "doc_path", must[0].(map[string]any)["key"])
	assert.Equal(t, "profile", must[1].(map[string]any)["key"])
}

func TestSearch_RejectsWrongDimension(t *testing.T) {
	f := &fakeQdrant{exists: true, search: `{"result":[]}`}
	s := newStore(t, f, domain.DistanceCosine)

	_, err := s.Search(context.Background(), []float32{1, 2}, 5, nil)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.ErrorIs(t, err, domain.ErrVectorStore)
	assert.Empty(t, f.reqs())
}

func TestSearch_NoFilter(t *testing.T) {
	f := &fakeQdrant{exists: true, search: `{"result":[]}`}
	s := newStore(t, f, domain.DistanceCosine)

	hits, err := s.Search(context.Background(), []float32{1, 0, 0}, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.NotContains(t, f.body(0), "filter")
	assert.Equal(t, float64(domain.DefaultTopK), f.body(0)["limit"])
}

func TestCount(t *testing.T) {
	f := &fakeQdrant{exists: true}
	s := newStore(t, f, domain.DistanceCosine)

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()
	s := New(domain.VectorStoreConfig{URL: srv.URL, Collection: "docs"}, 3)

	_, err := s.CollectionExists(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrVectorStore)
	assert.ErrorContains(t, err, "upstream down")
}

func TestUnreachable(t *testing.T) {
	s := New(domain.VectorStoreConfig{URL: "http://127.0.0.1:1", Collection: "docs"}, 3)
	_, err := s.Count(context.Background())
	assert.ErrorIs(t, err, domain.ErrVectorStore)
}
