package cloudflare

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func newTestBackend(t *testing.T, url string) *Backend {
	t.Helper()
	b, err := New(Config{AccountID: "acct", APIToken: "tok", BaseURL: url, RequestsPerSecond: 1000})
	require.NoError(t, err)
	return b
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{AccountID: "acct"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	b, err := New(Config{AccountID: "acct", APIToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, b.Model())
	assert.Equal(t, "cloudflare", b.Name())
}

func TestEmbed_Request(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/acct/ai/run/@cf/baai/bge-base-en-v1.5", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body runRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body.Text)
		_, _ = w.Write([]byte(`{"success":true,"result":{"shape":[1,2],"data":[[0.5,1.5]]}}`))
	}))
	defer srv.Close()

	vec, err := newTestBackend(t, srv.URL).Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 1.5}, vec)
}

func TestParseResult(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []float32
	}{
		{"data list of lists", `{"data":[[1,2]]}`, []float32{1, 2}},
		{"flat list", `[3,4]`, []float32{3, 4}},
		{"list of lists", `[[5,6],[7,8]]`, []float32{5, 6}},
		{"embedding", `{"embedding":[9]}`, []float32{9}},
		{"nested data", `{"data":{"data":[1,0]}}`, []float32{1, 0}},
		{"data flat", `{"data":[2,2]}`, []float32{2, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw any
			require.NoError(t, json.Unmarshal([]byte(tt.body), &raw))
			vec, err := parseResult(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, vec)
		})
	}

	for _, body := range []string{`null`, `"x"`, `{"foo":1}`, `[]`, `{"data":[]}`, `{"data":[[true]]}`} {
		var raw any
		require.NoError(t, json.Unmarshal([]byte(body), &raw))
		_, err := parseResult(raw)
		assert.Error(t, err, body)
	}
}

func TestEmbed_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestBackend(t, srv.URL).Embed(context.Background(), "x")
	var be *domain.BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusBadGateway, be.StatusCode)
	assert.True(t, be.Retryable())
}

func TestEmbed_APIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"errors":[{"code":5006,"message":"bad input"}],"result":null}`))
	}))
	defer srv.Close()

	_, err := newTestBackend(t, srv.URL).Embed(context.Background(), "x")
	assert.ErrorContains(t, err, "bad input")
}

func TestEmbed_LimiterHonoursContext(t *testing.T) {
	b := newTestBackend(t, "http://127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Embed(ctx, "x")
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/user/tokens/verify" && r.Header.Get("Authorization") == "Bearer tok" {
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	assert.NoError(t, newTestBackend(t, srv.URL).Ping(context.Background()))

	bad, err := New(Config{AccountID: "a", APIToken: "wrong", BaseURL: srv.URL})
	require.NoError(t, err)
	assert.Error(t, bad.Ping(context.Background()))
}
