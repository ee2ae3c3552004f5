// Package cloudflare provides an embedding backend using Cloudflare
// Workers AI.
package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/embedding/wire"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Backend implements the interface.
var _ driven.EmbeddingBackend = (*Backend)(nil)

// Default configuration values.
const (
	DefaultBaseURL           = "https://api.cloudflare.com/client/v4"
	DefaultModel             = "@cf/baai/bge-base-en-v1.5"
	DefaultTimeout           = 120 * time.Second
	DefaultRequestsPerSecond = 10
)

// Config holds configuration for the Cloudflare backend.
type Config struct {
	AccountID string
	APIToken  string

	// Model is the Workers AI model (default: @cf/baai/bge-base-en-v1.5).
	Model string

	// BaseURL overrides the API root, mainly for tests.
	BaseURL string

	Timeout time.Duration

	// RequestsPerSecond throttles calls client-side. Burst equals the rate.
	RequestsPerSecond float64
}

// Backend generates embeddings using Workers AI.
type Backend struct {
	client    *http.Client
	baseURL   string
	accountID string
	token     string
	model     string
	limiter   *rate.Limiter
}

type runRequest struct {
	Text string `json:"text"`
}

type runResponse struct {
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Result any `json:"result"`
}

// New creates a Cloudflare backend. AccountID and APIToken are required.
func New(cfg Config) (*Backend, error) {
	if cfg.AccountID == "" || cfg.APIToken == "" {
		return nil, fmt.Errorf("%w: cloudflare account id and api token are required", domain.ErrEmbeddingUnavailable)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}

	return &Backend{
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		accountID: cfg.AccountID,
		token:     cfg.APIToken,
		model:     cfg.Model,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(1, int(cfg.RequestsPerSecond))),
	}, nil
}

// Name returns "cloudflare".
func (b *Backend) Name() string { return domain.BackendCloudflare }

// Model returns the Workers AI model.
func (b *Backend) Model() string { return b.model }

func (b *Backend) runURL() string {
	// Model names contain slashes ("@cf/baai/..."), which are part of the path.
	return fmt.Sprintf("%s/accounts/%s/ai/run/%s", b.baseURL, url.PathEscape(b.accountID), b.model)
}

// Embed generates a vector embedding for the given text.
func (b *Backend) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	jsonBody, err := json.Marshal(runRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.runURL(), bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.token)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, wire.StatusError(domain.BackendCloudflare, resp)
	}

	var out runResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("cloudflare: decode response: %w", err)
	}
	if len(out.Errors) > 0 && out.Result == nil {
		return nil, fmt.Errorf("cloudflare: %s (code %d)", out.Errors[0].Message, out.Errors[0].Code)
	}
	return parseResult(out.Result)
}

// parseResult accepts every result shape Workers AI models return:
// {"data":[[...]]}, [...], [[...]], {"embedding":[...]} and
// {"data":{"data":[...]}}.
func parseResult(result any) ([]float32, error) {
	switch r := result.(type) {
	case []any:
		return firstVector(r)
	case map[string]any:
		if data, ok := r["data"]; ok {
			switch d := data.(type) {
			case []any:
				return firstVector(d)
			case map[string]any:
				if inner, ok := d["data"].([]any); ok {
					return firstVector(inner)
				}
			}
		}
		if emb, ok := r["embedding"]; ok {
			return wire.Vector(emb)
		}
	}
	return nil, fmt.Errorf("cloudflare: unrecognised result shape %T", result)
}

// firstVector returns list itself when it is a vector, or its first
// element when it is a list of vectors.
func firstVector(list []any) ([]float32, error) {
	if wire.IsNumberArray(list) {
		return wire.Vector(list)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("cloudflare: empty result")
	}
	return wire.Vector(list[0])
}

// Ping verifies the API token.
func (b *Backend) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/user/tokens/verify", http.NoBody)
	if err != nil {
		return fmt.Errorf("cloudflare: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.token)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("cloudflare: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return wire.StatusError(domain.BackendCloudflare, resp)
	}
	return nil
}

// Close releases resources.
func (b *Backend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}
