// Package ollama provides an embedding backend using Ollama.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/embedding/wire"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Backend implements the interface.
var _ driven.EmbeddingBackend = (*Backend)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = domain.DefaultOllamaModel
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Ollama backend.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model to use (default: nomic-embed-text).
	Model string

	// KeepAlive tells Ollama how long to keep the model loaded ("15m").
	KeepAlive string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Backend generates embeddings using Ollama.
type Backend struct {
	client    *http.Client
	baseURL   string
	model     string
	keepAlive string
}

// embedRequest is the Ollama API request format.
type embedRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	KeepAlive string `json:"keep_alive,omitempty"`
}

// embedResponse covers both response shapes Ollama versions return.
type embedResponse struct {
	Embedding  any `json:"embedding"`
	Embeddings any `json:"embeddings"`
}

// New creates a new Ollama backend.
func New(cfg Config) *Backend {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Backend{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		model:     cfg.Model,
		keepAlive: cfg.KeepAlive,
	}
}

// Name returns "ollama".
func (b *Backend) Name() string { return domain.BackendOllama }

// Model returns the embedding model.
func (b *Backend) Model() string { return b.model }

// Embed generates a vector embedding for the given text.
func (b *Backend) Embed(ctx context.Context, text string) ([]float32, error) {
	jsonBody, err := json.Marshal(embedRequest{
		Model:     b.model,
		Prompt:    text,
		KeepAlive: b.keepAlive,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		b.baseURL+"/api/embeddings",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, wire.StatusError(domain.BackendOllama, resp)
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}
	return parseResponse(embedResp)
}

func parseResponse(r embedResponse) ([]float32, error) {
	if r.Embedding != nil {
		return wire.Vector(r.Embedding)
	}
	if list, ok := r.Embeddings.([]any); ok {
		if len(list) != 1 {
			return nil, fmt.Errorf("ollama: expected exactly one embedding, got %d", len(list))
		}
		return wire.Vector(list[0])
	}
	return nil, fmt.Errorf("ollama: response has no embedding")
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (b *Backend) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return wire.StatusError(domain.BackendOllama, resp)
	}
	return nil
}

// Close releases resources.
func (b *Backend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}
