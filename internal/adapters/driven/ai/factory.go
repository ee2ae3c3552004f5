// Package ai builds embedding backends from profile configuration.
package ai

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/embedding/cloudflare"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.EmbeddingBackendFactory = (*Factory)(nil)

// Factory creates embedding backends by name.
type Factory struct {
	// CloudflareRPS overrides the Cloudflare client-side rate limit.
	CloudflareRPS float64
}

// NewFactory returns a Factory with default settings.
func NewFactory() *Factory {
	return &Factory{}
}

// Create returns the named backend configured from cfg.
func (f *Factory) Create(name string, cfg domain.EmbeddingConfig) (driven.EmbeddingBackend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case domain.BackendOllama:
		return createOllama(cfg), nil

	case domain.BackendCloudflare:
		b, err := cloudflare.New(cloudflare.Config{
			AccountID:         cfg.Cloudflare.AccountID,
			APIToken:          cfg.Cloudflare.APIToken,
			Model:             cfg.Cloudflare.Model,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: f.CloudflareRPS,
		})
		if err != nil {
			return nil, err
		}
		return b, nil

	case domain.BackendOpenAI:
		b, err := openai.New(openai.Config{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.OpenAI.Model,
			Timeout:    cfg.Timeout,
			Dimensions: cfg.Dim,
		})
		if err != nil {
			return nil, err
		}
		return b, nil

	default:
		return nil, fmt.Errorf("%w: embedding backend %q", domain.ErrUnsupportedType, name)
	}
}

// createOllama never fails: an unreachable server only shows up on Embed.
func createOllama(cfg domain.EmbeddingConfig) driven.EmbeddingBackend {
	return ollama.New(ollama.Config{
		BaseURL:   cfg.Ollama.Host,
		Model:     cfg.Ollama.Model,
		KeepAlive: cfg.KeepAlive,
		Timeout:   cfg.Timeout,
	})
}
