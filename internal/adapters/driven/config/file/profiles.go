package file

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// profilesFile is the on-disk document: {version, profiles: [...]}.
type profilesFile struct {
	Version  int           `yaml:"version" toml:"version"`
	Profiles []profileEntry `yaml:"profiles" toml:"profiles"`
}

// Pointer fields distinguish "unset" from an explicit zero.
type profileEntry struct {
	Name         string          `yaml:"name" toml:"name"`
	IncludePages string          `yaml:"include_pages" toml:"include_pages"`
	ExcludePages string          `yaml:"exclude_pages" toml:"exclude_pages"`
	Documents    []documentEntry `yaml:"documents" toml:"documents"`
	Chunking     chunkingEntry   `yaml:"chunking" toml:"chunking"`
	Embedding    embeddingEntry  `yaml:"embedding" toml:"embedding"`
	VectorDB     vectorDBEntry   `yaml:"vectordb" toml:"vectordb"`
}

type documentEntry struct {
	Type         string `yaml:"type" toml:"type"`
	Path         string `yaml:"path" toml:"path"`
	IncludePages string `yaml:"include_pages" toml:"include_pages"`
	ExcludePages string `yaml:"exclude_pages" toml:"exclude_pages"`
}

type chunkingEntry struct {
	Size    *int `yaml:"size" toml:"size"`
	Overlap *int `yaml:"overlap" toml:"overlap"`
}

type embeddingEntry struct {
	Dim            *int     `yaml:"dim" toml:"dim"`
	KeepAlive      string   `yaml:"keep_alive" toml:"keep_alive"`
	TimeoutSeconds *float64 `yaml:"timeout_seconds" toml:"timeout_seconds"`
	MaxRetries     *int     `yaml:"max_retries" toml:"max_retries"`
	Concurrency    *int     `yaml:"concurrency" toml:"concurrency"`
	PacingMS       *int     `yaml:"pacing_ms" toml:"pacing_ms"`
	MaxChars       *int     `yaml:"max_chars" toml:"max_chars"`
	Cache          string   `yaml:"cache" toml:"cache"`
	Backend        struct {
		Primary  string `yaml:"primary" toml:"primary"`
		Fallback string `yaml:"fallback" toml:"fallback"`
	} `yaml:"backend" toml:"backend"`
	Ollama struct {
		Host  string `yaml:"host" toml:"host"`
		Model string `yaml:"model" toml:"model"`
	} `yaml:"ollama" toml:"ollama"`
	Cloudflare struct {
		AccountID string `yaml:"account_id" toml:"account_id"`
		APIToken  string `yaml:"api_token" toml:"api_token"`
		Model     string `yaml:"model" toml:"model"`
	} `yaml:"cloudflare" toml:"cloudflare"`
	OpenAI struct {
		APIKey  string `yaml:"api_key" toml:"api_key"`
		BaseURL string `yaml:"base_url" toml:"base_url"`
		Model   string `yaml:"model" toml:"model"`
	} `yaml:"openai" toml:"openai"`
}

type vectorDBEntry struct {
	Kind           string   `yaml:"kind" toml:"kind"`
	URL            string   `yaml:"url" toml:"url"`
	DSN            string   `yaml:"dsn" toml:"dsn"`
	Collection     string   `yaml:"collection" toml:"collection"`
	Distance       string   `yaml:"distance" toml:"distance"`
	TimeoutSeconds *float64 `yaml:"timeout_seconds" toml:"timeout_seconds"`
	BatchSize      *int     `yaml:"batch_size" toml:"batch_size"`
}

// Defaults are process-level values that fill fields a profile leaves
// unset. Nil pointers mean "no default from the environment".
type Defaults struct {
	VectorDBURL string

	Primary   string
	Fallback  string
	KeepAlive string

	OllamaHost  string
	OllamaModel string

	CloudflareAccountID string
	CloudflareAPIToken  string
	CloudflareModel     string

	OpenAIAPIKey string

	TimeoutSeconds *float64
	MaxRetries     *int
	Concurrency    *int
	PacingMS       *int
	MaxChars       *int
}

func firstString(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func firstOf[T any](fallback T, values ...*T) T {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return fallback
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// toProfile converts an entry, resolving relative document paths against
// baseDir, then applies defaults and validates.
func (e profileEntry) toProfile(baseDir string, d Defaults) (*domain.Profile, error) {
	distance, err := domain.ParseDistance(e.VectorDB.Distance)
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", e.Name, err)
	}

	p := &domain.Profile{
		Name:         e.Name,
		IncludePages: e.IncludePages,
		ExcludePages: e.ExcludePages,
		Chunking: domain.ChunkingConfig{
			Size:    firstOf(domain.DefaultChunkSize, e.Chunking.Size),
			Overlap: firstOf(domain.DefaultChunkOverlap, e.Chunking.Overlap),
		},
	}

	for _, doc := range e.Documents {
		path := doc.Path
		if path != "" && !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		p.Documents = append(p.Documents, domain.DocumentSpec{
			Type:         domain.DocumentType(strings.ToLower(strings.TrimSpace(doc.Type))),
			Path:         path,
			IncludePages: doc.IncludePages,
			ExcludePages: doc.ExcludePages,
		})
	}

	emb := e.Embedding
	pacing := firstOf(int(domain.DefaultEmbedPacing/time.Millisecond), emb.PacingMS, d.PacingMS)
	p.Embedding = domain.EmbeddingConfig{
		Dim:         firstOf(domain.DefaultDim, emb.Dim),
		Primary:     firstString(emb.Backend.Primary, d.Primary),
		Fallback:    firstString(emb.Backend.Fallback, d.Fallback),
		KeepAlive:   firstString(emb.KeepAlive, d.KeepAlive),
		Timeout:     seconds(firstOf(domain.DefaultEmbedTimeout.Seconds(), emb.TimeoutSeconds, d.TimeoutSeconds)),
		MaxRetries:  firstOf(domain.DefaultMaxRetries, emb.MaxRetries, d.MaxRetries),
		Concurrency: firstOf(domain.DefaultEmbedConcurrency, emb.Concurrency, d.Concurrency),
		Pacing:      time.Duration(pacing) * time.Millisecond,
		MaxChars:    firstOf(domain.DefaultEmbedMaxChars, emb.MaxChars, d.MaxChars),
		Cache:       strings.ToLower(strings.TrimSpace(emb.Cache)),
		Ollama: domain.OllamaConfig{
			Host:  firstString(emb.Ollama.Host, d.OllamaHost),
			Model: firstString(emb.Ollama.Model, d.OllamaModel),
		},
		Cloudflare: domain.CloudflareConfig{
			AccountID: firstString(emb.Cloudflare.AccountID, d.CloudflareAccountID),
			APIToken:  firstString(emb.Cloudflare.APIToken, d.CloudflareAPIToken),
			Model:     firstString(emb.Cloudflare.Model, d.CloudflareModel),
		},
		OpenAI: domain.OpenAIConfig{
			APIKey:  firstString(emb.OpenAI.APIKey, d.OpenAIAPIKey),
			BaseURL: emb.OpenAI.BaseURL,
			Model:   emb.OpenAI.Model,
		},
	}

	vdb := e.VectorDB
	kind := strings.ToLower(strings.TrimSpace(vdb.Kind))
	url := firstString(vdb.URL, vdb.DSN)
	if url == "" && kind != domain.VectorStoreMemory {
		url = d.VectorDBURL
	}
	p.VectorStore = domain.VectorStoreConfig{
		Kind:       kind,
		URL:        url,
		Collection: strings.TrimSpace(vdb.Collection),
		Distance:   distance,
		Timeout:    seconds(firstOf(domain.DefaultVectorStoreTimeout.Seconds(), vdb.TimeoutSeconds)),
		BatchSize:  firstOf(domain.DefaultUpsertBatchSize, vdb.BatchSize),
	}

	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
