package domain

import (
	"fmt"
	"strings"
	"time"
)

// DocumentType tags a document spec with the loader that handles it.
type DocumentType string

const (
	DocumentTypePDF  DocumentType = "pdf"
	DocumentTypeJSON DocumentType = "json"
)

// Embedding backend names.
const (
	BackendOllama     = "ollama"
	BackendCloudflare = "cloudflare"
	BackendOpenAI     = "openai"
)

// Embedding cache kinds.
const (
	CacheNone   = "none"
	CacheSQLite = "sqlite"
	CacheBadger = "badger"
	CacheMemory = "memory"
)

// Vector store kinds.
const (
	VectorStoreQdrant   = "qdrant"
	VectorStorePGVector = "pgvector"
	VectorStoreMemory   = "memory"
)

// Profile defaults.
const (
	DefaultChunkSize          = 1200
	DefaultChunkOverlap       = 200
	DefaultDim                = 768
	DefaultKeepAlive          = "15m"
	DefaultEmbedTimeout       = 120 * time.Second
	DefaultMaxRetries         = 2
	DefaultEmbedConcurrency   = 2
	DefaultEmbedPacing        = 150 * time.Millisecond
	DefaultEmbedMaxChars      = 8000
	DefaultCollection         = "docs_default"
	DefaultVectorStoreTimeout = 30 * time.Second
	DefaultUpsertBatchSize    = 256
	DefaultOllamaModel        = "nomic-embed-text"
)

// Profile is a named ingestion and search configuration.
// It is loaded fresh per request and never mutated during a job.
type Profile struct {
	Name      string
	Documents []DocumentSpec

	// IncludePages and ExcludePages are defaults for PDF documents
	// that do not set their own.
	IncludePages string
	ExcludePages string

	Chunking    ChunkingConfig
	Embedding   EmbeddingConfig
	VectorStore VectorStoreConfig
}

// DocumentSpec points at one input document.
type DocumentSpec struct {
	Type         DocumentType
	Path         string
	IncludePages string
	ExcludePages string
}

// ChunkingConfig holds chunk size and overlap in characters (or words for
// the word chunker).
type ChunkingConfig struct {
	Size    int
	Overlap int
}

// OllamaConfig configures the Ollama backend.
type OllamaConfig struct {
	Host  string
	Model string
}

// CloudflareConfig configures the Cloudflare Workers AI backend.
type CloudflareConfig struct {
	AccountID string
	APIToken  string
	Model     string
}

// OpenAIConfig configures an OpenAI-compatible embeddings backend.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// EmbeddingConfig selects and tunes the embedding backends.
type EmbeddingConfig struct {
	// Dim is the expected vector length. Every vector is checked against it.
	Dim int

	Primary  string
	Fallback string

	KeepAlive   string
	Timeout     time.Duration
	MaxRetries  int
	Concurrency int
	Pacing      time.Duration
	// MaxChars trims inputs before embedding. Zero or less disables trimming.
	MaxChars int

	// Cache is one of the Cache* kinds.
	Cache string

	Ollama     OllamaConfig
	Cloudflare CloudflareConfig
	OpenAI     OpenAIConfig
}

// VectorStoreConfig targets a collection in a vector database.
type VectorStoreConfig struct {
	Kind       string
	URL        string
	Collection string
	Distance   Distance
	Timeout    time.Duration
	BatchSize  int
}

// knownBackend returns name when it is a supported backend, "" otherwise.
func knownBackend(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case BackendOllama, BackendCloudflare, BackendOpenAI:
		return name
	}
	return ""
}

// BackendOrder returns [primary] or [primary, fallback] when a distinct
// fallback is configured.
func (c EmbeddingConfig) BackendOrder() []string {
	primary := knownBackend(c.Primary)
	if primary == "" {
		primary = BackendOllama
	}
	fallback := knownBackend(c.Fallback)
	if fallback != "" && fallback != primary {
		return []string{primary, fallback}
	}
	return []string{primary}
}

// ModelFor returns the model configured for a backend.
func (c EmbeddingConfig) ModelFor(backend string) string {
	switch backend {
	case BackendCloudflare:
		return c.Cloudflare.Model
	case BackendOpenAI:
		return c.OpenAI.Model
	default:
		return c.Ollama.Model
	}
}

// PrimaryBackend returns the first backend in BackendOrder.
func (c EmbeddingConfig) PrimaryBackend() string {
	return c.BackendOrder()[0]
}

// ApplyDefaults fills zero values with defaults. It returns the profile for
// chaining. Overlap, MaxRetries and Pacing keep their zero values since
// zero is meaningful for them; profile sources default those when unset.
func (p *Profile) ApplyDefaults() *Profile {
	if p.Chunking.Size == 0 {
		p.Chunking.Size = DefaultChunkSize
	}
	if p.Chunking.Overlap < 0 {
		p.Chunking.Overlap = 0
	}

	e := &p.Embedding
	if e.Dim == 0 {
		e.Dim = DefaultDim
	}
	e.Primary = knownBackend(e.Primary)
	if e.Primary == "" {
		e.Primary = BackendOllama
	}
	e.Fallback = knownBackend(e.Fallback)
	if e.KeepAlive == "" {
		e.KeepAlive = DefaultKeepAlive
	}
	if e.Timeout <= 0 {
		e.Timeout = DefaultEmbedTimeout
	}
	if e.MaxRetries < 0 {
		e.MaxRetries = 0
	}
	if e.Concurrency <= 0 {
		e.Concurrency = DefaultEmbedConcurrency
	}
	if e.Pacing < 0 {
		e.Pacing = 0
	}
	if e.Cache == "" {
		e.Cache = CacheSQLite
	}
	if e.Ollama.Model == "" {
		e.Ollama.Model = DefaultOllamaModel
	}
	e.Ollama.Host = strings.TrimRight(e.Ollama.Host, "/")

	v := &p.VectorStore
	if v.Kind == "" {
		v.Kind = VectorStoreQdrant
	}
	if v.Collection == "" {
		v.Collection = DefaultCollection
	}
	if v.Distance == "" {
		v.Distance = DistanceCosine
	}
	if v.Timeout <= 0 {
		v.Timeout = DefaultVectorStoreTimeout
	}
	if v.BatchSize <= 0 {
		v.BatchSize = DefaultUpsertBatchSize
	}
	return p
}

// Validate checks the fields a job cannot run without.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: profile name is required", ErrInvalidConfig)
	}
	if p.Embedding.Dim <= 0 {
		return fmt.Errorf("%w: embedding dim must be positive", ErrInvalidConfig)
	}
	if _, err := ParseDistance(string(p.VectorStore.Distance)); err != nil {
		return err
	}
	return nil
}

// PagesFor returns the include and exclude specs for a document, falling
// back to the profile-level specs.
func (p *Profile) PagesFor(doc DocumentSpec) (include, exclude string) {
	include, exclude = doc.IncludePages, doc.ExcludePages
	if include == "" {
		include = p.IncludePages
	}
	if exclude == "" {
		exclude = p.ExcludePages
	}
	return include, exclude
}
