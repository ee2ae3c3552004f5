package loaders

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/loaders/pages"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.LoaderRegistry = (*Registry)(nil)

// Registry maps document type tags to loaders.
type Registry struct {
	mu      sync.RWMutex
	loaders map[domain.DocumentType]driven.DocumentLoader

	// pageCounter counts pages of PDF documents for preflight totals.
	// When nil, pages_total is always 0.
	pageCounter driven.PageCounter
}

// NewRegistry creates a registry. pageCounter may be nil.
func NewRegistry(pageCounter driven.PageCounter, loaders ...driven.DocumentLoader) *Registry {
	r := &Registry{
		loaders:     make(map[domain.DocumentType]driven.DocumentLoader),
		pageCounter: pageCounter,
	}
	for _, l := range loaders {
		r.Register(l)
	}
	return r
}

// Register adds a loader for its type, replacing any previous one.
func (r *Registry) Register(loader driven.DocumentLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[loader.Type()] = loader
}

// Types returns the registered type tags.
func (r *Registry) Types() []domain.DocumentType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]domain.DocumentType, 0, len(r.loaders))
	for t := range r.loaders {
		types = append(types, t)
	}
	return types
}

func (r *Registry) lookup(t domain.DocumentType) (driven.DocumentLoader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.loaders[domain.DocumentType(strings.ToLower(strings.TrimSpace(string(t))))]
	return l, ok
}

// KnownDocumentCount counts documents that have a registered loader.
func (r *Registry) KnownDocumentCount(profile *domain.Profile) int {
	n := 0
	for _, doc := range profile.Documents {
		if _, ok := r.lookup(doc.Type); ok {
			n++
		}
	}
	return n
}

// EstimatePagesTotal sums selected pages across PDF documents. It counts
// true page counts independently of extraction, so a PDF that later fails
// to extract still contributes here. Unreadable PDFs contribute 0.
func (r *Registry) EstimatePagesTotal(ctx context.Context, profile *domain.Profile) int {
	if r.pageCounter == nil {
		return 0
	}

	total := 0
	for _, doc := range profile.Documents {
		if !strings.EqualFold(string(doc.Type), string(domain.DocumentTypePDF)) {
			continue
		}
		path := strings.TrimSpace(doc.Path)
		if !fileExists(path) {
			continue
		}

		count, err := r.pageCounter.PageCount(ctx, path)
		if err != nil {
			logger.Debug("loaders.pages.skip path=%s err=%v", path, err)
			continue
		}
		include, exclude := profile.PagesFor(doc)
		selected, err := pages.Compute(include, exclude, count)
		if err != nil {
			logger.Debug("loaders.pages.skip path=%s err=%v", path, err)
			continue
		}
		total += len(selected)
	}
	return total
}

// Collect loads and chunks every known document of the profile.
//
// FilesTotal counts documents of a known type whose loader ran, including
// ones that failed; PagesTotal comes from EstimatePagesTotal. The context
// is checked between documents, and cancellation is the only error
// returned.
func (r *Registry) Collect(ctx context.Context, profile *domain.Profile, progress driven.ProgressFunc) ([]domain.Chunk, domain.CollectStats, error) {
	var (
		chunks    []domain.Chunk
		stats     domain.CollectStats
		pagesDone int
	)

	for _, doc := range profile.Documents {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		loader, ok := r.lookup(doc.Type)
		if !ok {
			logger.Debug("loaders.skip type=%s path=%s reason=unknown-type", doc.Type, doc.Path)
			continue
		}

		path := strings.TrimSpace(doc.Path)
		if !fileExists(path) {
			logger.Warn("loaders.skip type=%s path=%s reason=missing", doc.Type, path)
			continue
		}

		include, exclude := profile.PagesFor(doc)
		pieces, err := loader.Load(ctx, path, driven.LoadOptions{
			DocID:        profile.Name,
			Chunking:     profile.Chunking,
			IncludePages: include,
			ExcludePages: exclude,
		})
		stats.FilesTotal++
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, stats, err
			}
			lerr := &domain.LoaderError{Type: loader.Type(), Path: path, Err: err}
			logger.Warn("loaders.fail %v", lerr)
		}

		for _, c := range pieces {
			if strings.TrimSpace(c.Text) == "" {
				continue
			}
			chunks = append(chunks, c)
		}
		pagesDone += countPages(pieces)

		if progress != nil {
			progress(domain.DocumentProgress{
				Path:        path,
				FilesDone:   stats.FilesTotal,
				PagesDone:   pagesDone,
				ChunksSoFar: len(chunks),
			})
		}
	}

	stats.PagesTotal = r.EstimatePagesTotal(ctx, profile)
	return chunks, stats, nil
}

// countPages returns the number of distinct pages the chunks came from.
func countPages(chunks []domain.Chunk) int {
	seen := make(map[int]struct{})
	for _, c := range chunks {
		if c.Metadata.PageStart > 0 {
			seen[c.Metadata.PageStart] = struct{}{}
		}
	}
	return len(seen)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
