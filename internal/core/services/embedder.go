package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Embedder turns texts into vectors through an ordered list of backends.
//
// Each text is embedded by its own call, fanned out over a bounded worker
// pool. Items that exhaust their retries on one backend move to the next;
// items that succeeded are kept. Every vector is checked against the
// configured dimension, and a bad vector aborts the whole call.
type Embedder struct {
	cfg      domain.EmbeddingConfig
	backends []driven.EmbeddingBackend
	cache    driven.EmbeddingCache

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

// NewEmbedder creates an embedder. backends must be in priority order and
// cache may be nil.
func NewEmbedder(cfg domain.EmbeddingConfig, backends []driven.EmbeddingBackend, cache driven.EmbeddingCache) *Embedder {
	return &Embedder{
		cfg:      cfg,
		backends: backends,
		cache:    cache,
		sleep:    sleepCtx,
		jitter:   randomJitter,
	}
}

// Backends returns the configured backends in priority order.
func (e *Embedder) Backends() []driven.EmbeddingBackend {
	return e.backends
}

// Dim returns the expected vector length.
func (e *Embedder) Dim() int {
	return e.cfg.Dim
}

// Close releases every backend.
func (e *Embedder) Close() error {
	var errs []error
	for _, b := range e.backends {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EmbedQuery embeds a single search query, bypassing the cache.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text}, nil, false)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Embed returns one vector per text, in input order. ids are cache keys;
// the cache is only consulted when len(ids) == len(texts).
func (e *Embedder) Embed(ctx context.Context, texts []string, ids []string) ([][]float32, error) {
	return e.embed(ctx, texts, ids, e.cache != nil && len(ids) == len(texts))
}

func (e *Embedder) embed(ctx context.Context, texts []string, ids []string, useCache bool) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(e.backends) == 0 {
		return nil, &domain.EmbeddingError{Backend: "none", Err: domain.ErrEmbeddingUnavailable}
	}

	inputs := make([]string, len(texts))
	for i, t := range texts {
		inputs[i] = trimRunes(t, e.cfg.MaxChars)
	}

	out := make([][]float32, len(texts))
	pending := make([]int, 0, len(texts))
	for i := range inputs {
		if useCache {
			if vec, ok := e.cached(ctx, ids[i]); ok {
				out[i] = vec
				continue
			}
		}
		pending = append(pending, i)
	}
	if hits := len(texts) - len(pending); hits > 0 {
		logger.Debug("embed.cache hits=%d misses=%d", hits, len(pending))
	}

	var (
		lastErr     error
		lastBackend string
	)
	for _, b := range e.backends {
		if len(pending) == 0 {
			break
		}
		res, err := e.runBackend(ctx, b, inputs, pending, out, ids, useCache)
		if err != nil {
			return nil, err
		}
		if len(res.failed) > 0 {
			logger.Warn("embed.backend.partial backend=%s failed=%d of=%d err=%v", b.Name(), len(res.failed), len(pending), res.lastErr)
		}
		pending, lastErr, lastBackend = res.failed, res.lastErr, b.Name()
	}

	if len(pending) > 0 {
		return nil, &domain.EmbeddingError{Backend: lastBackend, Err: lastErr}
	}
	return out, nil
}

// backendResult lists the items a backend gave up on.
type backendResult struct {
	failed  []int
	lastErr error
}

// runBackend embeds the pending items with one backend. A returned error
// aborts the whole call: cancellation or an invalid vector.
func (e *Embedder) runBackend(
	ctx context.Context,
	b driven.EmbeddingBackend,
	inputs []string,
	pending []int,
	out [][]float32,
	ids []string,
	useCache bool,
) (backendResult, error) {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := ants.NewPool(max(1, e.cfg.Concurrency))
	if err != nil {
		return backendResult{}, &domain.EmbeddingError{Backend: b.Name(), Err: err}
	}
	defer pool.Release()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		failed  []int
		itemErr error
		fatal   error
	)

	for _, idx := range pending {
		if callCtx.Err() != nil {
			break
		}
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					if fatal == nil {
						fatal = &domain.EmbeddingError{Backend: b.Name(), Err: fmt.Errorf("panic: %v", r)}
					}
					mu.Unlock()
					cancel()
				}
			}()

			if err := e.sleep(callCtx, e.cfg.Pacing); err != nil {
				return
			}
			vec, err := e.embedWithRetry(callCtx, b, inputs[idx])
			if err == nil {
				err = domain.ValidateVector(vec, e.cfg.Dim)
				if err != nil {
					mu.Lock()
					if fatal == nil {
						fatal = &domain.EmbeddingError{Backend: b.Name(), Err: err}
					}
					mu.Unlock()
					cancel()
					return
				}
				out[idx] = vec
				if useCache {
					e.store(callCtx, b, ids[idx], vec)
				}
				return
			}
			if callCtx.Err() != nil {
				return
			}
			mu.Lock()
			failed = append(failed, idx)
			itemErr = err
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			cancel()
			wg.Wait()
			return backendResult{}, &domain.EmbeddingError{Backend: b.Name(), Err: submitErr}
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return backendResult{}, fmt.Errorf("embedding interrupted: %w", err)
	}
	if fatal != nil {
		return backendResult{}, fatal
	}
	slices.Sort(failed)
	return backendResult{failed: failed, lastErr: itemErr}, nil
}

// embedWithRetry makes up to MaxRetries+1 attempts, each bounded by the
// configured timeout.
func (e *Embedder) embedWithRetry(ctx context.Context, b driven.EmbeddingBackend, text string) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		callCtx := ctx
		cancel := context.CancelFunc(func() {})
		if e.cfg.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		}
		vec, err := b.Embed(callCtx, text)
		cancel()
		if err == nil {
			return vec, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		if !isRetryable(err) || attempt == e.cfg.MaxRetries {
			break
		}
		wait := retryDelay(attempt, err, e.jitter())
		logger.Debug("embed.retry backend=%s attempt=%d wait=%s err=%v", b.Name(), attempt+1, wait, err)
		if err := e.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// cacheKey scopes id to the backend, model and dimension that produce the
// vector.
func (e *Embedder) cacheKey(b driven.EmbeddingBackend, id string) string {
	return fmt.Sprintf("%s/%s/%d|%s", b.Name(), b.Model(), e.cfg.Dim, id)
}

// cached returns a usable vector cached for the primary backend. Lookup
// errors and vectors that fail validation count as misses.
func (e *Embedder) cached(ctx context.Context, id string) ([]float32, bool) {
	vec, ok, err := e.cache.Get(ctx, e.cacheKey(e.backends[0], id))
	if err != nil {
		logger.Debug("embed.cache.get id=%s err=%v", id, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if err := domain.ValidateVector(vec, e.cfg.Dim); err != nil {
		logger.Warn("embed.cache.invalid id=%s err=%v", id, err)
		return nil, false
	}
	return vec, true
}

func (e *Embedder) store(ctx context.Context, b driven.EmbeddingBackend, id string, vec []float32) {
	if err := e.cache.Set(ctx, e.cacheKey(b, id), vec); err != nil {
		logger.Debug("embed.cache.set id=%s err=%v", id, err)
	}
}

// trimRunes cuts s to at most n runes. n <= 0 disables trimming.
func trimRunes(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
