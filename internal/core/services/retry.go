package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// Backoff constants for per-item embedding retries.
const (
	backoffBase      = 800 * time.Millisecond
	backoffJitter    = 250 * time.Millisecond
	rateLimitFloor   = 2 * time.Second
	serverErrorFloor = time.Second
)

// isRetryable reports whether an embedding call failure is worth another
// attempt. Retryable statuses, timeouts and transport errors are. Anything
// else, malformed responses included, is final for the item.
func isRetryable(err error) bool {
	var be *domain.BackendError
	if errors.As(err, &be) {
		return be.Retryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// retryDelay is 0.8s * 2^attempt plus jitter, raised to Retry-After (or 2s)
// for 429 and to 1s for the other retryable statuses.
func retryDelay(attempt int, err error, jitter time.Duration) time.Duration {
	d := backoffBase*time.Duration(1<<attempt) + jitter

	var be *domain.BackendError
	if !errors.As(err, &be) {
		return d
	}
	switch be.StatusCode {
	case http.StatusTooManyRequests:
		floor := be.RetryAfter
		if floor <= 0 {
			floor = rateLimitFloor
		}
		return max(d, floor)
	case http.StatusRequestTimeout, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return max(d, serverErrorFloor)
	}
	return d
}

func randomJitter() time.Duration {
	return rand.N(backoffJitter)
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
