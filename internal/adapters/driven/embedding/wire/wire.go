// Package wire holds the response handling shared by the HTTP embedding
// backends.
package wire

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// maxErrorBody caps how much of an error body is kept.
const maxErrorBody = 2048

// StatusError converts a non-2xx response into a *domain.BackendError.
// The body is read and truncated; Retry-After is honoured in seconds or
// HTTP-date form.
func StatusError(backend string, resp *http.Response) *domain.BackendError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &domain.BackendError{
		Backend:    backend,
		StatusCode: resp.StatusCode,
		RetryAfter: RetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		Body:       strings.TrimSpace(string(body)),
	}
}

// RetryAfter parses a Retry-After header value. Unknown or past values
// yield zero.
func RetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// Vector converts a decoded JSON array into a vector. Every element must
// be a number; nulls, booleans and nested values are rejected.
func Vector(raw any) ([]float32, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: embedding is %T, not an array", domain.ErrInvalidVector, raw)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", domain.ErrInvalidVector)
	}
	out := make([]float32, len(items))
	for i, it := range items {
		f, ok := it.(float64)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %T", domain.ErrInvalidVector, i, it)
		}
		out[i] = float32(f)
	}
	return out, nil
}

// IsNumberArray reports whether v is a non-empty array whose first element
// is a number.
func IsNumberArray(v any) bool {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return false
	}
	_, ok = items[0].(float64)
	return ok
}
