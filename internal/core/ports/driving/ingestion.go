package driving

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// IngestionService runs ingestion jobs in the background.
type IngestionService interface {
	// Enqueue starts a job for a profile, canceling any active job of the
	// same profile first. Fails with ErrProfileNotFound or ErrNoDocuments
	// before any job record exists.
	Enqueue(ctx context.Context, profile string, truncate bool) (*domain.EnqueueResult, error)

	// CancelAll cancels every job running in this process and returns
	// their ids. Every returned job is canceled in the job store.
	CancelAll(ctx context.Context) ([]string, error)

	// CancelProfile cancels the active jobs of one profile, including
	// records left by another process, and returns how many were canceled.
	CancelProfile(ctx context.Context, profile string) (int, error)

	// GetJob returns a job snapshot or ErrNotFound.
	GetJob(ctx context.Context, id string) (*domain.Job, error)

	// ListJobs returns job snapshots newest first.
	ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error)

	// Wait blocks until a job started by this process exits or ctx ends.
	Wait(ctx context.Context, id string) error
}
