package driven

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// JobStore persists ingestion jobs. It is the source of truth for job state;
// in-process task handles are only a cache.
type JobStore interface {
	// CreateJob inserts a new job.
	CreateJob(ctx context.Context, job *domain.Job) error

	// GetJob returns a job or domain.ErrNotFound.
	GetJob(ctx context.Context, id string) (*domain.Job, error)

	// UpdateJob applies a field-level update and bumps updated_at.
	// Updates to a job already in a terminal status are ignored, so a
	// worker that observes cancellation late cannot resurrect it.
	UpdateJob(ctx context.Context, id string, update domain.JobUpdate) error

	// FinishJob moves a job to a terminal status with phase finished.
	// Returns false when the job was already terminal. force overrides a
	// previous terminal status, used when cancellation must win.
	FinishJob(ctx context.Context, id string, status domain.JobStatus, errMsg string, force bool) (bool, error)

	// CancelActive marks every queued or running job of a profile canceled
	// and returns their ids.
	CancelActive(ctx context.Context, profile string) ([]string, error)

	// ListJobs returns jobs newest first.
	ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error)
}
