package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure JobStore implements the interface.
var _ driven.JobStore = (*JobStore)(nil)

// JobStore is an in-memory implementation of driven.JobStore.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.Job
	now  func() time.Time
}

// NewJobStore creates a new in-memory job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]domain.Job),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// CreateJob stores a new job.
func (s *JobStore) CreateJob(_ context.Context, job *domain.Job) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	j := *job
	if j.CreatedAt.IsZero() {
		j.CreatedAt = s.now()
	}
	if j.UpdatedAt.IsZero() {
		j.UpdatedAt = j.CreatedAt
	}
	s.jobs[j.ID] = j
	return nil
}

// GetJob retrieves a job by id.
func (s *JobStore) GetJob(_ context.Context, id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &j, nil
}

// UpdateJob patches a non-terminal job.
func (s *JobStore) UpdateJob(_ context.Context, id string, update domain.JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Status.IsTerminal() || update.Empty() {
		return nil
	}
	update.Apply(&j)
	j.UpdatedAt = s.now()
	s.jobs[id] = j
	return nil
}

// FinishJob moves a job to a terminal status.
func (s *JobStore) FinishJob(_ context.Context, id string, status domain.JobStatus, errMsg string, force bool) (bool, error) {
	if !status.IsTerminal() {
		return false, domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if j.Status.IsTerminal() && !force {
		return false, nil
	}
	j.Status = status
	j.Phase = domain.PhaseFinished
	j.Error = errMsg
	j.UpdatedAt = s.now()
	s.jobs[id] = j
	return true, nil
}

// CancelActive cancels queued and running jobs of a profile.
func (s *JobStore) CancelActive(_ context.Context, profile string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, j := range s.jobs {
		if j.Profile != profile || !j.Status.IsActive() {
			continue
		}
		j.Status = domain.JobCanceled
		j.Phase = domain.PhaseFinished
		j.Error = domain.ErrCanceledByUser.Error()
		j.UpdatedAt = s.now()
		s.jobs[id] = j
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ListJobs returns jobs newest first.
func (s *JobStore) ListJobs(_ context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	filter = filter.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if filter.Profile != "" && j.Profile != filter.Profile {
			continue
		}
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return out[a].ID > out[b].ID
	})
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
