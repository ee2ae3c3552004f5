package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// Cancellation timings used by CancelAll.
const (
	cancelSettle  = 50 * time.Millisecond
	cancelJobWait = time.Second
)

// IngestionService runs one background job per enqueue and keeps at most
// one active job per profile.
type IngestionService struct {
	profiles   driven.ProfileSource
	loaders    driven.LoaderRegistry
	jobs       driven.JobStore
	components *Components
	tasks      *taskRegistry

	// root is the parent of every job context. Jobs must outlive the
	// request that enqueued them.
	root       context.Context
	cancelRoot context.CancelFunc

	now func() time.Time
}

// NewIngestionService creates an ingestion service.
func NewIngestionService(
	profiles driven.ProfileSource,
	loaders driven.LoaderRegistry,
	jobs driven.JobStore,
	components *Components,
) *IngestionService {
	root, cancel := context.WithCancel(context.Background())
	return &IngestionService{
		profiles:   profiles,
		loaders:    loaders,
		jobs:       jobs,
		components: components,
		tasks:      newTaskRegistry(),
		root:       root,
		cancelRoot: cancel,
		now:        time.Now,
	}
}

// Enqueue validates the profile, cancels its active jobs, records a new
// queued job and starts it in the background.
func (s *IngestionService) Enqueue(ctx context.Context, profileName string, truncate bool) (*domain.EnqueueResult, error) {
	profile, err := s.profiles.LoadProfile(ctx, profileName)
	if err != nil {
		return nil, err
	}
	known := s.loaders.KnownDocumentCount(profile)
	if known == 0 {
		return nil, fmt.Errorf("%w: profile %q", domain.ErrNoDocuments, profile.Name)
	}

	pagesTotal := s.loaders.EstimatePagesTotal(ctx, profile)

	// Cancel, insert and register must not interleave with another
	// enqueue of the same profile.
	unlock := s.tasks.lockProfile(profile.Name)
	defer unlock()

	canceled, err := s.CancelProfile(ctx, profile.Name)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	primary := profile.Embedding.PrimaryBackend()
	job := &domain.Job{
		ID:         NewJobID(now),
		Profile:    profile.Name,
		Provider:   primary,
		ModelName:  profile.Embedding.ModelFor(primary),
		ModelDim:   profile.Embedding.Dim,
		VectorDB:   profile.VectorStore.Kind,
		Collection: profile.VectorStore.Collection,
		Truncate:   truncate,
		Status:     domain.JobQueued,
		Phase:      domain.PhasePreflight,
		FilesTotal: known,
		PagesTotal: pagesTotal,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	jobCtx, cancel := context.WithCancel(s.root)
	h := &taskHandle{profile: profile.Name, cancel: cancel, done: make(chan struct{})}
	s.tasks.add(job.ID, h)
	go s.run(jobCtx, h, job, profile)

	logger.Info("job.enqueue id=%s profile=%s truncate=%t canceled_previous=%d", job.ID, profile.Name, truncate, canceled)
	return &domain.EnqueueResult{
		Status:           domain.JobQueued,
		JobID:            job.ID,
		Profile:          profile.Name,
		CanceledPrevious: canceled,
		Collection:       job.Collection,
	}, nil
}

// CancelProfile marks the profile's active jobs canceled in the store and
// signals any of them running in this process.
func (s *IngestionService) CancelProfile(ctx context.Context, profile string) (int, error) {
	ids, err := s.jobs.CancelActive(ctx, profile)
	if err != nil {
		return 0, fmt.Errorf("cancel active jobs: %w", err)
	}
	signaled := s.tasks.signalProfile(profile)
	if len(ids) > 0 || len(signaled) > 0 {
		logger.Info("job.cancel.profile profile=%s store=%d signaled=%d", profile, len(ids), len(signaled))
	}
	return len(ids), nil
}

// CancelAll signals every job of this process, gives each up to a second
// to exit, then marks them all canceled regardless of what the worker
// recorded.
func (s *IngestionService) CancelAll(ctx context.Context) ([]string, error) {
	handles := s.tasks.snapshot()
	ids := make([]string, 0, len(handles))
	for id, h := range handles {
		h.cancel()
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) == 0 {
		return ids, nil
	}

	if err := sleepCtx(ctx, cancelSettle); err != nil {
		return nil, err
	}
	for _, id := range ids {
		t := time.NewTimer(cancelJobWait)
		select {
		case <-handles[id].done:
		case <-t.C:
			logger.Warn("job.cancel.slow id=%s", id)
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
		t.Stop()
	}

	for _, id := range ids {
		if _, err := s.jobs.FinishJob(ctx, id, domain.JobCanceled, domain.ErrCanceledByUser.Error(), true); err != nil {
			return nil, fmt.Errorf("mark job %s canceled: %w", id, err)
		}
	}
	logger.Info("job.cancel.all count=%d", len(ids))
	return ids, nil
}

// GetJob returns a job snapshot.
func (s *IngestionService) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	return s.jobs.GetJob(ctx, strings.TrimSpace(id))
}

// ListJobs returns job snapshots newest first.
func (s *IngestionService) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	return s.jobs.ListJobs(ctx, filter.Normalize())
}

// Wait blocks until a job of this process exits. Jobs not running here
// return immediately when they exist in the store.
func (s *IngestionService) Wait(ctx context.Context, id string) error {
	h, ok := s.tasks.get(id)
	if !ok {
		_, err := s.jobs.GetJob(ctx, id)
		return err
	}
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running returns how many jobs this process is running.
func (s *IngestionService) Running() int {
	return s.tasks.len()
}

// Shutdown cancels every job and stops accepting work.
func (s *IngestionService) Shutdown(ctx context.Context) error {
	_, err := s.CancelAll(ctx)
	s.cancelRoot()
	return err
}

// run is the job goroutine. It is the single place where errors become a
// failed job record.
func (s *IngestionService) run(ctx context.Context, h *taskHandle, job *domain.Job, profile *domain.Profile) {
	defer close(h.done)
	defer s.tasks.remove(job.ID)

	// Store writes must land even after the job context is canceled.
	store := context.WithoutCancel(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("job.panic id=%s profile=%s panic=%v", job.ID, job.Profile, r)
			s.finish(store, job.ID, domain.JobFailed, fmt.Sprintf("panic: %v", r))
		}
	}()

	logger.Info("job.start id=%s profile=%s provider=%s collection=%s", job.ID, job.Profile, job.Provider, job.Collection)
	err := s.execute(ctx, store, job, profile)

	switch {
	case err == nil:
		s.finish(store, job.ID, domain.JobCompleted, "")
		logger.Info("job.done id=%s profile=%s", job.ID, job.Profile)
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		s.finish(store, job.ID, domain.JobCanceled, domain.ErrCanceledByUser.Error())
		logger.Info("job.canceled id=%s profile=%s", job.ID, job.Profile)
	default:
		s.finish(store, job.ID, domain.JobFailed, err.Error())
		logger.Warn("job.failed id=%s profile=%s err=%v", job.ID, job.Profile, err)
	}
}

func (s *IngestionService) execute(ctx, store context.Context, job *domain.Job, profile *domain.Profile) error {
	embedder, err := s.components.Embedder(profile, true)
	if err != nil {
		return err
	}
	defer embedder.Close()

	vs, err := s.components.VectorStore(profile)
	if err != nil {
		return err
	}
	defer vs.Close()

	// PREFLIGHT
	if job.Truncate {
		err = vs.Truncate(ctx)
	} else {
		err = vs.EnsureCollection(ctx)
	}
	if err != nil {
		return err
	}
	s.update(store, job.ID, domain.JobUpdate{Status: domain.Ptr(domain.JobRunning)})

	// EXTRACT
	s.update(store, job.ID, domain.JobUpdate{Phase: domain.Ptr(domain.PhaseExtract)})
	chunks, stats, err := s.loaders.Collect(ctx, profile, func(p domain.DocumentProgress) {
		s.update(store, job.ID, domain.JobUpdate{
			FilesDone:   domain.Ptr(p.FilesDone),
			PagesDone:   domain.Ptr(p.PagesDone),
			ChunksDone:  domain.Ptr(p.ChunksSoFar),
			CurrentFile: domain.Ptr(p.Path),
		})
	})
	if err != nil {
		return err
	}
	s.update(store, job.ID, domain.JobUpdate{
		FilesTotal:  domain.Ptr(stats.FilesTotal),
		PagesTotal:  domain.Ptr(stats.PagesTotal),
		ChunksDone:  domain.Ptr(len(chunks)),
		CurrentFile: domain.Ptr(""),
	})
	if len(chunks) == 0 {
		logger.Info("job.empty id=%s profile=%s", job.ID, job.Profile)
		return nil
	}

	// EMBED
	s.update(store, job.ID, domain.JobUpdate{Phase: domain.Ptr(domain.PhaseEmbed)})
	texts := make([]string, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		ids[i] = fmt.Sprintf("%s:%d:%s", profile.Name, i, contentHash(c.Text)[:12])
	}
	logger.Debug("job.embed id=%s chunks=%d backends=%s", job.ID, len(chunks), describeBackends(embedder.Backends()))

	started := time.Now()
	vectors, err := embedder.Embed(ctx, texts, ids)
	elapsed := time.Since(started)
	if ctx.Err() != nil {
		// Vectors from a canceled run are discarded, never upserted.
		return ctx.Err()
	}
	if err != nil {
		return err
	}

	// UPSERT
	s.update(store, job.ID, domain.JobUpdate{Phase: domain.Ptr(domain.PhaseUpsert)})
	if _, err := vs.Upsert(ctx, buildPoints(profile.Name, chunks, vectors)); err != nil {
		return err
	}

	rate := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(len(chunks)) / secs * 60
	}
	s.update(store, job.ID, domain.JobUpdate{
		ChunksDone:   domain.Ptr(len(chunks)),
		ChunksPerMin: domain.Ptr(rate),
	})
	return nil
}

// buildPoints pairs chunks with vectors. Point ids derive from the
// chunk's stable key so re-ingestion overwrites.
func buildPoints(profile string, chunks []domain.Chunk, vectors [][]float32) []domain.VectorPoint {
	points := make([]domain.VectorPoint, len(chunks))
	for i, c := range chunks {
		m := c.Metadata
		docID := m.DocID
		if docID == "" {
			docID = profile
		}
		source := m.Source
		if source == "" {
			source = m.DocPath
		}

		payload := m.Payload()
		payload["hash"] = contentHash(fmt.Sprintf("%s|%s|%d", docID, m.Path, i))
		payload["doc_id"] = docID
		payload["chunk_id"] = fmt.Sprintf("%s:%s:%d", docID, source, i)
		payload["profile"] = profile
		payload["doc_path"] = m.DocPath
		payload["chunk_idx"] = i
		payload["text"] = c.Text

		points[i] = domain.VectorPoint{
			ID:      PointID(docID, m.Path, i),
			Vector:  vectors[i],
			Payload: payload,
		}
	}
	return points
}

func (s *IngestionService) update(ctx context.Context, id string, u domain.JobUpdate) {
	if err := s.jobs.UpdateJob(ctx, id, u); err != nil {
		logger.Warn("job.update id=%s err=%v", id, err)
	}
}

func (s *IngestionService) finish(ctx context.Context, id string, status domain.JobStatus, msg string) {
	if _, err := s.jobs.FinishJob(ctx, id, status, msg, false); err != nil {
		logger.Warn("job.finish id=%s status=%s err=%v", id, status, err)
	}
}
