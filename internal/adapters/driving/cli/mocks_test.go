package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// --- Mock implementations for CLI testing ---

type mockIngestionService struct {
	mu sync.Mutex

	jobs      map[string]*domain.Job
	list      []domain.Job
	canceled  []string
	enqueued  []string
	truncated bool
	filter    domain.JobFilter
	err       error

	// finalStatus is applied to jobs created by Enqueue before Wait returns.
	finalStatus domain.JobStatus
	finalError  string
}

func newMockIngestionService() *mockIngestionService {
	return &mockIngestionService{jobs: make(map[string]*domain.Job), finalStatus: domain.JobCompleted}
}

func (m *mockIngestionService) Enqueue(_ context.Context, profile string, truncate bool) (*domain.EnqueueResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	id := "job-" + profile
	m.enqueued = append(m.enqueued, profile)
	m.truncated = truncate
	m.jobs[id] = &domain.Job{
		ID: id, Profile: profile, Status: domain.JobQueued, Phase: domain.PhasePreflight,
		Collection: "docs_" + profile, FilesTotal: 2,
	}
	return &domain.EnqueueResult{
		Status: domain.JobQueued, JobID: id, Profile: profile, Collection: "docs_" + profile,
	}, nil
}

func (m *mockIngestionService) CancelAll(context.Context) ([]string, error) {
	return m.canceled, m.err
}

func (m *mockIngestionService) CancelProfile(context.Context, string) (int, error) {
	return len(m.canceled), m.err
}

func (m *mockIngestionService) GetJob(_ context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *mockIngestionService) ListJobs(_ context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter = filter
	return m.list, m.err
}

func (m *mockIngestionService) Wait(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = m.finalStatus
	job.Phase = domain.PhaseFinished
	job.Error = m.finalError
	job.FilesDone = job.FilesTotal
	job.ChunksDone = 7
	return nil
}

type mockSearchService struct {
	resp *domain.SearchResponse
	err  error
	last domain.SearchRequest
}

func (m *mockSearchService) Search(_ context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	if m.resp != nil {
		return m.resp, nil
	}
	return &domain.SearchResponse{
		Status: domain.SearchOK,
		Results: []domain.SearchHit{
			{Score: 0.87, Text: "Senior Go engineer\nbuilding data pipelines", DocPath: "/docs/cv.pdf", ChunkIdx: 0, PageStart: 1},
		},
	}, nil
}

type mockHealthService struct {
	checks []domain.HealthCheck
	err    error
}

func (m *mockHealthService) Check(context.Context, string) ([]domain.HealthCheck, error) {
	return m.checks, m.err
}

type mockProfileService struct {
	profiles []domain.ProfileSummary
	err      error
}

func (m *mockProfileService) List(context.Context) ([]domain.ProfileSummary, error) {
	return m.profiles, m.err
}

func (m *mockProfileService) Get(_ context.Context, name string) (*domain.Profile, error) {
	for _, p := range m.profiles {
		if p.Name == name {
			return &domain.Profile{Name: name}, nil
		}
	}
	return nil, domain.ErrProfileNotFound
}

type testServices struct {
	ingestion *mockIngestionService
	search    *mockSearchService
	health    *mockHealthService
	profiles  *mockProfileService
}

// setupTestServices installs mocks and returns them with a cleanup func.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		ingestion: newMockIngestionService(),
		search:    &mockSearchService{},
		health: &mockHealthService{checks: []domain.HealthCheck{
			{Component: "embedding", Name: "ollama", OK: true, Latency: 12 * time.Millisecond},
			{Component: "vector_store", Name: "qdrant", OK: true, Latency: 3 * time.Millisecond},
		}},
		profiles: &mockProfileService{profiles: []domain.ProfileSummary{
			{Name: "cv", Documents: 2, Primary: "ollama", Model: "nomic-embed-text", Dim: 768, VectorDB: "qdrant", Collection: "docs_cv"},
		}},
	}
	SetServices(&Services{
		Ingestion: ts.ingestion,
		Search:    ts.search,
		Health:    ts.health,
		Profiles:  ts.profiles,
		MCPAddr:   "127.0.0.1:0",
	})
	return ts, func() { SetServices(&Services{}) }
}

// resetFlags restores flag variables, which cobra keeps between runs.
func resetFlags() {
	ingestTruncate, ingestWait, ingestJSON, ingestPoll = false, true, false, 10*time.Millisecond
	cancelProfile = ""
	jobsProfile, jobsStatus, jobsLimit, jobsJSON, jobJSON = "", "", domain.DefaultJobListLimit, false, false
	searchLimit, searchJSON, searchFilters = domain.DefaultTopK, false, nil
	profilesJSON = false
	mcpHTTPAddr, serveAddr, serveWatch = "", "", false
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		resetFlags()
	})
	err := rootCmd.Execute()
	return buf.String(), err
}
