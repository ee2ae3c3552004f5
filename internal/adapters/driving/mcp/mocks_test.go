package mcp

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	resp *domain.SearchResponse
	err  error

	mu   sync.Mutex
	last domain.SearchRequest
}

func (m *mockSearchService) Search(_ context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	m.mu.Lock()
	m.last = req
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.resp == nil {
		return &domain.SearchResponse{Status: domain.SearchOK}, nil
	}
	return m.resp, nil
}

// mockIngestionService is a mock implementation of driving.IngestionService.
type mockIngestionService struct {
	result   *domain.EnqueueResult
	canceled []string
	jobs     map[string]*domain.Job
	list     []domain.Job
	err      error

	mu         sync.Mutex
	lastFilter domain.JobFilter
	truncate   bool
}

func (m *mockIngestionService) Enqueue(_ context.Context, profile string, truncate bool) (*domain.EnqueueResult, error) {
	m.mu.Lock()
	m.truncate = truncate
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.EnqueueResult{Status: domain.JobQueued, JobID: "job-1", Profile: profile}, nil
}

func (m *mockIngestionService) CancelAll(context.Context) ([]string, error) {
	return m.canceled, m.err
}

func (m *mockIngestionService) CancelProfile(context.Context, string) (int, error) {
	return len(m.canceled), m.err
}

func (m *mockIngestionService) GetJob(_ context.Context, id string) (*domain.Job, error) {
	if m.err != nil {
		return nil, m.err
	}
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (m *mockIngestionService) ListJobs(_ context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	m.mu.Lock()
	m.lastFilter = filter
	m.mu.Unlock()
	return m.list, m.err
}

func (m *mockIngestionService) Wait(context.Context, string) error {
	return m.err
}

// mockProfileService is a mock implementation of driving.ProfileService.
type mockProfileService struct {
	profiles []domain.ProfileSummary
	err      error
}

func (m *mockProfileService) List(context.Context) ([]domain.ProfileSummary, error) {
	return m.profiles, m.err
}

func (m *mockProfileService) Get(_ context.Context, name string) (*domain.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.profiles {
		if p.Name == name {
			return &domain.Profile{Name: name}, nil
		}
	}
	return nil, domain.ErrProfileNotFound
}

func newTestServer(search *mockSearchService, ingestion *mockIngestionService, profiles *mockProfileService) (*Server, error) {
	ports := &Ports{Search: search, Ingestion: ingestion}
	if profiles != nil {
		ports.Profiles = profiles
	}
	return NewServer(ports)
}
