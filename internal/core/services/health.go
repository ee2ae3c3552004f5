package services

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

// Ensure HealthService implements the interface.
var _ driving.HealthService = (*HealthService)(nil)

// HealthService pings the backends a profile depends on.
type HealthService struct {
	profiles   driven.ProfileSource
	components *Components
}

// NewHealthService creates a health service.
func NewHealthService(profiles driven.ProfileSource, components *Components) *HealthService {
	return &HealthService{profiles: profiles, components: components}
}

// Check pings every configured embedding backend, then the vector store.
func (s *HealthService) Check(ctx context.Context, profileName string) ([]domain.HealthCheck, error) {
	profile, err := s.profiles.LoadProfile(ctx, profileName)
	if err != nil {
		return nil, err
	}

	var checks []domain.HealthCheck
	for _, name := range profile.Embedding.BackendOrder() {
		check := domain.HealthCheck{Component: "embedding", Name: name}
		b, err := s.components.Backends.Create(name, profile.Embedding)
		if err != nil {
			check.Error = err.Error()
			checks = append(checks, check)
			continue
		}
		start := time.Now()
		err = b.Ping(ctx)
		check.Latency = time.Since(start)
		check.OK = err == nil
		if err != nil {
			check.Error = err.Error()
		}
		_ = b.Close()
		checks = append(checks, check)
	}

	check := domain.HealthCheck{Component: "vector_store", Name: profile.VectorStore.Kind}
	vs, err := s.components.VectorStore(profile)
	if err != nil {
		check.Error = err.Error()
		return append(checks, check), nil
	}
	defer vs.Close()

	start := time.Now()
	_, err = vs.CollectionExists(ctx)
	check.Latency = time.Since(start)
	check.OK = err == nil
	if err != nil {
		check.Error = err.Error()
	}
	return append(checks, check), nil
}
