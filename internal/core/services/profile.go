package services

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

// Ensure ProfileService implements the interface.
var _ driving.ProfileService = (*ProfileService)(nil)

// ProfileService lists and loads profiles from a ProfileSource.
type ProfileService struct {
	profiles driven.ProfileSource
}

// NewProfileService creates a profile service.
func NewProfileService(profiles driven.ProfileSource) *ProfileService {
	return &ProfileService{profiles: profiles}
}

// List summarises every profile.
func (s *ProfileService) List(ctx context.Context) ([]domain.ProfileSummary, error) {
	names, err := s.profiles.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ProfileSummary, 0, len(names))
	for _, name := range names {
		p, err := s.profiles.LoadProfile(ctx, name)
		if err != nil {
			out = append(out, domain.ProfileSummary{Name: name, Error: err.Error()})
			continue
		}
		out = append(out, p.Summary())
	}
	return out, nil
}

// Get loads one profile.
func (s *ProfileService) Get(ctx context.Context, name string) (*domain.Profile, error) {
	return s.profiles.LoadProfile(ctx, name)
}
