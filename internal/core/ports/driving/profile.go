package driving

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// ProfileService exposes the configured profiles to the outer surfaces.
type ProfileService interface {
	// List returns a summary of every profile in file order. A profile that
	// fails to load is listed with its Error set.
	List(ctx context.Context) ([]domain.ProfileSummary, error)

	// Get returns one loaded profile or ErrProfileNotFound.
	Get(ctx context.Context, name string) (*domain.Profile, error)
}
