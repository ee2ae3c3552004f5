package driven

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// ProfileSource loads profiles. Profiles are read fresh on every call.
type ProfileSource interface {
	// LoadProfile returns a profile with defaults applied, or
	// domain.ErrProfileNotFound.
	LoadProfile(ctx context.Context, name string) (*domain.Profile, error)

	// ListProfiles returns the configured profile names.
	ListProfiles(ctx context.Context) ([]string, error)
}
