package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func TestProfileService_List(t *testing.T) {
	p := testProfile("cv", domain.DocumentSpec{Type: domain.DocumentTypePDF, Path: "cv.pdf"})
	svc := NewProfileService(newProfileSource(p))

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)

	assert.Equal(t, "cv", list[0].Name)
	assert.Equal(t, 1, list[0].Documents)
	assert.Equal(t, 4, list[0].Dim)
	assert.Empty(t, list[0].Error)
}

func TestProfileService_Get(t *testing.T) {
	svc := NewProfileService(newProfileSource(testProfile("cv")))

	p, err := svc.Get(context.Background(), "cv")
	require.NoError(t, err)
	assert.Equal(t, "cv", p.Name)

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}
