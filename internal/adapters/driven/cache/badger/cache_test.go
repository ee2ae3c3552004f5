package badger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_InMemory(t *testing.T) {
	c, err := Open("")
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "ollama/m/4|a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "ollama/m/4|a", []float32{1, -0.5, 2, 0}))
	vec, ok, err := c.Get(ctx, "ollama/m/4|a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float32{1, -0.5, 2, 0}, vec)
}

func TestCache_PersistsAcrossOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	ctx := context.Background()

	c, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "k", []float32{3, 4}))
	require.NoError(t, c.Close())

	c, err = Open(dir)
	require.NoError(t, err)
	defer c.Close()
	vec, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float32{3, 4}, vec)
}

func TestCache_Canceled(t *testing.T) {
	c, err := Open("")
	require.NoError(t, err)
	defer c.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, c.Set(ctx, "k", []float32{1}), context.Canceled)
}
