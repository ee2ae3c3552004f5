package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [profile] [query...]", searchCmd.Use)
}

func TestSearchCmd_RequiresProfileAndQuery(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "search", "cv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 2 arg(s)")
}

func TestSearchCmd_HasLimitFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "5", flag.DefValue)
}

func TestSearchCmd_ExecutesWithQuery(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "search", "cv", "go", "pipelines", "-n", "3")
	require.NoError(t, err)

	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "/docs/cv.pdf p.1")
	assert.Contains(t, out, "Senior Go engineer building data pipelines")
	assert.Equal(t, "cv", ts.search.last.Profile)
	assert.Equal(t, "go pipelines", ts.search.last.Query)
	assert.Equal(t, 3, ts.search.last.TopK)
}

func TestSearchCmd_Filters(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "search", "cv", "q", "--filter", "source=cv", "-f", "page_start=2", "-f", "draft=false")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"source": "cv", "page_start": 2, "draft": false}, ts.search.last.Filter)

	_, err = execute(t, "search", "cv", "q", "--filter", "novalue")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearchCmd_NoResults(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.search.resp = &domain.SearchResponse{Status: domain.SearchOK}

	out, err := execute(t, "search", "cv", "nothing")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_ErrorStatus(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.search.resp = &domain.SearchResponse{Status: domain.SearchError, Reason: "collection docs_cv is empty"}

	_, err := execute(t, "search", "cv", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collection docs_cv is empty")

	out, err := execute(t, "search", "cv", "x", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "error"`)
	assert.Contains(t, out, `"results": []`)
}

func TestSearchCmd_ServiceError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.search.err = errors.New("backend down")

	_, err := execute(t, "search", "cv", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search failed")
}

func TestSearchCmd_NotConfigured(t *testing.T) {
	SetServices(&Services{})
	_, err := execute(t, "search", "cv", "x")
	assert.ErrorIs(t, err, errNotConfigured)
}

func TestParseFilters(t *testing.T) {
	got, err := parseFilters(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseFilters([]string{"a=1", "b=x=y", "c="})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "b": "x=y", "c": ""}, got)

	_, err = parseFilters([]string{"=v"})
	assert.Error(t, err)
}
