package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func TestNewServer(t *testing.T) {
	t.Run("nil search service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{Ingestion: &mockIngestionService{}})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingSearchService)
	})

	t.Run("nil ingestion service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingIngestionService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := newTestServer(&mockSearchService{}, &mockIngestionService{}, nil)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("empty ports", func(t *testing.T) {
		assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingSearchService)
	})

	t.Run("profiles are optional", func(t *testing.T) {
		ports := &Ports{Search: &mockSearchService{}, Ingestion: &mockIngestionService{}}
		assert.NoError(t, ports.Validate())
	})

	t.Run("all ports", func(t *testing.T) {
		ports := &Ports{
			Search:    &mockSearchService{},
			Ingestion: &mockIngestionService{},
			Profiles:  &mockProfileService{},
		}
		assert.NoError(t, ports.Validate())
	})
}

// connect wires a client to the server over in-memory transports.
func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := s.server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func TestServer_ListsToolsOverSession(t *testing.T) {
	s, err := newTestServer(&mockSearchService{}, &mockIngestionService{}, &mockProfileService{})
	require.NoError(t, err)
	cs := connect(t, s)

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"search", "ingest_enqueue", "ingest_cancel_all", "job_get", "job_list"}, names)
}

func TestServer_CallToolOverSession(t *testing.T) {
	ingestion := &mockIngestionService{
		result: &domain.EnqueueResult{Status: domain.JobQueued, JobID: "abc", Profile: "cv", Collection: "docs_cv"},
	}
	s, err := newTestServer(&mockSearchService{}, ingestion, nil)
	require.NoError(t, err)
	cs := connect(t, s)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "ingest_enqueue",
		Arguments: map[string]any{"profile": "cv", "truncate": true},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.True(t, ingestion.truncate)

	res, err = cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "job_get",
		Arguments: map[string]any{"job_id": "missing"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
