package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	profilesURI = "profiles://list"
	jobsScheme  = "jobs://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         profilesURI,
		Name:        "profiles",
		Description: "Configured ingestion profiles",
		MIMEType:    "application/json",
	}, s.handleProfilesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: jobsScheme + "{jobId}",
		Name:        "job",
		Description: "Status and progress of an ingestion job",
		MIMEType:    "application/json",
	}, s.handleJobResource)
}

// handleProfilesResource returns a summary of every profile.
func (s *Server) handleProfilesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Profiles == nil {
		return jsonResource(req.Params.URI, []string{})
	}

	profiles, err := s.ports.Profiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	return jsonResource(req.Params.URI, profiles)
}

// handleJobResource returns one job snapshot.
func (s *Server) handleJobResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id := extractJobID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	job, err := s.ports.Ingestion.GetJob(ctx, id)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return jsonResource(req.Params.URI, jobOutput(job))
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractJobID extracts the job ID from a URI like jobs://{jobId}.
func extractJobID(uri string) string {
	if !strings.HasPrefix(uri, jobsScheme) {
		return ""
	}
	return strings.Trim(strings.TrimPrefix(uri, jobsScheme), "/")
}
