package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Profile string         `json:"profile" jsonschema:"profile whose collection is searched"`
	Query   string         `json:"query" jsonschema:"the natural language query"`
	TopK    int            `json:"top_k,omitempty" jsonschema:"maximum number of hits (default 5)"`
	Filter  map[string]any `json:"filter,omitempty" jsonschema:"payload fields that must match exactly"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Status  string             `json:"status"`
	Results []domain.SearchHit `json:"results"`
	Reason  string             `json:"reason,omitempty"`
}

// EnqueueInput is the input schema for the ingest_enqueue tool.
type EnqueueInput struct {
	Profile  string `json:"profile" jsonschema:"profile to ingest"`
	Truncate bool   `json:"truncate,omitempty" jsonschema:"drop and recreate the collection first"`
}

// EnqueueOutput is the output schema for the ingest_enqueue tool.
type EnqueueOutput struct {
	Status           string `json:"status"`
	JobID            string `json:"job_id"`
	Profile          string `json:"profile"`
	CanceledPrevious int    `json:"canceled_previous"`
	Collection       string `json:"collection"`
}

// CancelAllInput is the input schema for the ingest_cancel_all tool.
type CancelAllInput struct{}

// CancelAllOutput lists the jobs that were canceled.
type CancelAllOutput struct {
	Canceled []string `json:"canceled"`
	Count    int      `json:"count"`
}

// JobGetInput is the input schema for the job_get tool.
type JobGetInput struct {
	JobID string `json:"job_id" jsonschema:"id returned by ingest_enqueue"`
}

// JobListInput is the input schema for the job_list tool.
type JobListInput struct {
	Profile string `json:"profile,omitempty" jsonschema:"only jobs of this profile"`
	Status  string `json:"status,omitempty" jsonschema:"queued, running, completed, failed or canceled"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of jobs (default 20, max 200)"`
}

// JobListOutput is the output schema for the job_list tool.
type JobListOutput struct {
	Jobs  []JobOutput `json:"jobs"`
	Count int         `json:"count"`
}

// JobOutput is the wire view of a job. Timestamps are RFC 3339.
type JobOutput struct {
	JobID        string  `json:"job_id"`
	Profile      string  `json:"profile"`
	Status       string  `json:"status"`
	Phase        string  `json:"phase,omitempty"`
	Error        string  `json:"error,omitempty"`
	Provider     string  `json:"provider,omitempty"`
	ModelName    string  `json:"model_name,omitempty"`
	ModelDim     int     `json:"model_dim,omitempty"`
	VectorDB     string  `json:"vector_db,omitempty"`
	Collection   string  `json:"collection,omitempty"`
	Truncate     bool    `json:"truncate"`
	FilesTotal   int     `json:"files_total"`
	FilesDone    int     `json:"files_done"`
	PagesTotal   int     `json:"pages_total"`
	PagesDone    int     `json:"pages_done"`
	ChunksDone   int     `json:"chunks_done"`
	CurrentFile  string  `json:"current_file,omitempty"`
	ChunksPerMin float64 `json:"chunks_per_min"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

func jobOutput(j *domain.Job) JobOutput {
	return JobOutput{
		JobID:        j.ID,
		Profile:      j.Profile,
		Status:       string(j.Status),
		Phase:        string(j.Phase),
		Error:        j.Error,
		Provider:     j.Provider,
		ModelName:    j.ModelName,
		ModelDim:     j.ModelDim,
		VectorDB:     j.VectorDB,
		Collection:   j.Collection,
		Truncate:     j.Truncate,
		FilesTotal:   j.FilesTotal,
		FilesDone:    j.FilesDone,
		PagesTotal:   j.PagesTotal,
		PagesDone:    j.PagesDone,
		ChunksDone:   j.ChunksDone,
		CurrentFile:  j.CurrentFile,
		ChunksPerMin: j.ChunksPerMin,
		CreatedAt:    j.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    j.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Semantic search over the chunks indexed for a profile",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_enqueue",
		Description: "Start an ingestion job for a profile, canceling any job already active for it",
	}, s.handleEnqueue)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_cancel_all",
		Description: "Cancel every ingestion job running in this server",
	}, s.handleCancelAll)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "job_get",
		Description: "Return the status and progress of one ingestion job",
	}, s.handleJobGet)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "job_list",
		Description: "List recent ingestion jobs, newest first",
	}, s.handleJobList)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(input.Profile) == "" {
		return nil, SearchOutput{}, toolError("search", fmt.Errorf("%w: profile is required", domain.ErrInvalidInput))
	}

	resp, err := s.ports.Search.Search(ctx, domain.SearchRequest{
		Profile: input.Profile,
		Query:   input.Query,
		TopK:    input.TopK,
		Filter:  input.Filter,
	})
	if err != nil {
		return nil, SearchOutput{}, toolError("search", err)
	}

	out := SearchOutput{
		Status:  string(resp.Status),
		Results: resp.Results,
		Reason:  resp.Reason,
	}
	if out.Results == nil {
		out.Results = []domain.SearchHit{}
	}
	return nil, out, nil
}

// handleEnqueue handles the ingest_enqueue tool invocation.
func (s *Server) handleEnqueue(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input EnqueueInput,
) (*mcp.CallToolResult, EnqueueOutput, error) {
	if strings.TrimSpace(input.Profile) == "" {
		return nil, EnqueueOutput{}, toolError("ingest_enqueue", fmt.Errorf("%w: profile is required", domain.ErrInvalidInput))
	}

	res, err := s.ports.Ingestion.Enqueue(ctx, input.Profile, input.Truncate)
	if err != nil {
		return nil, EnqueueOutput{}, toolError("ingest_enqueue", err)
	}
	logger.Info("mcp.enqueue profile=%s job=%s canceled_previous=%d", res.Profile, res.JobID, res.CanceledPrevious)

	return nil, EnqueueOutput{
		Status:           string(res.Status),
		JobID:            res.JobID,
		Profile:          res.Profile,
		CanceledPrevious: res.CanceledPrevious,
		Collection:       res.Collection,
	}, nil
}

// handleCancelAll handles the ingest_cancel_all tool invocation.
func (s *Server) handleCancelAll(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ CancelAllInput,
) (*mcp.CallToolResult, CancelAllOutput, error) {
	ids, err := s.ports.Ingestion.CancelAll(ctx)
	if err != nil {
		return nil, CancelAllOutput{}, toolError("ingest_cancel_all", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return nil, CancelAllOutput{Canceled: ids, Count: len(ids)}, nil
}

// handleJobGet handles the job_get tool invocation.
func (s *Server) handleJobGet(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input JobGetInput,
) (*mcp.CallToolResult, JobOutput, error) {
	if strings.TrimSpace(input.JobID) == "" {
		return nil, JobOutput{}, toolError("job_get", fmt.Errorf("%w: job_id is required", domain.ErrInvalidInput))
	}

	job, err := s.ports.Ingestion.GetJob(ctx, input.JobID)
	if err != nil {
		return nil, JobOutput{}, toolError("job_get", err)
	}
	return nil, jobOutput(job), nil
}

// handleJobList handles the job_list tool invocation.
func (s *Server) handleJobList(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input JobListInput,
) (*mcp.CallToolResult, JobListOutput, error) {
	status := domain.JobStatus(strings.ToLower(strings.TrimSpace(input.Status)))
	if status != "" && !status.Valid() {
		return nil, JobListOutput{}, toolError("job_list", fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, input.Status))
	}

	jobs, err := s.ports.Ingestion.ListJobs(ctx, domain.JobFilter{
		Profile: input.Profile,
		Status:  status,
		Limit:   input.Limit,
	}.Normalize())
	if err != nil {
		return nil, JobListOutput{}, toolError("job_list", err)
	}

	out := JobListOutput{Jobs: make([]JobOutput, len(jobs)), Count: len(jobs)}
	for i := range jobs {
		out.Jobs[i] = jobOutput(&jobs[i])
	}
	return nil, out, nil
}
