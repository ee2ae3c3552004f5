package mcp

import (
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	// Search provides the semantic read path.
	Search driving.SearchService

	// Ingestion enqueues, cancels and reports jobs.
	Ingestion driving.IngestionService

	// Profiles backs the profiles resource. Optional.
	Profiles driving.ProfileService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Ingestion == nil {
		return ErrMissingIngestionService
	}
	return nil
}
