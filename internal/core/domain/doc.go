// Package domain defines the core business entities for sercha-ingest.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Profile: A named ingestion and search configuration bundle
//   - Chunk: A slice of extracted text plus provenance metadata
//   - VectorPoint: A record written to the vector store
//   - Job: A tracked, cancellable ingestion run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
