// Package loaders turns a profile's document specs into chunks.
//
// Each document type has a loader in its own subpackage (pdf, jsondoc)
// implementing driven.DocumentLoader. The Registry dispatches by type tag;
// unknown tags, missing files and failing documents are skipped so one bad
// document never aborts an ingestion.
package loaders
