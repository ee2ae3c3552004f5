// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - ProfileSource: Loads named profiles
//   - JobStore: Durable job records
//   - LoaderRegistry: Turns a profile's documents into chunks
//   - EmbeddingBackendFactory: Builds embedding backends per profile
//   - VectorStoreFactory: Builds vector store clients per profile
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingCacheProvider: Without it, every chunk is embedded on every run.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or loader package
package driven
