// Package memory provides in-process implementations of the job store and
// embedding cache. They back the "memory" cache kind and service tests.
package memory
