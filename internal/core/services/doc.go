// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no CGO. The ingestion pipeline runs one
// goroutine per job and fans embedding calls out over an ants pool.
package services
