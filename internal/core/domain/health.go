package domain

import "time"

// HealthCheck is the result of pinging one backend of a profile.
type HealthCheck struct {
	// Component is "embedding" or "vector_store".
	Component string        `json:"component"`
	Name      string        `json:"name"`
	OK        bool          `json:"ok"`
	Error     string        `json:"error,omitempty"`
	Latency   time.Duration `json:"latency"`
}
