package domain

import (
	"fmt"
	"math"
	"strings"
)

// Distance is the similarity metric of a collection.
type Distance string

const (
	DistanceCosine Distance = "cosine"
	DistanceEuclid Distance = "euclid"
	DistanceDot    Distance = "dot"
)

// ParseDistance maps user spellings (cosine, euclid, l2, dot, dotproduct)
// to a Distance.
func ParseDistance(s string) (Distance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cosine":
		return DistanceCosine, nil
	case "euclid", "euclidean", "l2":
		return DistanceEuclid, nil
	case "dot", "dotproduct":
		return DistanceDot, nil
	}
	return "", fmt.Errorf("%w: unknown distance %q", ErrInvalidConfig, s)
}

// VectorPoint is one record in a vector collection.
type VectorPoint struct {
	// ID is a UUID derived from content provenance, never random.
	ID      string
	Vector  []float32
	Payload map[string]any
}

// ScoredPoint is a search hit. Higher scores are closer for every distance.
type ScoredPoint struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// SanitizeVector rejects NaN and Inf entries.
func SanitizeVector(v []float32) error {
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w at index %d (NaN/Inf)", ErrInvalidVector, i)
		}
	}
	return nil
}

// ValidateVector checks length against dim, then sanitizes.
func ValidateVector(v []float32, dim int) error {
	if len(v) != dim {
		return fmt.Errorf("%w: dim=%d, expected=%d", ErrDimensionMismatch, len(v), dim)
	}
	return SanitizeVector(v)
}
