package search

import (
	"os"
	"strconv"
)

// Result list bounds. Requests above the cap are clamped, never rejected.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Config struct {
	// SimilarityThreshold is the cosine score floor for the vector leg
	// (default 0.7). Candidates below it never enter the merge.
	SimilarityThreshold float32 `yaml:"similarity_threshold" envconfig:"SEARCH_SIMILARITY_THRESHOLD"`
}

// NewConfig reads from environment variables.
func NewConfig() Config {
	threshold := 0.7
	if v := os.Getenv("SEARCH_SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			threshold = f
		}
	}
	return Config{SimilarityThreshold: float32(threshold)}
}
