package pipeline

import (
	"os"
	"strconv"
)

type Config struct {
	// FanoutLimit bounds concurrent embedding requests per document
	// (default 4).
	FanoutLimit int `envconfig:"PIPELINE_FANOUT_LIMIT"`

	// ChunkMaxChars is the maximum chunk length in characters (default 1200).
	ChunkMaxChars int `envconfig:"CHUNK_MAX_CHARS"`

	// ChunkOverlapRatio is the fraction of the window shared between
	// adjacent windows when a paragraph is split (default 0.15).
	ChunkOverlapRatio float64 `envconfig:"CHUNK_OVERLAP_RATIO"`
}

// NewConfig reads from environment variables.
func NewConfig() Config {
	cfg := Config{
		FanoutLimit:       4,
		ChunkMaxChars:     1200,
		ChunkOverlapRatio: 0.15,
	}
	if v := os.Getenv("PIPELINE_FANOUT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FanoutLimit = n
		}
	}
	if v := os.Getenv("CHUNK_MAX_CHARS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ChunkMaxChars = n
		}
	}
	if v := os.Getenv("CHUNK_OVERLAP_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f < 1 {
			cfg.ChunkOverlapRatio = f
		}
	}
	return cfg
}
