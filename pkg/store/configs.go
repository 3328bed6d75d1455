package store

import "os"

type Config struct {
	// RetainSuperseded keeps superseded embedding rows for audit instead of
	// deleting them when a re-embedding lands (default true).
	RetainSuperseded bool `envconfig:"EMBEDDING_RETAIN_SUPERSEDED"`
}

// NewConfig reads from environment variables.
func NewConfig() Config {
	retain := true
	if v := os.Getenv("EMBEDDING_RETAIN_SUPERSEDED"); v == "false" || v == "0" {
		retain = false
	}
	return Config{RetainSuperseded: retain}
}
