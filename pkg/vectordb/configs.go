package vectordb

import (
	"os"
	"strconv"
)

// Config holds connection settings for the Qdrant client.
type Config struct {
	// Hostname of the Qdrant server, e.g. "localhost".
	Endpoint string `yaml:"endpoint" env:"QDRANT_ENDPOINT"`

	// gRPC port of the Qdrant server. Defaults to 6334.
	Port int `yaml:"port" env:"QDRANT_PORT"`

	// Optional authentication token for secured deployments.
	ApiKey string `yaml:"api_key" env:"QDRANT_API_KEY"`

	// Whether to perform version compatibility checks between client and server.
	CheckCompatibility bool `yaml:"check_compatibility" env:"QDRANT_CHECK_COMPATIBILITY"`
}

// NewConfig reads from environment variables.
func NewConfig() *Config {
	port := 6334
	if v := os.Getenv("QDRANT_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			port = n
		}
	}
	return &Config{
		Endpoint:           envOr("QDRANT_ENDPOINT", "localhost"),
		Port:               port,
		ApiKey:             os.Getenv("QDRANT_API_KEY"),
		CheckCompatibility: os.Getenv("QDRANT_CHECK_COMPATIBILITY") == "true",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
