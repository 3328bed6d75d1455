package httpapi

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Address is the listen address of the retrieval API server.
	Address string `yaml:"address" envconfig:"HTTP_ADDRESS"`

	// RequestTimeout bounds one request end to end. Retrieval serves
	// interactive reads, so the default is short (5s).
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"HTTP_REQUEST_TIMEOUT_SECONDS"`

	// RateLimitPerMinute is the per-caller request ceiling (default 100).
	RateLimitPerMinute int `yaml:"rate_limit_per_minute" envconfig:"HTTP_RATE_LIMIT_PER_MINUTE"`
}

// NewConfig reads from environment variables.
func NewConfig() Config {
	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	timeout := 5
	if v := os.Getenv("HTTP_REQUEST_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			timeout = n
		}
	}

	limit := 100
	if v := os.Getenv("HTTP_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	return Config{
		Address:            addr,
		RequestTimeout:     time.Duration(timeout) * time.Second,
		RateLimitPerMinute: limit,
	}
}
