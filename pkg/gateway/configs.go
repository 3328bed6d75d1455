package gateway

import (
	"fmt"
	"os"
	"strconv"
)

// AI_GATEWAY_ENDPOINT must point to the root of the coordination service
// (no path appended). The client posts to <endpoint>/invoke, so callers only
// need to supply the host base URL.

type Config struct {
	// Endpoint is the base URL of the AI coordination service.
	Endpoint string `yaml:"endpoint" envconfig:"AI_GATEWAY_ENDPOINT"`

	// BearerToken authenticates every invocation.
	BearerToken string `yaml:"bearer_token" envconfig:"AI_GATEWAY_TOKEN"`

	// HTTPTimeoutS is the per-invocation deadline in seconds (default 30).
	HTTPTimeoutS int `yaml:"http_timeout_seconds" envconfig:"AI_GATEWAY_TIMEOUT_SECONDS"`

	// MaxTextChars caps text payload fields. Longer inputs are truncated with
	// an explicit marker rather than rejected, so ingestion keeps progressing.
	MaxTextChars int `yaml:"max_text_chars" envconfig:"AI_GATEWAY_MAX_TEXT_CHARS"`

	// MaxRetries bounds automatic retries for idempotent actions (default 2).
	MaxRetries int `yaml:"max_retries" envconfig:"AI_GATEWAY_MAX_RETRIES"`

	// RetryBaseMs is the initial backoff delay in milliseconds; it doubles
	// per attempt (default 200).
	RetryBaseMs int `yaml:"retry_base_ms" envconfig:"AI_GATEWAY_RETRY_BASE_MS"`
}

// NewConfig reads from environment variables.
func NewConfig() *Config {
	return &Config{
		Endpoint:     os.Getenv("AI_GATEWAY_ENDPOINT"),
		BearerToken:  os.Getenv("AI_GATEWAY_TOKEN"),
		HTTPTimeoutS: envInt("AI_GATEWAY_TIMEOUT_SECONDS", 30),
		MaxTextChars: envInt("AI_GATEWAY_MAX_TEXT_CHARS", 8000),
		MaxRetries:   envInt("AI_GATEWAY_MAX_RETRIES", 2),
		RetryBaseMs:  envInt("AI_GATEWAY_RETRY_BASE_MS", 200),
	}
}

// Validate ensures required fields are present.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("gateway: missing AI_GATEWAY_ENDPOINT")
	}
	if c.BearerToken == "" {
		return fmt.Errorf("gateway: missing AI_GATEWAY_TOKEN")
	}
	return nil
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
