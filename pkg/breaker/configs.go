package breaker

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// FailureThreshold is the number of consecutive counted failures that
	// opens the circuit (default 5).
	FailureThreshold int `yaml:"failure_threshold" envconfig:"BREAKER_FAILURE_THRESHOLD"`

	// Cooldown is how long an open circuit fails fast before allowing a
	// single probe call (default 30s).
	Cooldown time.Duration `yaml:"cooldown" envconfig:"BREAKER_COOLDOWN_SECONDS"`
}

// NewConfig reads from environment variables.
func NewConfig() Config {
	threshold := 5
	if v := os.Getenv("BREAKER_FAILURE_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			threshold = n
		}
	}
	cooldown := 30 * time.Second
	if v := os.Getenv("BREAKER_COOLDOWN_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cooldown = time.Duration(n) * time.Second
		}
	}
	return Config{
		FailureThreshold: threshold,
		Cooldown:         cooldown,
	}
}
