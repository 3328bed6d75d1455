package budget

import (
	"os"
	"strconv"
)

type Config struct {
	// RequestsPerMinute is the admission ceiling per fixed minute window
	// (default 30).
	RequestsPerMinute int `yaml:"requests_per_minute" envconfig:"BUDGET_RPM_LIMIT"`

	// MonthlyCostUSD is the cumulative cost ceiling per calendar month, in
	// UTC (default 50). Once reached, admissions are denied regardless of
	// rate headroom.
	MonthlyCostUSD float64 `yaml:"monthly_cost_usd" envconfig:"BUDGET_MONTHLY_USD_LIMIT"`
}

// NewConfig reads from environment variables.
func NewConfig() Config {
	rpm := 30
	if v := os.Getenv("BUDGET_RPM_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			rpm = n
		}
	}
	monthly := 50.0
	if v := os.Getenv("BUDGET_MONTHLY_USD_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			monthly = f
		}
	}
	return Config{
		RequestsPerMinute: rpm,
		MonthlyCostUSD:    monthly,
	}
}
