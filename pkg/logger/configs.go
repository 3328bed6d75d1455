package logger

import "os"

const (
	Debug   = "debug"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

type Config struct {
	// Level controls the minimum level that is emitted.
	// Accepted values: debug, info, warning, error. Anything else -> info.
	Level string `yaml:"level" envconfig:"LOG_LEVEL"`

	// ServiceName is attached to every log line as an initial field.
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME"`
}

// NewConfig reads the logger configuration from environment variables.
func NewConfig() Config {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "aicore"
	}
	return Config{
		Level:       os.Getenv("LOG_LEVEL"),
		ServiceName: service,
	}
}
