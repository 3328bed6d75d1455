package postgres

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Connection        Connection
	ConnectionDetails ConnectionDetails
}

type Connection struct {
	Host     string
	Port     string
	User     string
	Password string
	DbName   string
	SSLMode  string
}

type ConnectionDetails struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewConfig reads connection settings from environment variables.
func NewConfig() Config {
	return Config{
		Connection: Connection{
			Host:     envOr("POSTGRES_HOST", "localhost"),
			Port:     envOr("POSTGRES_PORT", "5432"),
			User:     envOr("POSTGRES_USER", "aicore"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DbName:   envOr("POSTGRES_DB", "aicore"),
			SSLMode:  envOr("POSTGRES_SSLMODE", "disable"),
		},
		ConnectionDetails: ConnectionDetails{
			MaxOpenConns:    envIntOr("POSTGRES_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    envIntOr("POSTGRES_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: time.Duration(envIntOr("POSTGRES_CONN_MAX_LIFETIME_S", 60)) * time.Second,
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
