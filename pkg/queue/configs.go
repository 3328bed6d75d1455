package queue

import (
	"os"
	"strconv"
)

type Config struct {
	Connection Connection
	Channel    Channel
}

type Connection struct {
	Host     string
	Port     uint
	User     string
	Password string
}

type Channel struct {
	ExchangeName  string
	ExchangeType  string
	RoutingKey    string
	QueueName     string
	PrefetchCount int
}

// NewConfig reads from environment variables. The defaults bind the
// document.ingest queue that ingestion producers publish to.
func NewConfig() Config {
	port := uint(5672)
	if v := os.Getenv("RABBIT_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			port = uint(n)
		}
	}
	prefetch := 4
	if v := os.Getenv("RABBIT_PREFETCH_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			prefetch = n
		}
	}
	return Config{
		Connection: Connection{
			Host:     envOr("RABBIT_HOST", "localhost"),
			Port:     port,
			User:     envOr("RABBIT_USER", "guest"),
			Password: envOr("RABBIT_PASSWORD", "guest"),
		},
		Channel: Channel{
			ExchangeName:  envOr("RABBIT_EXCHANGE", "documents"),
			ExchangeType:  "direct",
			RoutingKey:    envOr("RABBIT_ROUTING_KEY", "document.ingest"),
			QueueName:     envOr("RABBIT_QUEUE", "document.ingest"),
			PrefetchCount: prefetch,
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
