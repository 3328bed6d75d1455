package events

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// NewConfig reads from environment variables.
func NewConfig() Config {
	brokers := []string{"localhost:9092"}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = strings.Split(v, ",")
	}
	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = "document.processed"
	}
	return Config{
		Brokers:      brokers,
		Topic:        topic,
		WriteTimeout: 10 * time.Second,
	}
}
