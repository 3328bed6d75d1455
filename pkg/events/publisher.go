package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/docsense/aicore/pkg/logger"
)

// DocumentProcessed is emitted after every pipeline run, whether it
// completed or failed.
type DocumentProcessed struct {
	DocumentID     uuid.UUID `json:"document_id"`
	OwnerID        string    `json:"owner_id"`
	Status         string    `json:"status"`
	ChunksTotal    int       `json:"chunks_total"`
	ChunksEmbedded int       `json:"chunks_embedded"`
	ChunksFailed   int       `json:"chunks_failed"`
	ImagesEmbedded int       `json:"images_embedded"`
	DurationMS     int64     `json:"duration_ms"`
	ProcessedAt    time.Time `json:"processed_at"`
}

// Publisher writes processing events to Kafka. Publishing is best-effort
// relative to the pipeline: a publish failure is logged but never fails the
// run that produced it.
type Publisher struct {
	cfg    Config
	writer *kafka.Writer
	logger *logger.Logger

	mu        sync.Mutex
	closeOnce sync.Once
}

func NewPublisher(cfg Config, l *logger.Logger) *Publisher {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: cfg.WriteTimeout,
	})

	return &Publisher{
		cfg:    cfg,
		writer: writer,
		logger: l,
	}
}

// Publish writes one event, keyed by document id so per-document ordering
// holds within a partition.
func (p *Publisher) Publish(ctx context.Context, event DocumentProcessed) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.DocumentID.String()),
		Value: body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.cfg.Topic, err)
	}

	p.logger.Debug("published document.processed event", nil, map[string]interface{}{
		"document_id": event.DocumentID.String(),
		"status":      event.Status,
	})
	return nil
}

// Close flushes and shuts down the writer.
func (p *Publisher) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.writer.Close()
	})
	return err
}
