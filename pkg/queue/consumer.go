package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docsense/aicore/pkg/logger"
)

// IngestJob is one document.ingest message. Force re-runs the pipeline on an
// already-completed document.
type IngestJob struct {
	DocumentID uuid.UUID `json:"document_id"`
	Force      bool      `json:"force"`
}

// Handler processes one ingest job. A returned error nacks the message
// without requeue; the pipeline owns its own retry and partial-failure
// semantics, so redelivery would only duplicate work.
type Handler func(ctx context.Context, job IngestJob) error

// Consumer drains the ingest queue and hands jobs to the handler.
type Consumer struct {
	rabbit  *Rabbit
	handler Handler
	logger  *logger.Logger
}

func NewConsumer(rabbit *Rabbit, handler Handler, l *logger.Logger) *Consumer {
	return &Consumer{
		rabbit:  rabbit,
		handler: handler,
		logger:  l,
	}
}

// Run consumes messages until the context is cancelled or the client shuts
// down. Deliveries are acked on handler success, nacked without requeue on
// malformed payloads and handler errors.
func (c *Consumer) Run(ctx context.Context) {
outerLoop:
	for {
		select {
		case <-c.rabbit.shutdownSignal:
			c.logger.Info("ingest consumer shutting down", nil, nil)
			return
		case <-ctx.Done():
			c.logger.Info("ingest consumer stopping", ctx.Err(), nil)
			return
		default:
		}

		c.rabbit.mu.RLock()
		deliveries, err := c.rabbit.channel.Consume(
			c.rabbit.cfg.Channel.QueueName,
			"",    // consumer
			false, // autoAck
			false, // exclusive
			false, // noLocal
			false, // noWait
			nil,   // args
		)
		c.rabbit.mu.RUnlock()

		if err != nil {
			c.logger.Error("error in establishing ingest consumer", err, map[string]interface{}{
				"queue_name": c.rabbit.cfg.Channel.QueueName,
			})
			time.Sleep(100 * time.Millisecond)
			continue
		}

		for {
			select {
			case <-c.rabbit.shutdownSignal:
				c.logger.Info("ingest consumer shutting down", nil, nil)
				return
			case <-ctx.Done():
				c.logger.Info("ingest consumer stopping", ctx.Err(), nil)
				return
			case msg, ok := <-deliveries:
				if !ok {
					continue outerLoop
				}
				c.handleDelivery(ctx, msg.Body, msg.Ack, msg.Nack)
			}
		}
	}
}

func (c *Consumer) handleDelivery(
	ctx context.Context,
	body []byte,
	ack func(multiple bool) error,
	nack func(multiple, requeue bool) error,
) {
	job, err := decodeJob(body)
	if err != nil {
		c.logger.Error("dropping malformed ingest job", err, map[string]interface{}{
			"payload": string(body),
		})
		if err := nack(false, false); err != nil {
			c.logger.Error("failed to nack malformed ingest job", err, nil)
		}
		return
	}

	if err := c.handler(ctx, job); err != nil {
		c.logger.Error("ingest job failed", err, map[string]interface{}{
			"document_id": job.DocumentID.String(),
			"force":       job.Force,
		})
		if err := nack(false, false); err != nil {
			c.logger.Error("failed to nack ingest job", err, nil)
		}
		return
	}

	if err := ack(false); err != nil {
		c.logger.Error("failed to ack ingest job", err, map[string]interface{}{
			"document_id": job.DocumentID.String(),
		})
	}
}

func decodeJob(body []byte) (IngestJob, error) {
	var job IngestJob
	if err := json.Unmarshal(body, &job); err != nil {
		return IngestJob{}, fmt.Errorf("invalid ingest payload: %w", err)
	}
	if job.DocumentID == uuid.Nil {
		return IngestJob{}, fmt.Errorf("ingest payload missing document_id")
	}
	return job, nil
}
