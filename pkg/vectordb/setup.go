package vectordb

import (
	"context"
	"fmt"
	"time"

	qdrant "github.com/qdrant/go-client/qdrant"

	"github.com/docsense/aicore/pkg/logger"
)

// Client wraps the official Qdrant Go client and provides higher-level
// operations for working with the embedding collections.
type Client struct {
	api     *qdrant.Client
	cfg     *Config
	logger  *logger.Logger
	started bool
}

// NewClient constructs a new Client and validates connectivity via a health
// check. The Qdrant Go SDK creates lightweight gRPC connections, so this
// performs an immediate health check to fail fast if the service is
// unreachable.
func NewClient(cfg *Config, l *logger.Logger) (*Client, error) {
	port := cfg.Port
	if port == 0 {
		port = 6334
	}

	api, err := qdrant.NewClient(&qdrant.Config{
		Host:                   cfg.Endpoint,
		Port:                   port,
		APIKey:                 cfg.ApiKey,
		SkipCompatibilityCheck: !cfg.CheckCompatibility,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize qdrant client: %w", err)
	}

	c := &Client{
		api:     api,
		cfg:     cfg,
		logger:  l,
		started: true,
	}

	if err := c.healthCheck(); err != nil {
		return nil, fmt.Errorf("qdrant health check failed: %w", err)
	}

	l.Info("connected to qdrant", nil, map[string]interface{}{
		"endpoint": cfg.Endpoint,
		"port":     port,
	})
	return c, nil
}

// healthCheck verifies the availability of the Qdrant service.
func (c *Client) healthCheck() error {
	if !c.started {
		return fmt.Errorf("client not started")
	}
	if c.api == nil {
		return fmt.Errorf("client not initialized")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	resp, err := c.api.HealthCheck(ctx)
	if err != nil {
		return err
	}

	c.logger.Debug("qdrant health check passed", nil, map[string]interface{}{
		"title":   resp.Title,
		"version": resp.Version,
	})
	return nil
}

// Close shuts down the Qdrant client.
func (c *Client) Close() {
	if !c.started {
		return
	}
	c.started = false
	c.logger.Info("qdrant client closed", nil, nil)
}
