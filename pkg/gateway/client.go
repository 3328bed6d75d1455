package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/docsense/aicore/pkg/logger"
	"github.com/docsense/aicore/pkg/metrics"
)

// Client is the public entrypoint for invoking AI operations through the
// coordination endpoint.
//
// It hides all wire details (endpoint paths, HTTP, auth) from the
// application layer and is purely a request/response boundary: it never
// touches the caller's database.
type Client struct {
	cfg        *Config
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

// Result is the decoded outcome of a successful invocation.
type Result struct {
	// Data is the action-specific response payload.
	Data map[string]any

	// CostUSD is the provider-reported cost for this invocation, falling
	// back to a per-action estimate when the provider reports none.
	CostUSD float64

	// Latency is the wall-clock duration of the invocation including retries.
	Latency time.Duration
}

// NewClient constructs a Client from Config. It validates the config and
// sets up the underlying HTTP client with the configured deadline.
func NewClient(cfg *Config, l *logger.Logger, m *metrics.Metrics) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("gateway: invalid config: %w", err)
	}

	base := strings.TrimRight(cfg.Endpoint, "/")

	return &Client{
		cfg:        cfg,
		baseURL:    base,
		httpClient: &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutS) * time.Second},
		logger:     l,
		metrics:    m,
	}, nil
}

// Invoke executes a single logical AI operation.
//
// The payload is validated against the action's schema before anything is
// sent; oversized text is truncated with TruncationMarker. Every call
// carries the bearer credential and a deadline, and idempotent actions are
// retried a bounded number of times on transient failures.
//
// The owner identity is passed through opaquely; the client performs no
// authorization of its own.
func (c *Client) Invoke(ctx context.Context, action Action, payload map[string]any, owner string) (*Result, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	validated, err := c.validatePayload(action, payload)
	if err != nil {
		return nil, err
	}

	ctx, span := otel.Tracer("gateway").Start(ctx, "gateway.invoke")
	span.SetAttributes(
		attribute.String("gateway.action", string(action)),
	)
	defer span.End()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.cfg.HTTPTimeoutS)*time.Second)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.invokeWithRetry(ctx, action, validated, owner)
	latency := time.Since(start)

	c.observe(action, latency, err)

	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	cost := costEstimate(action)
	if v, ok := resp.Data["cost_usd"].(float64); ok && v > 0 {
		cost = v
	}

	return &Result{
		Data:    resp.Data,
		CostUSD: cost,
		Latency: latency,
	}, nil
}

// observe records the invocation in logs and metrics. Every invocation is
// observed, success or failure; the budget tracker and operators rely on it.
func (c *Client) observe(action Action, latency time.Duration, err error) {
	outcome := outcomeLabel(err)

	if c.metrics != nil {
		c.metrics.GatewayInvocations.WithLabelValues(string(action), outcome).Inc()
		c.metrics.GatewayLatency.WithLabelValues(string(action)).Observe(latency.Seconds())
	}

	fields := map[string]interface{}{
		"action":     string(action),
		"latency_ms": latency.Milliseconds(),
		"outcome":    outcome,
	}
	if err != nil {
		c.logger.Warn("gateway invocation failed", err, fields)
		return
	}
	c.logger.Debug("gateway invocation completed", nil, fields)
}
