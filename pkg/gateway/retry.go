package gateway

import (
	"context"
	"fmt"
	"time"
)

// invokeWithRetry performs the invocation with a bounded retry loop.
//
// Only idempotent actions are retried, and only on transient failures
// (timeout, provider unavailable). The loop is a fixed iteration count with
// an explicit deadline check per attempt, so it always terminates under the
// overall request deadline.
func (c *Client) invokeWithRetry(ctx context.Context, action Action, payload map[string]any, owner string) (*response, error) {
	attempts := 1
	if action.Idempotent() {
		attempts = c.cfg.MaxRetries + 1
	}

	backoff := time.Duration(c.cfg.RetryBaseMs) * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}

		resp, err := c.do(ctx, action, payload, owner)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !Retryable(err) || attempt == attempts-1 {
			return nil, err
		}

		c.logger.Debug("retrying gateway invocation", err, map[string]interface{}{
			"action":  string(action),
			"attempt": attempt + 1,
			"backoff": backoff.String(),
		})

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return nil, lastErr
}
