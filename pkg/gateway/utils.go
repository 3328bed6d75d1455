package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// response mirrors the coordination endpoint's wire envelope.
type response struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// do performs a single invocation attempt and classifies the outcome into
// the package error taxonomy.
func (c *Client) do(ctx context.Context, action Action, payload map[string]any, owner string) (*response, error) {
	body := map[string]any{
		"action":  string(action),
		"payload": payload,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrInvalidPayload, err)
	}

	url := c.baseURL + "/invoke"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	if owner != "" {
		// Opaque identity pass-through; the body stays {action, payload}.
		req.Header.Set("X-Owner-Id", owner)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: http %d", ErrRemoteUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		// Provider-side throttling is transient, not a caller bug.
		return nil, fmt.Errorf("%w: http 429", ErrRemoteUnavailable)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: http %d", ErrRemoteRejected, resp.StatusCode)
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrRemoteUnavailable, err)
	}

	if !parsed.Success {
		return nil, fmt.Errorf("%w: %s", ErrRemoteRejected, parsed.Error)
	}

	return &parsed, nil
}

// classifyTransport maps a transport-level error to the taxonomy: deadline
// expiry becomes ErrTimeout, everything else ErrRemoteUnavailable.
func classifyTransport(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if tErr, ok := err.(interface{ Timeout() bool }); ok && tErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
}

// outcomeLabel converts an invocation error into a stable metrics label.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrRemoteRejected):
		return "rejected"
	case errors.Is(err, ErrRemoteUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
