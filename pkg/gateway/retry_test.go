package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry_IdempotentActionRecovers(t *testing.T) {
	var calls atomic.Int32

	c, _ := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{}})
	})

	_, err := c.Invoke(context.Background(), ActionTextEmbedding, map[string]any{"text": "hi"}, "")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetry_NonIdempotentActionNotRetried(t *testing.T) {
	var calls atomic.Int32

	c, _ := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Invoke(context.Background(), ActionSemanticAnalysis, map[string]any{"text": "hi"}, "")
	assert.ErrorIs(t, err, ErrRemoteUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetry_RejectionNotRetried(t *testing.T) {
	var calls atomic.Int32

	c, _ := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	_, err := c.Invoke(context.Background(), ActionTextEmbedding, map[string]any{"text": "hi"}, "")
	assert.ErrorIs(t, err, ErrRemoteRejected)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetry_BoundedAttempts(t *testing.T) {
	var calls atomic.Int32

	c, _ := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Invoke(context.Background(), ActionTextEmbedding, map[string]any{"text": "hi"}, "")
	assert.ErrorIs(t, err, ErrRemoteUnavailable)
	// MaxRetries=2 -> 3 attempts total, never more.
	assert.Equal(t, int32(3), calls.Load())
}
