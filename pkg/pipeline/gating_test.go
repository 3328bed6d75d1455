package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsense/aicore/pkg/breaker"
	"github.com/docsense/aicore/pkg/budget"
	"github.com/docsense/aicore/pkg/gateway"
	"github.com/docsense/aicore/pkg/logger"
)

func newGateUnderTest(t *testing.T, handler http.HandlerFunc, budgetCfg budget.Config, breakerCfg breaker.Config) (*Gate, *budget.Tracker, *atomic.Int64) {
	t.Helper()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	l := logger.NewLogger(logger.Config{Level: logger.Error, ServiceName: "gating-test"})

	client, err := gateway.NewClient(&gateway.Config{
		Endpoint:     srv.URL,
		BearerToken:  "test-token",
		HTTPTimeoutS: 5,
		MaxTextChars: 8000,
		MaxRetries:   0,
		RetryBaseMs:  1,
	}, l, nil)
	require.NoError(t, err)

	tracker := budget.NewTracker(budgetCfg, nil, l, nil)
	brk := breaker.NewBreaker(breakerCfg, "test-provider", time.Now, l, nil)

	return NewGate(tracker, brk, client), tracker, &hits
}

func okEmbedding(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    map[string]any{"embedding": []any{0.1}, "cost_usd": 0.02},
	})
}

func TestGate_BudgetDeniesBeforeAnyRequest(t *testing.T) {
	gate, _, hits := newGateUnderTest(t, okEmbedding,
		budget.Config{RequestsPerMinute: 1, MonthlyCostUSD: 50},
		breaker.Config{FailureThreshold: 5, Cooldown: 30 * time.Second},
	)

	_, err := gate.Invoke(context.Background(), gateway.ActionTextEmbedding, map[string]any{"text": "one"}, "owner-1")
	require.NoError(t, err)

	_, err = gate.Invoke(context.Background(), gateway.ActionTextEmbedding, map[string]any{"text": "two"}, "owner-1")
	assert.ErrorIs(t, err, budget.ErrRateLimited)
	assert.Equal(t, int64(1), hits.Load(), "denied call must never reach the wire")
}

func TestGate_OpenBreakerFailsFast(t *testing.T) {
	gate, _, hits := newGateUnderTest(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		budget.Config{RequestsPerMinute: 100, MonthlyCostUSD: 50},
		breaker.Config{FailureThreshold: 1, Cooldown: time.Hour},
	)

	_, err := gate.Invoke(context.Background(), gateway.ActionTextEmbedding, map[string]any{"text": "x"}, "owner-1")
	assert.ErrorIs(t, err, gateway.ErrRemoteUnavailable)

	_, err = gate.Invoke(context.Background(), gateway.ActionTextEmbedding, map[string]any{"text": "y"}, "owner-1")
	assert.ErrorIs(t, err, breaker.ErrCircuitOpen)
	assert.Equal(t, int64(1), hits.Load(), "open breaker must short-circuit before the wire")
}

func TestGate_CostRecordedOnlyAfterSuccess(t *testing.T) {
	gate, tracker, _ := newGateUnderTest(t, okEmbedding,
		budget.Config{RequestsPerMinute: 100, MonthlyCostUSD: 50},
		breaker.Config{FailureThreshold: 5, Cooldown: 30 * time.Second},
	)

	require.Equal(t, 0.0, tracker.Snapshot().MonthCost)

	res, err := gate.Invoke(context.Background(), gateway.ActionTextEmbedding, map[string]any{"text": "hello"}, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 0.02, res.CostUSD)
	assert.Equal(t, 0.02, tracker.Snapshot().MonthCost)
}

func TestGate_RejectionDoesNotChargeOrTrip(t *testing.T) {
	gate, tracker, _ := newGateUnderTest(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
		},
		budget.Config{RequestsPerMinute: 100, MonthlyCostUSD: 50},
		breaker.Config{FailureThreshold: 1, Cooldown: time.Hour},
	)

	_, err := gate.Invoke(context.Background(), gateway.ActionTextEmbedding, map[string]any{"text": "x"}, "owner-1")
	assert.ErrorIs(t, err, gateway.ErrRemoteRejected)
	assert.Equal(t, 0.0, tracker.Snapshot().MonthCost)

	// A rejection is the caller's fault, not the provider's health; the
	// breaker stays closed and the next call goes out.
	_, err = gate.Invoke(context.Background(), gateway.ActionTextEmbedding, map[string]any{"text": "y"}, "owner-1")
	assert.ErrorIs(t, err, gateway.ErrRemoteRejected)
	assert.NotErrorIs(t, err, breaker.ErrCircuitOpen)
}
