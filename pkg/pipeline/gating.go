package pipeline

import (
	"context"

	"github.com/docsense/aicore/pkg/breaker"
	"github.com/docsense/aicore/pkg/budget"
	"github.com/docsense/aicore/pkg/gateway"
)

// Invoker issues one gated provider call.
type Invoker interface {
	Invoke(ctx context.Context, action gateway.Action, payload map[string]any, owner string) (*gateway.Result, error)
}

// Gate composes admission control around gateway invocation: budget
// admission first, then the circuit breaker, then the call itself. Cost is
// recorded only after a successful response, and every outcome feeds the
// breaker. No caller bypasses this ordering, batched or not.
type Gate struct {
	budget  *budget.Tracker
	breaker *breaker.Breaker
	client  *gateway.Client
}

func NewGate(tracker *budget.Tracker, brk *breaker.Breaker, client *gateway.Client) *Gate {
	return &Gate{
		budget:  tracker,
		breaker: brk,
		client:  client,
	}
}

// Invoke runs one provider call through the full gating chain.
func (g *Gate) Invoke(ctx context.Context, action gateway.Action, payload map[string]any, owner string) (*gateway.Result, error) {
	if err := g.budget.Admit(string(action)); err != nil {
		return nil, err
	}
	if err := g.breaker.Allow(); err != nil {
		return nil, err
	}

	result, err := g.client.Invoke(ctx, action, payload, owner)
	if err != nil {
		g.breaker.RecordFailure(err)
		return nil, err
	}

	g.breaker.RecordSuccess()
	g.budget.RecordCost(string(action), result.CostUSD)
	return result, nil
}
