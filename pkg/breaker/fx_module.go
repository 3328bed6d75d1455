package breaker

import (
	"time"

	"go.uber.org/fx"

	"github.com/docsense/aicore/pkg/logger"
	"github.com/docsense/aicore/pkg/metrics"
)

// ProviderTarget is the single logical downstream target in production
// wiring: the AI coordination provider as a whole.
const ProviderTarget = "ai-provider"

// FXModule wires the circuit breaker into Fx as a process-wide singleton.
var FXModule = fx.Module(
	"breaker",

	fx.Provide(
		NewConfig,
		ProvideBreaker,
	),
)

// ProvideBreaker constructs the production breaker with the wall clock.
func ProvideBreaker(cfg Config, l *logger.Logger, m *metrics.Metrics) *Breaker {
	return NewBreaker(cfg, ProviderTarget, time.Now, l, m)
}
