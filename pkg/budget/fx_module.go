package budget

import (
	"time"

	"go.uber.org/fx"

	"github.com/docsense/aicore/pkg/logger"
	"github.com/docsense/aicore/pkg/metrics"
)

// FXModule wires the budget tracker into Fx as a process-wide singleton.
var FXModule = fx.Module(
	"budget",

	fx.Provide(
		NewConfig,
		ProvideTracker,
	),
)

// ProvideTracker constructs the production tracker with the wall clock.
func ProvideTracker(cfg Config, l *logger.Logger, m *metrics.Metrics) *Tracker {
	return NewTracker(cfg, time.Now, l, m)
}
