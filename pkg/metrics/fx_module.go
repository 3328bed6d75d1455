package metrics

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/fx"

	"github.com/docsense/aicore/pkg/logger"
)

// FXModule wires the metrics system into Fx.
//
// It provides:
//   - Config    (NewConfig)
//   - *Metrics  (NewMetrics)
//
// and runs the scrape server for the lifetime of the application.
var FXModule = fx.Module(
	"metrics",

	fx.Provide(
		NewConfig,
		NewMetrics,
	),

	fx.Invoke(RegisterMetricsLifecycle),
)

// RegisterMetricsLifecycle starts the scrape server on application start and
// shuts it down gracefully on stop.
func RegisterMetricsLifecycle(lc fx.Lifecycle, m *Metrics, l *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				l.Info("metrics server listening", nil, map[string]interface{}{
					"address": m.Server.Addr,
				})
				if err := m.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					l.Error("metrics server terminated", err, nil)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return m.Server.Shutdown(ctx)
		},
	})
}
