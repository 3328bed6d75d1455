package tracer

import (
	"context"

	"go.uber.org/fx"
)

var FXModule = fx.Module("tracer",
	fx.Provide(
		NewConfig,
		NewClient,
	),
	fx.Invoke(RegisterTracerLifecycle),
)

func RegisterTracerLifecycle(lc fx.Lifecycle, t *Tracer) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			t.logger.Info("shutting down tracer...", nil, nil)
			if t.provider == nil {
				t.logger.Warn("tracer provider was nil during shutdown", nil, nil)
				return nil
			}
			return t.provider.Shutdown(ctx)
		},
	})
}
