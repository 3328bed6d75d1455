package logger

import (
	"context"

	"go.uber.org/fx"
)

// FXModule wires the logger into Fx.
//
// It provides:
//   - Config   (NewConfig)
//   - *Logger  (NewLogger)
//
// and flushes buffered log entries on shutdown.
var FXModule = fx.Module(
	"logger",

	fx.Provide(
		NewConfig,
		NewLogger,
	),

	fx.Invoke(RegisterLoggerLifecycle),
)

// RegisterLoggerLifecycle syncs the underlying zap core on application stop.
func RegisterLoggerLifecycle(lc fx.Lifecycle, l *Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			// Sync on stderr is best effort.
			_ = l.Zap.Sync()
			return nil
		},
	})
}
