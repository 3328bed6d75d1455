package httpapi

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/fx"

	"github.com/docsense/aicore/pkg/logger"
	"github.com/docsense/aicore/pkg/metrics"
	"github.com/docsense/aicore/pkg/retrieval"
)

var FXModule = fx.Module("httpapi",
	fx.Provide(
		NewConfig,
		ProvideServer,
	),

	fx.Invoke(RegisterServerLifecycle),
)

// ProvideServer binds the retrieval service to the handler surface.
func ProvideServer(cfg Config, svc *retrieval.Service, l *logger.Logger, m *metrics.Metrics) *Server {
	return NewServer(cfg, svc, l, m)
}

// RegisterServerLifecycle runs the API server for the lifetime of the
// application.
func RegisterServerLifecycle(lc fx.Lifecycle, s *Server, l *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				l.Info("retrieval api listening", nil, map[string]interface{}{
					"address": s.cfg.Address,
				})
				if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					l.Error("retrieval api terminated", err, nil)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.http.Shutdown(ctx)
		},
	})
}
