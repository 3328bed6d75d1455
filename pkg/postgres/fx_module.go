package postgres

import (
	"context"
	"sync"

	"go.uber.org/fx"

	"github.com/docsense/aicore/pkg/logger"
)

var FXModule = fx.Module("postgres",
	fx.Provide(
		NewConfig,
		ProvidePostgres,
	),
	fx.Invoke(RegisterPostgresLifecycle),
)

// ProvidePostgres adapts the application logger to the package-local Logger
// interface.
func ProvidePostgres(cfg Config, l *logger.Logger) *Postgres {
	return NewPostgres(cfg, l)
}

func RegisterPostgresLifecycle(lifecycle fx.Lifecycle, postgres *Postgres, l *logger.Logger) {
	wg := &sync.WaitGroup{}
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			wg.Add(1)
			go func() {
				defer wg.Done()
				postgres.monitorConnection(context.Background())
			}()

			wg.Add(1)
			go func() {
				defer wg.Done()
				postgres.retryConnection(context.Background(), l)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			postgres.closeShutdownOnce.Do(func() {
				close(postgres.shutdownSignal)
			})
			wg.Wait()
			return nil
		},
	})
}
