package queue

import (
	"context"
	"sync"

	"go.uber.org/fx"

	"github.com/docsense/aicore/pkg/logger"
)

var FXModule = fx.Module("queue",
	fx.Provide(
		NewConfig,
		NewClient,
		NewConsumer,
	),
	fx.Invoke(RegisterQueueLifecycle),
)

func RegisterQueueLifecycle(lc fx.Lifecycle, client *Rabbit, consumer *Consumer, cfg Config, l *logger.Logger) {
	wg := &sync.WaitGroup{}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			wg.Add(1)
			go func() {
				defer wg.Done()
				client.retryConnection(cfg, l)
			}()

			wg.Add(1)
			go func() {
				defer wg.Done()
				consumer.Run(context.Background())
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			client.gracefulShutdown()
			wg.Wait()
			return nil
		},
	})
}
