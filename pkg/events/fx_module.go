package events

import (
	"context"

	"go.uber.org/fx"
)

var FXModule = fx.Module("events",
	fx.Provide(
		NewConfig,
		NewPublisher,
	),
	fx.Invoke(RegisterPublisherLifecycle),
)

func RegisterPublisherLifecycle(lc fx.Lifecycle, publisher *Publisher) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return publisher.Close()
		},
	})
}
