package store

import (
	"context"

	"go.uber.org/fx"
)

var FXModule = fx.Module("store",
	fx.Provide(
		NewConfig,
		NewRepository,
	),
	fx.Invoke(RegisterMigrations),
)

// RegisterMigrations runs schema migration when the application starts.
func RegisterMigrations(lifecycle fx.Lifecycle, repo *Repository) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return repo.Migrate(ctx)
		},
	})
}
