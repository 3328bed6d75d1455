package objectstore

import (
	"go.uber.org/fx"
)

var FXModule = fx.Module("objectstore",
	fx.Provide(
		NewConfig,
		NewStore,
	),
)
