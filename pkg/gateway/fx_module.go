package gateway

import (
	"go.uber.org/fx"
)

// FXModule wires the gateway client into Fx.
//
// It provides:
//   - *Config  (NewConfig)
//   - *Client  (NewClient)
var FXModule = fx.Module(
	"gateway",

	fx.Provide(
		NewConfig,
		NewClient,
	),
)
