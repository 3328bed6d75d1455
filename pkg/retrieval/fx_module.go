package retrieval

import (
	"go.uber.org/fx"

	"github.com/docsense/aicore/pkg/logger"
	"github.com/docsense/aicore/pkg/postgres"
	"github.com/docsense/aicore/pkg/search"
)

var FXModule = fx.Module("retrieval",
	fx.Provide(
		ProvideService,
	),
)

// ProvideService binds the hybrid engine to the service's search surface.
func ProvideService(db *postgres.Postgres, engine *search.Engine, l *logger.Logger) *Service {
	return NewService(db, engine, l)
}
