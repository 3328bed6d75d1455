package search

import (
	"go.uber.org/fx"

	"github.com/docsense/aicore/pkg/logger"
	"github.com/docsense/aicore/pkg/pipeline"
	"github.com/docsense/aicore/pkg/vectordb"
)

var FXModule = fx.Module("search",
	fx.Provide(
		NewConfig,
		NewRowSource,
		ProvideEngine,
	),
)

// ProvideEngine binds the vector store client and the gated provider client
// to the engine's narrow dependencies.
func ProvideEngine(cfg Config, index *vectordb.Client, rows RowSource, gate *pipeline.Gate, l *logger.Logger) *Engine {
	return NewEngine(cfg, index, rows, gate, l)
}
