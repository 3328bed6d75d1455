package pipeline

import (
	"context"

	"go.uber.org/fx"

	"github.com/docsense/aicore/pkg/events"
	"github.com/docsense/aicore/pkg/logger"
	"github.com/docsense/aicore/pkg/objectstore"
	"github.com/docsense/aicore/pkg/queue"
	"github.com/docsense/aicore/pkg/store"
	"github.com/docsense/aicore/pkg/vectordb"
)

var FXModule = fx.Module("pipeline",
	fx.Provide(
		NewConfig,
		NewGate,
		ProvideProcessor,
		ProvideIngestHandler,
	),
)

// ProvideProcessor binds the concrete infrastructure to the processor's
// narrow dependencies.
func ProvideProcessor(
	cfg Config,
	repo *store.Repository,
	content *objectstore.Store,
	vectors *vectordb.Client,
	gate *Gate,
	publisher *events.Publisher,
	l *logger.Logger,
) *Processor {
	return NewProcessor(cfg, repo, content, vectors, gate, publisher, l)
}

// ProvideIngestHandler exposes the processor to the ingest queue consumer.
func ProvideIngestHandler(p *Processor) queue.Handler {
	return func(ctx context.Context, job queue.IngestJob) error {
		_, err := p.Process(ctx, job.DocumentID, job.Force)
		return err
	}
}
