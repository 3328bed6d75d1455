package main

import (
	"go.uber.org/fx"

	"github.com/joho/godotenv"

	"github.com/docsense/aicore/pkg/breaker"
	"github.com/docsense/aicore/pkg/budget"
	"github.com/docsense/aicore/pkg/events"
	"github.com/docsense/aicore/pkg/gateway"
	"github.com/docsense/aicore/pkg/httpapi"
	"github.com/docsense/aicore/pkg/logger"
	"github.com/docsense/aicore/pkg/metrics"
	"github.com/docsense/aicore/pkg/objectstore"
	"github.com/docsense/aicore/pkg/pipeline"
	"github.com/docsense/aicore/pkg/postgres"
	"github.com/docsense/aicore/pkg/queue"
	"github.com/docsense/aicore/pkg/retrieval"
	"github.com/docsense/aicore/pkg/search"
	"github.com/docsense/aicore/pkg/store"
	"github.com/docsense/aicore/pkg/tracer"
	"github.com/docsense/aicore/pkg/vectordb"
)

func main() {
	_ = godotenv.Load()

	fx.New(
		logger.FXModule,
		metrics.FXModule,
		tracer.FXModule,

		postgres.FXModule,
		store.FXModule,
		vectordb.FXModule,
		objectstore.FXModule,

		gateway.FXModule,
		budget.FXModule,
		breaker.FXModule,

		pipeline.FXModule,
		queue.FXModule,
		events.FXModule,

		search.FXModule,
		retrieval.FXModule,
		httpapi.FXModule,
	).Run()
}
