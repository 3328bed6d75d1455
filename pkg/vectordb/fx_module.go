package vectordb

import (
	"context"
	"sync"

	"go.uber.org/fx"

	"github.com/docsense/aicore/pkg/store"
)

// FXModule integrates the Qdrant client into an Fx-based application. On
// start it ensures both embedding collections exist with their fixed
// dimensions; on stop it closes the client.
var FXModule = fx.Module("vectordb",
	fx.Provide(
		NewConfig,
		NewClient,
	),
	fx.Invoke(RegisterVectorDBLifecycle),
)

// RegisterVectorDBLifecycle bootstraps collections on startup and handles
// shutdown of the client.
func RegisterVectorDBLifecycle(lc fx.Lifecycle, client *Client) {
	var once sync.Once

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.EnsureCollection(ctx, store.CollectionTextChunks, store.TextEmbeddingDim); err != nil {
				return err
			}
			return client.EnsureCollection(ctx, store.CollectionVisualEmbeddings, store.VisualEmbeddingDim)
		},
		OnStop: func(ctx context.Context) error {
			once.Do(client.Close)
			return nil
		},
	})
}
