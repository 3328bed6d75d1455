package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/docsense/aicore/pkg/gateway"
	"github.com/docsense/aicore/pkg/logger"
	"github.com/docsense/aicore/pkg/store"
	"github.com/docsense/aicore/pkg/vectordb"
)

var (
	// ErrUnknownTable is returned for table kinds outside the allow-list.
	ErrUnknownTable = errors.New("search: unknown table kind")

	// ErrInvalidFilter is returned for malformed filter input before any
	// query executes.
	ErrInvalidFilter = errors.New("search: invalid filter")
)

// Merge weights. A record hit by both legs scores strictly above the same
// record hit by either leg alone.
const (
	vectorWeight  = 0.7
	keywordWeight = 0.3
	bothLegsBonus = 0.1
)

// Range bounds one numeric filter field. Nil ends are unbounded.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Filters are hard post-filters with AND semantics: field equality, or a
// Range value for explicit numeric ranges.
type Filters map[string]any

// Query describes one hybrid search. At least one of Text/Vector triggers
// ranked retrieval; with neither, the result is a filters-only listing
// ordered by creation time.
type Query struct {
	Table         string
	Text          string
	Vector        []float32
	Owner         string
	Filters       Filters
	ConfidenceMin *float64
	Limit         int
}

// Result is one ranked hit.
type Result struct {
	ID           uuid.UUID
	Score        float64
	VectorScore  float64
	KeywordScore float64
	CreatedAt    time.Time
	Confidence   *float64
	Record       map[string]any
}

// VectorIndex is the similarity search surface the engine depends on.
type VectorIndex interface {
	Search(ctx context.Context, req vectordb.SearchRequest) ([]vectordb.Scored, error)
}

// Embedder turns query text into a query vector through the gated provider
// client. May be absent, in which case text queries run keyword-only.
type Embedder interface {
	Invoke(ctx context.Context, action gateway.Action, payload map[string]any, owner string) (*gateway.Result, error)
}

// Engine runs hybrid searches over allow-listed table kinds.
type Engine struct {
	cfg      Config
	index    VectorIndex
	rows     RowSource
	embedder Embedder
	logger   *logger.Logger
}

func NewEngine(cfg Config, index VectorIndex, rows RowSource, embedder Embedder, l *logger.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		index:    index,
		rows:     rows,
		embedder: embedder,
		logger:   l,
	}
}

// Search executes the hybrid query and returns the merged ranking. An empty
// result set is a normal outcome, never an error.
func (e *Engine) Search(ctx context.Context, q Query) ([]Result, error) {
	spec, ok := store.LookupTable(q.Table)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, q.Table)
	}

	limit := clampLimit(q.Limit)

	vector, err := e.queryVector(ctx, spec, q)
	if err != nil {
		return nil, err
	}

	if vector == nil && q.Text == "" {
		return e.listOnly(ctx, spec, q, limit)
	}

	merged := map[uuid.UUID]*Result{}

	if vector != nil {
		if err := e.vectorLeg(ctx, spec, q, vector, limit, merged); err != nil {
			return nil, err
		}
	}

	if q.Text != "" {
		if err := e.keywordLeg(ctx, spec, q, limit, merged); err != nil {
			return nil, err
		}
	}

	results := make([]Result, 0, len(merged))
	for _, r := range merged {
		r.Score = vectorWeight*r.VectorScore + keywordWeight*r.KeywordScore
		if r.VectorScore > 0 && r.KeywordScore > 0 {
			r.Score += bothLegsBonus
		}
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// queryVector resolves the vector leg input: an explicit query vector wins,
// otherwise text is embedded for text-chunk tables when an embedder is
// available. The explicit vector's dimension is validated against the
// table's embedding kind.
func (e *Engine) queryVector(ctx context.Context, spec store.TableSpec, q Query) ([]float32, error) {
	if !spec.HasEmbeddings {
		return nil, nil
	}

	wantDim := store.TextEmbeddingDim
	if spec.Collection == store.CollectionVisualEmbeddings {
		wantDim = store.VisualEmbeddingDim
	}

	if q.Vector != nil {
		if len(q.Vector) != wantDim {
			return nil, fmt.Errorf("%w: query vector has %d dimensions, want %d",
				store.ErrDimensionMismatch, len(q.Vector), wantDim)
		}
		return q.Vector, nil
	}

	if q.Text == "" || e.embedder == nil || spec.Collection != store.CollectionTextChunks {
		return nil, nil
	}

	result, err := e.embedder.Invoke(ctx, gateway.ActionTextEmbedding, map[string]any{
		"text": q.Text,
	}, q.Owner)
	if err != nil {
		// The keyword leg still serves the query; degraded, not failed.
		e.logger.Warn("query embedding unavailable, falling back to keyword search", err, map[string]interface{}{
			"table": spec.Name,
		})
		return nil, nil
	}

	vector, err := decodeEmbedding(result.Data["embedding"], wantDim)
	if err != nil {
		e.logger.Warn("query embedding malformed, falling back to keyword search", err, map[string]interface{}{
			"table": spec.Name,
		})
		return nil, nil
	}
	return vector, nil
}

// vectorLeg runs similarity search and hydrates the hits into table rows,
// applying owner scoping in the vector store and the remaining filters on
// the relational side.
func (e *Engine) vectorLeg(ctx context.Context, spec store.TableSpec, q Query, vector []float32, limit int, merged map[uuid.UUID]*Result) error {
	req := vectordb.SearchRequest{
		Collection:     spec.Collection,
		Vector:         vector,
		TopK:           limit,
		ScoreThreshold: e.cfg.SimilarityThreshold,
	}
	if q.Owner != "" {
		req.Filters = &vectordb.FilterSet{
			Must: &vectordb.ConditionSet{
				Conditions: []vectordb.FilterCondition{
					vectordb.TextCondition{Key: "owner_id", Value: q.Owner},
				},
			},
		}
	}

	hits, err := e.index.Search(ctx, req)
	if err != nil {
		return fmt.Errorf("vector search %q: %w", spec.Collection, err)
	}
	if len(hits) == 0 {
		return nil
	}

	keyColumn, scores := hitKeys(spec, hits)
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}

	rows, err := e.rows.Fetch(ctx, spec, keyColumn, keys, q)
	if err != nil {
		return err
	}

	for _, row := range rows {
		score := float64(scores[rowKey(spec, keyColumn, row)])
		merged[row.ID] = &Result{
			ID:          row.ID,
			VectorScore: score,
			CreatedAt:   row.CreatedAt,
			Confidence:  row.Confidence,
			Record:      row.Data,
		}
	}
	return nil
}

// keywordLeg matches the query text against the table's search columns and
// folds the hits into the merge, ranking matches by recency decay.
func (e *Engine) keywordLeg(ctx context.Context, spec store.TableSpec, q Query, limit int, merged map[uuid.UUID]*Result) error {
	rows, err := e.rows.Match(ctx, spec, q, true, limit)
	if err != nil {
		return err
	}

	for i, row := range rows {
		score := 1.0 - float64(i)/float64(len(rows))
		if existing, ok := merged[row.ID]; ok {
			existing.KeywordScore = score
			continue
		}
		merged[row.ID] = &Result{
			ID:           row.ID,
			KeywordScore: score,
			CreatedAt:    row.CreatedAt,
			Confidence:   row.Confidence,
			Record:       row.Data,
		}
	}
	return nil
}

// listOnly serves queries with neither text nor vector: a plain filtered
// listing ordered by creation time descending.
func (e *Engine) listOnly(ctx context.Context, spec store.TableSpec, q Query, limit int) ([]Result, error) {
	rows, err := e.rows.Match(ctx, spec, q, false, limit)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, Result{
			ID:         row.ID,
			CreatedAt:  row.CreatedAt,
			Confidence: row.Confidence,
			Record:     row.Data,
		})
	}
	return results, nil
}

// hitKeys maps similarity hits onto the relational key column and per-key
// scores. Text-chunk vectors carry the chunk row id in their payload; visual
// embedding rows are keyed by the stored point id itself.
func hitKeys(spec store.TableSpec, hits []vectordb.Scored) (string, map[string]float32) {
	scores := make(map[string]float32, len(hits))

	if spec.Collection == store.CollectionTextChunks {
		for _, h := range hits {
			if id, ok := h.Payload["chunk_id"].(string); ok && id != "" {
				scores[id] = h.Score
			}
		}
		return "id", scores
	}

	for _, h := range hits {
		scores[h.ID] = h.Score
	}
	return "point_id", scores
}

// rowKey returns the value that keyed this row in the similarity hit map.
func rowKey(spec store.TableSpec, keyColumn string, row Row) string {
	if keyColumn == "id" {
		return row.ID.String()
	}
	if v, ok := row.Data[keyColumn].(string); ok {
		return v
	}
	return ""
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// decodeEmbedding parses a provider embedding payload and checks its
// dimension.
func decodeEmbedding(v any, wantDim int) ([]float32, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("embedding payload is not an array")
	}
	if len(items) != wantDim {
		return nil, fmt.Errorf("%w: got %d, want %d", store.ErrDimensionMismatch, len(items), wantDim)
	}
	vector := make([]float32, len(items))
	for i, item := range items {
		f, ok := item.(float64)
		if !ok {
			return nil, fmt.Errorf("embedding element %d is not a number", i)
		}
		vector[i] = float32(f)
	}
	return vector, nil
}
