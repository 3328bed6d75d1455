package vectordb

import (
	"context"
	"fmt"
	"slices"

	qdrant "github.com/qdrant/go-client/qdrant"
)

// Point is one stored vector with its payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Scored is one similarity search hit.
type Scored struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// SearchRequest describes one similarity search.
type SearchRequest struct {
	Collection     string
	Vector         []float32
	TopK           int
	ScoreThreshold float32
	Filters        *FilterSet
}

// EnsureCollection verifies if a given collection exists and creates it with
// the given vector size if missing. Safe to call multiple times.
func (c *Client) EnsureCollection(ctx context.Context, name string, size uint64) error {
	if name == "" {
		return fmt.Errorf("collection name cannot be empty")
	}

	collections, err := c.api.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	if slices.Contains(collections, name) {
		return nil
	}

	c.logger.Info("creating qdrant collection", nil, map[string]interface{}{
		"collection": name,
		"size":       size,
	})

	req := &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     size,
			Distance: qdrant.Distance_Cosine,
		}),
	}

	if err := c.api.CreateCollection(ctx, req); err != nil {
		return fmt.Errorf("failed to create collection %q: %w", name, err)
	}
	return nil
}

// Upsert writes points into a collection, blocking until persisted.
func (c *Client) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(p.Payload),
		})
	}

	wait := true
	req := &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         structs,
		Wait:           &wait,
	}

	if _, err := c.api.Upsert(ctx, req); err != nil {
		return fmt.Errorf("upsert into %q failed: %w", collection, err)
	}

	c.logger.Debug("upserted points", nil, map[string]interface{}{
		"collection": collection,
		"count":      len(points),
	})
	return nil
}

// Search performs a similarity search, keeping only hits at or above the
// score threshold when one is set.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]Scored, error) {
	if err := validateSearchInput(req.Collection, req.Vector, req.TopK); err != nil {
		return nil, err
	}

	limit := uint64(req.TopK)
	query := &qdrant.QueryPoints{
		CollectionName: req.Collection,
		Query:          qdrant.NewQuery(req.Vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         buildFilter(req.Filters),
	}
	if req.ScoreThreshold > 0 {
		threshold := req.ScoreThreshold
		query.ScoreThreshold = &threshold
	}

	resp, err := c.api.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search in %q failed: %w", req.Collection, err)
	}

	return parseSearchResults(resp)
}

// Delete removes points from a collection by their IDs.
func (c *Client) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewID(id))
	}

	wait := true
	req := &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: pointIDs},
			},
		},
		Wait: &wait,
	}

	if _, err := c.api.Delete(ctx, req); err != nil {
		return fmt.Errorf("delete from %q failed: %w", collection, err)
	}

	c.logger.Debug("deleted points", nil, map[string]interface{}{
		"collection": collection,
		"count":      len(ids),
	})
	return nil
}

// parseSearchResults converts the Qdrant response into Scored hits.
func parseSearchResults(resp []*qdrant.ScoredPoint) ([]Scored, error) {
	results := make([]Scored, 0, len(resp))
	for _, r := range resp {
		var id string
		switch v := r.Id.PointIdOptions.(type) {
		case *qdrant.PointId_Num:
			id = fmt.Sprintf("%d", v.Num)
		case *qdrant.PointId_Uuid:
			id = v.Uuid
		default:
			return nil, fmt.Errorf("unexpected PointId type: %T", v)
		}

		results = append(results, Scored{
			ID:      id,
			Score:   r.Score,
			Payload: decodePayload(r.Payload),
		})
	}
	return results, nil
}
