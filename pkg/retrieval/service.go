package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docsense/aicore/pkg/logger"
	"github.com/docsense/aicore/pkg/postgres"
	"github.com/docsense/aicore/pkg/search"
	"github.com/docsense/aicore/pkg/store"
)

// ListOptions controls one paginated listing.
type ListOptions struct {
	Owner     string
	Limit     int
	Offset    int
	SortField string
	SortOrder string
}

// Pagination is the metadata accompanying one listing page.
type Pagination struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

// SearchRequest describes one table-scoped search.
type SearchRequest struct {
	Owner         string
	Text          string
	Filters       search.Filters
	ConfidenceMin *float64
	Limit         int
}

// Searcher is the hybrid engine surface the service delegates to.
type Searcher interface {
	Search(ctx context.Context, q search.Query) ([]search.Result, error)
}

// Service implements the generic retrieval operations. It is read-mostly;
// Delete is the only mutator and is deliberately not cascaded into chunk or
// embedding tables.
type Service struct {
	db     *postgres.Postgres
	engine Searcher
	logger *logger.Logger
}

func NewService(db *postgres.Postgres, engine Searcher, l *logger.Logger) *Service {
	return &Service{db: db, engine: engine, logger: l}
}

// Get fetches one record by id. With an owner supplied, a mismatch is
// indistinguishable from a missing record.
func (s *Service) Get(ctx context.Context, table string, id uuid.UUID, owner string) (map[string]any, error) {
	spec, ok := store.LookupTable(table)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}

	tx := s.db.DB().WithContext(ctx).Table(spec.Name).Where("id = ?", id)
	if owner != "" {
		tx = tx.Where("owner_id = ?", owner)
	}

	var record map[string]any
	if err := tx.Take(&record).Error; err != nil {
		if errors.Is(postgres.TranslateError(err), postgres.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", spec.Name, id, postgres.TranslateError(err))
	}

	return cleanRecord(record), nil
}

// List returns one page of records plus pagination metadata.
func (s *Service) List(ctx context.Context, table string, opts ListOptions) ([]map[string]any, Pagination, error) {
	spec, ok := store.LookupTable(table)
	if !ok {
		return nil, Pagination{}, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}

	opts, err := normalizeListOptions(spec, opts)
	if err != nil {
		return nil, Pagination{}, err
	}

	scoped := func() *gorm.DB {
		tx := s.db.DB().WithContext(ctx).Table(spec.Name)
		if opts.Owner != "" {
			tx = tx.Where("owner_id = ?", opts.Owner)
		}
		return tx
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("count %s: %w", spec.Name, postgres.TranslateError(err))
	}

	var records []map[string]any
	err = scoped().
		Order(opts.SortField + " " + opts.SortOrder).
		Limit(opts.Limit).
		Offset(opts.Offset).
		Find(&records).Error
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("list %s: %w", spec.Name, postgres.TranslateError(err))
	}

	for i := range records {
		records[i] = cleanRecord(records[i])
	}

	page := Pagination{
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: int64(opts.Offset+len(records)) < total,
	}
	return records, page, nil
}

// Search delegates to the hybrid engine. Embedding-bearing tables get the
// full vector+keyword merge; the rest get plain filter and substring
// matching through the engine's keyword leg.
func (s *Service) Search(ctx context.Context, table string, req SearchRequest) ([]search.Result, error) {
	if _, ok := store.LookupTable(table); !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}

	results, err := s.engine.Search(ctx, search.Query{
		Table:         table,
		Text:          req.Text,
		Owner:         req.Owner,
		Filters:       req.Filters,
		ConfidenceMin: req.ConfidenceMin,
		Limit:         req.Limit,
	})
	if err != nil {
		if errors.Is(err, search.ErrInvalidFilter) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, err
	}
	return results, nil
}

// Delete removes one record permanently. Owner mismatch reports not-found.
// Cascading cleanup of dependent rows is the caller's responsibility.
func (s *Service) Delete(ctx context.Context, table string, id uuid.UUID, owner string) error {
	spec, ok := store.LookupTable(table)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}

	// spec.Name comes from the fixed registry, never from the caller.
	sql := "DELETE FROM " + spec.Name + " WHERE id = ?"
	args := []any{id}
	if owner != "" {
		sql += " AND owner_id = ?"
		args = append(args, owner)
	}

	tx := s.db.DB().WithContext(ctx).Exec(sql, args...)
	if tx.Error != nil {
		return fmt.Errorf("delete %s/%s: %w", spec.Name, id, postgres.TranslateError(tx.Error))
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("record deleted", nil, map[string]interface{}{
		"table": spec.Name,
		"id":    id.String(),
	})
	return nil
}

// normalizeListOptions applies defaults and validates bounds and the sort
// field against the table's whitelist.
func normalizeListOptions(spec store.TableSpec, opts ListOptions) (ListOptions, error) {
	if opts.Limit <= 0 {
		opts.Limit = search.DefaultLimit
	}
	if opts.Limit > search.MaxLimit {
		opts.Limit = search.MaxLimit
	}
	if opts.Offset < 0 {
		return opts, fmt.Errorf("%w: offset must be >= 0", ErrValidation)
	}

	if opts.SortField == "" {
		opts.SortField = "created_at"
	}
	if !spec.SortAllowed(opts.SortField) {
		return opts, fmt.Errorf("%w: %q is not a sortable field of %s", ErrValidation, opts.SortField, spec.Name)
	}

	switch opts.SortOrder {
	case "":
		opts.SortOrder = "desc"
	case "asc", "desc":
	default:
		return opts, fmt.Errorf("%w: sort order must be asc or desc", ErrValidation)
	}

	return opts, nil
}

// cleanRecord converts driver byte slices to strings and timestamps to UTC
// so records serialize predictably.
func cleanRecord(record map[string]any) map[string]any {
	for k, v := range record {
		switch t := v.(type) {
		case []byte:
			record[k] = string(t)
		case time.Time:
			record[k] = t.UTC()
		}
	}
	return record
}
