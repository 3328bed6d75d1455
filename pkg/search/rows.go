package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docsense/aicore/pkg/postgres"
	"github.com/docsense/aicore/pkg/store"
)

// Row is one relational record in normalized form: the columns every table
// kind shares, plus the raw column map.
type Row struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	Confidence *float64
	Data       map[string]any
}

// RowSource is the relational side of the engine: keyword matching and
// hydration of similarity hits, both under the query's hard post-filters.
type RowSource interface {
	// Match returns rows satisfying the query's filters, owner scope and
	// confidence floor, optionally restricted to rows whose search columns
	// contain the query text. Ordered by creation time descending.
	Match(ctx context.Context, spec store.TableSpec, q Query, withText bool, limit int) ([]Row, error)

	// Fetch hydrates similarity hits by key column, applying the same hard
	// post-filters. Hits whose rows fail a filter are dropped.
	Fetch(ctx context.Context, spec store.TableSpec, keyColumn string, keys []string, q Query) ([]Row, error)
}

// filterKeyPattern bounds filter field names to plain column identifiers, so
// caller-supplied filter maps can never smuggle SQL.
var filterKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// likeEscaper escapes the LIKE pattern metacharacters so query text is
// matched as a literal substring. "50%" must not match "50 units".
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// tableRows implements RowSource over the relational store.
type tableRows struct {
	db *postgres.Postgres
}

func NewRowSource(db *postgres.Postgres) RowSource {
	return &tableRows{db: db}
}

func (r *tableRows) Match(ctx context.Context, spec store.TableSpec, q Query, withText bool, limit int) ([]Row, error) {
	tx, err := r.baseQuery(ctx, spec, q)
	if err != nil {
		return nil, err
	}

	if withText && q.Text != "" && len(spec.SearchColumns) > 0 {
		clauses := make([]string, len(spec.SearchColumns))
		args := make([]any, len(spec.SearchColumns))
		for i, col := range spec.SearchColumns {
			clauses[i] = col + " ILIKE ?"
			args[i] = "%" + escapeLike(q.Text) + "%"
		}
		tx = tx.Where(strings.Join(clauses, " OR "), args...)
	}

	var raw []map[string]any
	if err := tx.Order("created_at DESC").Limit(limit).Find(&raw).Error; err != nil {
		return nil, fmt.Errorf("search %s: %w", spec.Name, postgres.TranslateError(err))
	}
	return normalizeRows(raw)
}

func (r *tableRows) Fetch(ctx context.Context, spec store.TableSpec, keyColumn string, keys []string, q Query) ([]Row, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	tx, err := r.baseQuery(ctx, spec, q)
	if err != nil {
		return nil, err
	}

	var raw []map[string]any
	if err := tx.Where(keyColumn+" IN ?", keys).Find(&raw).Error; err != nil {
		return nil, fmt.Errorf("hydrate %s: %w", spec.Name, postgres.TranslateError(err))
	}
	return normalizeRows(raw)
}

// baseQuery applies owner scoping, the confidence floor and structured
// filters. Rows with a NULL confidence never satisfy a confidence floor.
func (r *tableRows) baseQuery(ctx context.Context, spec store.TableSpec, q Query) (*gorm.DB, error) {
	tx := r.db.DB().WithContext(ctx).Table(spec.Name)

	if q.Owner != "" {
		tx = tx.Where("owner_id = ?", q.Owner)
	}

	if q.ConfidenceMin != nil && spec.ConfidenceColumn != "" {
		tx = tx.Where(spec.ConfidenceColumn+" >= ?", *q.ConfidenceMin)
	}

	for key, value := range q.Filters {
		if !filterKeyPattern.MatchString(key) {
			return nil, fmt.Errorf("%w: field %q", ErrInvalidFilter, key)
		}

		switch v := value.(type) {
		case Range:
			if v.Min != nil {
				tx = tx.Where(key+" >= ?", *v.Min)
			}
			if v.Max != nil {
				tx = tx.Where(key+" <= ?", *v.Max)
			}
		case map[string]any:
			rng, err := decodeRange(key, v)
			if err != nil {
				return nil, err
			}
			if rng.Min != nil {
				tx = tx.Where(key+" >= ?", *rng.Min)
			}
			if rng.Max != nil {
				tx = tx.Where(key+" <= ?", *rng.Max)
			}
		default:
			tx = tx.Where(key+" = ?", value)
		}
	}

	return tx, nil
}

// decodeRange interprets a {"min": x, "max": y} filter value. Any other key
// in the map is rejected rather than silently ignored.
func decodeRange(field string, m map[string]any) (Range, error) {
	var rng Range
	for k, v := range m {
		f, ok := v.(float64)
		if !ok {
			return rng, fmt.Errorf("%w: field %q bound %q is not a number", ErrInvalidFilter, field, k)
		}
		switch k {
		case "min":
			rng.Min = &f
		case "max":
			rng.Max = &f
		default:
			return rng, fmt.Errorf("%w: field %q has unknown bound %q", ErrInvalidFilter, field, k)
		}
	}
	return rng, nil
}

func normalizeRows(raw []map[string]any) ([]Row, error) {
	rows := make([]Row, 0, len(raw))
	for _, m := range raw {
		row, err := normalizeRow(m)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// normalizeRow lifts the shared columns out of the raw column map. Driver
// byte slices are converted to strings so payloads stay JSON-friendly.
func normalizeRow(m map[string]any) (Row, error) {
	for k, v := range m {
		if b, ok := v.([]byte); ok {
			m[k] = string(b)
		}
	}

	id, err := uuid.Parse(fmt.Sprint(m["id"]))
	if err != nil {
		return Row{}, fmt.Errorf("row has malformed id %v: %w", m["id"], err)
	}

	row := Row{ID: id, Data: m}

	if t, ok := m["created_at"].(time.Time); ok {
		row.CreatedAt = t
	}
	switch c := m["confidence"].(type) {
	case float64:
		row.Confidence = &c
	case *float64:
		row.Confidence = c
	}

	return row, nil
}
