package vectordb

import (
	"time"

	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// FilterCondition is the interface for all filter conditions
type FilterCondition interface {
	ToQdrantCondition() []*qdrant.Condition
}

// MatchCondition matches a payload field against an exact value.
type MatchCondition[T comparable] struct {
	Key   string
	Value T
}

func (c MatchCondition[T]) ToQdrantCondition() []*qdrant.Condition {
	switch v := any(c.Value).(type) {
	case string:
		return []*qdrant.Condition{qdrant.NewMatch(c.Key, v)}
	case bool:
		return []*qdrant.Condition{qdrant.NewMatchBool(c.Key, v)}
	case int64:
		return []*qdrant.Condition{qdrant.NewMatchInt(c.Key, v)}
	default:
		// Unsupported type
		return nil
	}
}

type TextCondition = MatchCondition[string]
type BoolCondition = MatchCondition[bool]
type IntCondition = MatchCondition[int64]

// NumericRange represents a numeric range filter over a payload field.
type NumericRange struct {
	Gt  *float64
	Gte *float64
	Lt  *float64
	Lte *float64
}

// NumericRangeCondition filters a numeric payload field by range, e.g.
// confidence >= 0.8.
type NumericRangeCondition struct {
	Key   string
	Value NumericRange
}

func (c NumericRangeCondition) ToQdrantCondition() []*qdrant.Condition {
	r := &qdrant.Range{
		Gt:  c.Value.Gt,
		Gte: c.Value.Gte,
		Lt:  c.Value.Lt,
		Lte: c.Value.Lte,
	}
	if r.Gt == nil && r.Gte == nil && r.Lt == nil && r.Lte == nil {
		return nil
	}
	return []*qdrant.Condition{qdrant.NewRange(c.Key, r)}
}

// TimeRange represents a time-based filter condition
type TimeRange struct {
	Gt  *time.Time
	Gte *time.Time
	Lt  *time.Time
	Lte *time.Time
}

// TimeRangeCondition represents a time range filter condition
type TimeRangeCondition struct {
	Key   string
	Value TimeRange
}

func (c TimeRangeCondition) ToQdrantCondition() []*qdrant.Condition {
	return buildDateTimeRangeConditions(c.Key, c.Value)
}

// ConditionSet holds conditions for a single clause
type ConditionSet struct {
	Conditions []FilterCondition
}

// FilterSet supports Must (AND), Should (OR), and MustNot (NOT) clauses.
// Use with SearchRequest.Filters to filter search results.
//
// Example:
//
//	filters := &FilterSet{
//	    Must: &ConditionSet{
//	        Conditions: []FilterCondition{
//	            TextCondition{Key: "owner_id", Value: "owner-7"},
//	        },
//	    },
//	}
type FilterSet struct {
	Must    *ConditionSet // AND - all conditions must match
	Should  *ConditionSet // OR - at least one condition must match
	MustNot *ConditionSet // NOT - none of the conditions should match
}

// buildFilter constructs a Qdrant filter from FilterSet
func buildFilter(filters *FilterSet) *qdrant.Filter {
	if filters == nil {
		return nil
	}

	filter := &qdrant.Filter{}

	if filters.Must != nil {
		filter.Must = buildConditions(filters.Must)
	}
	if filters.Should != nil {
		filter.Should = buildConditions(filters.Should)
	}
	if filters.MustNot != nil {
		filter.MustNot = buildConditions(filters.MustNot)
	}

	// Return nil if no conditions were added
	if len(filter.Must) == 0 && len(filter.Should) == 0 && len(filter.MustNot) == 0 {
		return nil
	}

	return filter
}

// buildConditions converts a ConditionSet to Qdrant conditions
func buildConditions(cs *ConditionSet) []*qdrant.Condition {
	if cs == nil {
		return nil
	}

	var conditions []*qdrant.Condition
	for _, c := range cs.Conditions {
		conditions = append(conditions, c.ToQdrantCondition()...)
	}
	return conditions
}

// buildDateTimeRangeConditions creates datetime range conditions
func buildDateTimeRangeConditions(key string, tr TimeRange) []*qdrant.Condition {
	dateRange := &qdrant.DatetimeRange{
		Gt:  toTimestamp(tr.Gt),
		Gte: toTimestamp(tr.Gte),
		Lt:  toTimestamp(tr.Lt),
		Lte: toTimestamp(tr.Lte),
	}

	if dateRange.Gt == nil && dateRange.Gte == nil && dateRange.Lt == nil && dateRange.Lte == nil {
		return nil
	}

	return []*qdrant.Condition{qdrant.NewDatetimeRange(key, dateRange)}
}

// toTimestamp converts a *time.Time to *timestamppb.Timestamp (nil-safe)
func toTimestamp(t *time.Time) *timestamppb.Timestamp {
	if t == nil {
		return nil
	}
	return timestamppb.New(*t)
}
