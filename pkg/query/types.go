package query

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/ssargent/utgallery/pkg/codec"
)

// Queryable header fields
const (
	FieldLabel       = "label"
	FieldAlgorithmID = "algorithm_id"
	FieldX           = "x"
	FieldY           = "y"
	FieldWidth       = "width"
	FieldHeight      = "height"
	FieldURLSize     = "url_size"
	FieldFVSize      = "fv_size"
)

// FieldExtractor defines how to extract field values from a record header
type FieldExtractor interface {
	Extract(h codec.Header, field string) (int64, error)
}

// HeaderExtractor reads the fixed-width header fields
type HeaderExtractor struct{}

// Extract implements FieldExtractor for template headers
func (HeaderExtractor) Extract(h codec.Header, field string) (int64, error) {
	switch field {
	case FieldLabel:
		return int64(h.Label), nil
	case FieldAlgorithmID:
		return int64(h.AlgorithmID), nil
	case FieldX:
		return int64(h.X), nil
	case FieldY:
		return int64(h.Y), nil
	case FieldWidth:
		return int64(h.Width), nil
	case FieldHeight:
		return int64(h.Height), nil
	case FieldURLSize:
		return int64(h.URLSize), nil
	case FieldFVSize:
		return int64(h.FVSize), nil
	default:
		return 0, fmt.Errorf("unknown field %q", field)
	}
}

// fieldBounds returns the value domain of field.
func fieldBounds(field string) (lo, hi int64) {
	if field == FieldAlgorithmID {
		return math.MinInt32, math.MaxInt32
	}
	return 0, math.MaxUint32
}

// FieldQuery represents a single field-based query condition
type FieldQuery struct {
	Field    string // Header field name (e.g. "label", "algorithm_id")
	Operator string // Comparison operator: "=", "!=", ">", "<", ">=", "<="
	Value    int64  // Value to compare against
}

// ParseFieldQuery builds a query from its textual parts
func ParseFieldQuery(field, operator, value string) (FieldQuery, error) {
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return FieldQuery{}, fmt.Errorf("invalid value %q: %w", value, err)
	}
	q := FieldQuery{Field: field, Operator: operator, Value: v}
	return q, q.Validate()
}

// Validate checks if the query is properly formed
func (q *FieldQuery) Validate() error {
	if q.Field == "" {
		return fmt.Errorf("field name cannot be empty")
	}
	if _, err := (HeaderExtractor{}).Extract(codec.Header{}, q.Field); err != nil {
		return err
	}
	if q.Operator == "" {
		return fmt.Errorf("operator cannot be empty")
	}
	validOps := map[string]bool{
		"=": true, "!=": true, ">": true, "<": true, ">=": true, "<=": true,
	}
	if !validOps[q.Operator] {
		return fmt.Errorf("invalid operator: %s", q.Operator)
	}
	return nil
}

// Matches reports whether v satisfies the condition
func (q *FieldQuery) Matches(v int64) bool {
	switch q.Operator {
	case "=":
		return v == q.Value
	case "!=":
		return v != q.Value
	case ">":
		return v > q.Value
	case ">=":
		return v >= q.Value
	case "<":
		return v < q.Value
	case "<=":
		return v <= q.Value
	}
	return false
}

// Range returns the closed interval of values the query selects. ok is
// false for "!=", which is not a single interval.
func (q *FieldQuery) Range() (from, to int64, ok bool) {
	lo, hi := fieldBounds(q.Field)
	switch q.Operator {
	case "=":
		return q.Value, q.Value, true
	case ">":
		return q.Value + 1, hi, true
	case ">=":
		return q.Value, hi, true
	case "<":
		return lo, q.Value - 1, true
	case "<=":
		return lo, q.Value, true
	}
	return 0, 0, false
}

func (q FieldQuery) String() string {
	return fmt.Sprintf("%s %s %d", q.Field, q.Operator, q.Value)
}

// QueryResult represents a single query result
type QueryResult struct {
	Offset int64         // Offset of the record in the gallery file
	Record *codec.Record // Owned copy of the record
}

// QueryIterator provides streaming access to query results
type QueryIterator interface {
	Next() bool
	Result() QueryResult
	Len() int
	Close() error
}

// QueryEngine handles query execution
type QueryEngine interface {
	ExecuteQuery(ctx context.Context, query FieldQuery) (QueryIterator, error)
	ExecuteRangeQuery(ctx context.Context, startQuery, endQuery FieldQuery) (QueryIterator, error)
}
