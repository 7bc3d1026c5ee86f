package query

import (
	"context"
	"fmt"

	"github.com/ssargent/utgallery/pkg/codec"
	"github.com/ssargent/utgallery/pkg/index"
)

// Source is the gallery surface the engine needs. *store.Gallery satisfies it.
type Source interface {
	Indexed(field index.Field) bool
	Lookup(field index.Field, from, to int64) ([]int64, error)
	ReadAt(offset int64) (*codec.Record, error)
	Scan(ctx context.Context, visit codec.Visitor, parallel bool) error
}

// Plan names the strategy used for a query
type Plan string

const (
	PlanIndex Plan = "index"
	PlanScan  Plan = "scan"
)

// SimpleQueryEngine answers field queries from secondary indexes when the
// field has one, and from a filtered sequential scan otherwise. Results are
// always in file order.
type SimpleQueryEngine struct {
	source    Source
	extractor FieldExtractor
}

// NewSimpleQueryEngine creates a new query engine
func NewSimpleQueryEngine(source Source) *SimpleQueryEngine {
	return &SimpleQueryEngine{
		source:    source,
		extractor: HeaderExtractor{},
	}
}

// Explain returns the plan ExecuteQuery would use
func (qe *SimpleQueryEngine) Explain(query FieldQuery) Plan {
	if _, _, ok := query.Range(); ok && qe.source.Indexed(index.Field(query.Field)) {
		return PlanIndex
	}
	return PlanScan
}

// ExecuteQuery executes a single field query
func (qe *SimpleQueryEngine) ExecuteQuery(ctx context.Context, query FieldQuery) (QueryIterator, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	if qe.Explain(query) == PlanIndex {
		from, to, _ := query.Range()
		return qe.executeIndexed(ctx, query.Field, from, to)
	}
	return qe.executeScan(ctx, query.Field, query.Matches)
}

// ExecuteRangeQuery executes a range query between two field conditions
func (qe *SimpleQueryEngine) ExecuteRangeQuery(ctx context.Context, startQuery, endQuery FieldQuery) (QueryIterator, error) {
	if err := startQuery.Validate(); err != nil {
		return nil, fmt.Errorf("invalid start query: %w", err)
	}
	if err := endQuery.Validate(); err != nil {
		return nil, fmt.Errorf("invalid end query: %w", err)
	}

	// Ensure both queries are for the same field
	if startQuery.Field != endQuery.Field {
		return nil, fmt.Errorf("range query fields must match: %s != %s", startQuery.Field, endQuery.Field)
	}

	lo1, hi1, ok1 := startQuery.Range()
	lo2, hi2, ok2 := endQuery.Range()
	if ok1 && ok2 && qe.source.Indexed(index.Field(startQuery.Field)) {
		return qe.executeIndexed(ctx, startQuery.Field, max(lo1, lo2), min(hi1, hi2))
	}
	return qe.executeScan(ctx, startQuery.Field, func(v int64) bool {
		return startQuery.Matches(v) && endQuery.Matches(v)
	})
}

// executeIndexed fetches the records the index lists for [from, to]
func (qe *SimpleQueryEngine) executeIndexed(ctx context.Context, field string, from, to int64) (QueryIterator, error) {
	if from > to {
		return &simpleIterator{}, nil
	}
	offsets, err := qe.source.Lookup(index.Field(field), from, to)
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}

	results := make([]QueryResult, 0, len(offsets))
	for _, offset := range offsets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := qe.source.ReadAt(offset)
		if err != nil {
			return nil, fmt.Errorf("read template at %d: %w", offset, err)
		}
		results = append(results, QueryResult{Offset: offset, Record: record})
	}

	return &simpleIterator{results: results}, nil
}

// executeScan walks the gallery in order and keeps records whose field
// satisfies match
func (qe *SimpleQueryEngine) executeScan(ctx context.Context, field string, match func(int64) bool) (QueryIterator, error) {
	var results []QueryResult
	var offset int64
	err := qe.source.Scan(ctx, func(r *codec.Record) error {
		start := offset
		offset += r.Size()

		v, err := qe.extractor.Extract(r.Header(), field)
		if err != nil {
			return err
		}
		if match(v) {
			results = append(results, QueryResult{Offset: start, Record: r.Clone()})
		}
		return nil
	}, false)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	return &simpleIterator{results: results}, nil
}

// simpleIterator iterates over materialized results
type simpleIterator struct {
	results []QueryResult
	index   int
}

func (it *simpleIterator) Next() bool {
	if it.index < len(it.results) {
		it.index++
		return true
	}
	return false
}

func (it *simpleIterator) Result() QueryResult {
	if it.index > 0 && it.index <= len(it.results) {
		return it.results[it.index-1]
	}
	return QueryResult{}
}

func (it *simpleIterator) Len() int {
	return len(it.results)
}

func (it *simpleIterator) Close() error {
	it.results = nil
	return nil
}

// Collect drains it into a slice and closes it
func Collect(it QueryIterator) ([]QueryResult, error) {
	out := make([]QueryResult, 0, it.Len())
	for it.Next() {
		out = append(out, it.Result())
	}
	return out, it.Close()
}
