package executor

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/soqlguard/internal/core/domain"
)

// DefaultConcurrency is used when RunBatch is given a non-positive limit.
const DefaultConcurrency = 4

// BatchResult pairs a query with its execution. Err is set only when the
// query could not be sent at all.
type BatchResult struct {
	Query  domain.Query
	Result *domain.ExecutionResult
	Err    error
}

// RunBatch executes independent queries with at most concurrency in flight.
// Results are returned in input order. A failing query does not stop the
// others.
func (e *Executor) RunBatch(ctx context.Context, queries []domain.Query, concurrency int) []BatchResult {
	return e.RunBatchOn(ctx, e.cfg.Endpoint, queries, concurrency)
}

// RunBatchOn is RunBatch against a specific endpoint.
func (e *Executor) RunBatchOn(ctx context.Context, endpoint domain.Endpoint, queries []domain.Query, concurrency int) []BatchResult {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	results := make([]BatchResult, len(queries))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, q := range queries {
		g.Go(func() error {
			res, err := e.ExecuteOn(ctx, endpoint, q)
			results[i] = BatchResult{Query: q, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	e.log.Debug("Batch finished", "queries", len(queries), "concurrency", concurrency)
	return results
}
