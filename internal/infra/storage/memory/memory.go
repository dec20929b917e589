package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/vietddude/soqlguard/internal/infra/storage"
)

// HistoryRepo keeps executions in process memory.
type HistoryRepo struct {
	mu    sync.RWMutex
	byID  map[string]int
	items []storage.Execution
}

func NewHistoryRepo() *HistoryRepo {
	return &HistoryRepo{byID: make(map[string]int)}
}

func (r *HistoryRepo) Save(ctx context.Context, e storage.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[e.ID]; ok {
		return nil
	}
	e.RemovedFields = slices.Clone(e.RemovedFields)
	r.byID[e.ID] = len(r.items)
	r.items = append(r.items, e)
	return nil
}

func (r *HistoryRepo) Get(ctx context.Context, id string) (*storage.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[id]
	if !ok {
		return nil, storage.ErrExecutionNotFound
	}
	e := r.items[i]
	e.RemovedFields = slices.Clone(e.RemovedFields)
	return &e, nil
}

func (r *HistoryRepo) Recent(ctx context.Context, limit int) ([]storage.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 || limit > len(r.items) {
		limit = len(r.items)
	}
	out := make([]storage.Execution, 0, limit)
	for i := len(r.items) - 1; i >= 0 && len(out) < limit; i-- {
		e := r.items[i]
		e.RemovedFields = slices.Clone(e.RemovedFields)
		out = append(out, e)
	}
	return out, nil
}

func (r *HistoryRepo) DeleteOlderThan(ctx context.Context, t time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.items[:0]
	for _, e := range r.items {
		if e.StartedAt.Before(t) {
			delete(r.byID, e.ID)
			continue
		}
		r.byID[e.ID] = len(kept)
		kept = append(kept, e)
	}
	removed := int64(len(r.items) - len(kept))
	clear(r.items[len(kept):])
	r.items = kept
	return removed, nil
}

func (r *HistoryRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items), nil
}
