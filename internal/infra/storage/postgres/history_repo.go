package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/vietddude/soqlguard/internal/core/domain"
	"github.com/vietddude/soqlguard/internal/infra/storage"
)

// HistoryRepo implements storage.HistoryRepository using PostgreSQL.
type HistoryRepo struct {
	db *DB
}

// NewHistoryRepo creates a new PostgreSQL history repository.
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

type executionRow struct {
	ID                   string         `db:"id"`
	StartedAt            time.Time      `db:"started_at"`
	DurationMs           int64          `db:"duration_ms"`
	Endpoint             string         `db:"endpoint"`
	Kind                 string         `db:"kind"`
	InitialQuery         string         `db:"initial_query"`
	FinalQuery           string         `db:"final_query"`
	Attempts             int            `db:"attempts"`
	RemovedFields        pq.StringArray `db:"removed_fields"`
	ClassificationKind   string         `db:"classification_kind"`
	ClassificationDetail string         `db:"classification_detail"`
	RecordCount          int            `db:"record_count"`
	Error                string         `db:"error"`
}

func (r executionRow) toExecution() storage.Execution {
	return storage.Execution{
		ID:                   r.ID,
		StartedAt:            r.StartedAt,
		DurationMs:           r.DurationMs,
		Endpoint:             r.Endpoint,
		Kind:                 domain.OutcomeKind(r.Kind),
		InitialQuery:         r.InitialQuery,
		FinalQuery:           r.FinalQuery,
		Attempts:             r.Attempts,
		RemovedFields:        []string(r.RemovedFields),
		ClassificationKind:   r.ClassificationKind,
		ClassificationDetail: r.ClassificationDetail,
		RecordCount:          r.RecordCount,
		Error:                r.Error,
	}
}

const selectExecutions = `
	SELECT id, started_at, duration_ms, endpoint, kind, initial_query, final_query,
	       attempts, removed_fields, classification_kind, classification_detail,
	       record_count, error
	FROM executions
`

// Save inserts an execution.
func (r *HistoryRepo) Save(ctx context.Context, e storage.Execution) error {
	query := `
		INSERT INTO executions (
			id, started_at, duration_ms, endpoint, kind, initial_query, final_query,
			attempts, removed_fields, classification_kind, classification_detail,
			record_count, error
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`
	removed := e.RemovedFields
	if removed == nil {
		removed = []string{}
	}
	_, err := r.db.ExecContext(
		ctx,
		query,
		e.ID,
		e.StartedAt,
		e.DurationMs,
		e.Endpoint,
		string(e.Kind),
		e.InitialQuery,
		e.FinalQuery,
		e.Attempts,
		pq.Array(removed),
		e.ClassificationKind,
		e.ClassificationDetail,
		e.RecordCount,
		e.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}
	return nil
}

// Get returns an execution by ID.
func (r *HistoryRepo) Get(ctx context.Context, id string) (*storage.Execution, error) {
	var row executionRow
	err := r.db.GetContext(ctx, &row, selectExecutions+` WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrExecutionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get execution: %w", err)
	}
	e := row.toExecution()
	return &e, nil
}

// Recent returns executions newest first.
func (r *HistoryRepo) Recent(ctx context.Context, limit int) ([]storage.Execution, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []executionRow
	err := r.db.SelectContext(ctx, &rows, selectExecutions+` ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	out := make([]storage.Execution, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toExecution())
	}
	return out, nil
}

// DeleteOlderThan removes executions that started before t.
func (r *HistoryRepo) DeleteOlderThan(ctx context.Context, t time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM executions WHERE started_at < $1`, t.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune executions: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of stored executions.
func (r *HistoryRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM executions`); err != nil {
		return 0, fmt.Errorf("failed to count executions: %w", err)
	}
	return n, nil
}
