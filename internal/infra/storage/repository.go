package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/soqlguard/internal/core/domain"
)

var (
	// ErrExecutionNotFound is returned when an execution ID is unknown
	ErrExecutionNotFound = errors.New("execution not found")
)

// Execution is the stored summary of one adaptive execution.
type Execution struct {
	ID                   string             `db:"id" json:"id"`
	StartedAt            time.Time          `db:"started_at" json:"started_at"`
	DurationMs           int64              `db:"duration_ms" json:"duration_ms"`
	Endpoint             string             `db:"endpoint" json:"endpoint"`
	Kind                 domain.OutcomeKind `db:"kind" json:"kind"`
	InitialQuery         string             `db:"initial_query" json:"initial_query"`
	FinalQuery           string             `db:"final_query" json:"final_query"`
	Attempts             int                `db:"attempts" json:"attempts"`
	RemovedFields        []string           `db:"-" json:"removed_fields,omitempty"`
	ClassificationKind   string             `db:"classification_kind" json:"classification_kind,omitempty"`
	ClassificationDetail string             `db:"classification_detail" json:"classification_detail,omitempty"`
	RecordCount          int                `db:"record_count" json:"record_count"`
	Error                string             `db:"error" json:"error,omitempty"`
}

// FromResult summarises a terminal result.
func FromResult(res *domain.ExecutionResult) Execution {
	e := Execution{
		ID:            res.ID,
		StartedAt:     res.StartedAt.UTC(),
		DurationMs:    res.Duration.Milliseconds(),
		Endpoint:      res.Endpoint,
		Kind:          res.Kind,
		InitialQuery:  res.InitialQueryText,
		FinalQuery:    res.FinalQueryText,
		Attempts:      res.AttemptsUsed,
		RemovedFields: append([]string(nil), res.RemovedFields...),
		RecordCount:   res.RecordCount,
		Error:         res.Error,
	}
	if c := res.Classification; c != nil {
		e.ClassificationKind = string(c.Kind)
		switch c.Kind {
		case domain.ClassObjectError:
			e.ClassificationDetail = c.ObjectName
		case domain.ClassFieldError:
			e.ClassificationDetail = c.FieldName
		case domain.ClassQueryStructureError:
			e.ClassificationDetail = string(c.Detail)
		case domain.ClassUnclassified:
			e.ClassificationDetail = c.ErrorCode
		}
	}
	return e
}

// HistoryRepository handles execution history storage
type HistoryRepository interface {
	// Save stores an execution; saving the same ID twice keeps the first
	Save(ctx context.Context, e Execution) error

	// Get retrieves an execution by ID
	Get(ctx context.Context, id string) (*Execution, error)

	// Recent returns up to limit executions, newest first
	Recent(ctx context.Context, limit int) ([]Execution, error)

	// Count returns the number of stored executions
	Count(ctx context.Context) (int, error)

	// DeleteOlderThan removes executions started before t
	DeleteOlderThan(ctx context.Context, t time.Time) (int64, error)
}

// Recorder adapts a HistoryRepository to the executor's result hook.
type Recorder struct {
	Repo HistoryRepository
}

// Record saves the summary of res.
func (r Recorder) Record(ctx context.Context, res *domain.ExecutionResult) error {
	return r.Repo.Save(ctx, FromResult(res))
}
