package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vietddude/soqlguard/internal/core/domain"
	"github.com/vietddude/soqlguard/internal/infra/storage"
)

func TestHistoryRepo(t *testing.T) {
	ctx := context.Background()
	r := NewHistoryRepo()

	for i := range 5 {
		e := storage.Execution{ID: fmt.Sprintf("id-%d", i), Attempts: i + 1, RemovedFields: []string{"A"}}
		if err := r.Save(ctx, e); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
	}
	if err := r.Save(ctx, storage.Execution{ID: "id-0", Attempts: 99}); err != nil {
		t.Fatalf("Save() duplicate error: %v", err)
	}

	if n, _ := r.Count(ctx); n != 5 {
		t.Errorf("Count() = %d, want 5", n)
	}

	got, err := r.Get(ctx, "id-0")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Attempts != 1 {
		t.Errorf("Get(id-0).Attempts = %d, want 1 (first save wins)", got.Attempts)
	}
	got.RemovedFields[0] = "changed"
	again, _ := r.Get(ctx, "id-0")
	if again.RemovedFields[0] != "A" {
		t.Error("Get() returned shared slice")
	}

	if _, err := r.Get(ctx, "missing"); !errors.Is(err, storage.ErrExecutionNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrExecutionNotFound", err)
	}

	recent, _ := r.Recent(ctx, 2)
	if len(recent) != 2 || recent[0].ID != "id-4" || recent[1].ID != "id-3" {
		t.Errorf("Recent(2) = %v, want id-4, id-3", recent)
	}
	if all, _ := r.Recent(ctx, 0); len(all) != 5 {
		t.Errorf("Recent(0) returned %d, want 5", len(all))
	}
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	r := NewHistoryRepo()
	rec := storage.Recorder{Repo: r}

	c := domain.FieldError("B")
	res := &domain.ExecutionResult{
		ID:               "exec-1",
		Endpoint:         "data",
		Kind:             domain.OutcomeFailed,
		InitialQueryText: "SELECT A, B FROM Obj",
		FinalQueryText:   "SELECT A FROM Obj",
		AttemptsUsed:     2,
		RemovedFields:    []string{"B"},
		Classification:   &c,
		StartedAt:        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Duration:         1500 * time.Millisecond,
	}
	if err := rec.Record(ctx, res); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	got, err := r.Get(ctx, "exec-1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.ClassificationKind != "field_error" || got.ClassificationDetail != "B" {
		t.Errorf("classification = %q/%q, want field_error/B", got.ClassificationKind, got.ClassificationDetail)
	}
	if got.DurationMs != 1500 || got.Attempts != 2 || got.FinalQuery != "SELECT A FROM Obj" {
		t.Errorf("stored = %+v", got)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	r := NewHistoryRepo()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range 4 {
		e := storage.Execution{ID: fmt.Sprintf("id-%d", i), StartedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := r.Save(ctx, e); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
	}

	n, err := r.DeleteOlderThan(ctx, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan() error: %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteOlderThan() = %d, want 2", n)
	}
	if _, err := r.Get(ctx, "id-1"); !errors.Is(err, storage.ErrExecutionNotFound) {
		t.Errorf("Get(id-1) error = %v, want not found", err)
	}
	got, err := r.Get(ctx, "id-3")
	if err != nil || got.ID != "id-3" {
		t.Errorf("Get(id-3) = %v, %v", got, err)
	}
	recent, _ := r.Recent(ctx, 0)
	if len(recent) != 2 || recent[0].ID != "id-3" {
		t.Errorf("Recent() after prune = %v", recent)
	}
}
