package worker

import (
	"context"
	"testing"
	"time"

	"github.com/vietddude/soqlguard/internal/infra/storage"
	"github.com/vietddude/soqlguard/internal/infra/storage/memory"
)

func TestPrunerInterval(t *testing.T) {
	tests := []struct {
		retention time.Duration
		want      time.Duration
	}{
		{30 * time.Second, time.Minute},
		{time.Hour, 6 * time.Minute},
		{72 * time.Hour, time.Hour},
	}
	for _, tt := range tests {
		if got := NewPruner(tt.retention, nil, nil).Interval(); got != tt.want {
			t.Errorf("Interval(%v) = %v, want %v", tt.retention, got, tt.want)
		}
	}
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	repo := memory.NewHistoryRepo()
	_ = repo.Save(ctx, storage.Execution{ID: "old", StartedAt: now.Add(-48 * time.Hour)})
	_ = repo.Save(ctx, storage.Execution{ID: "new", StartedAt: now.Add(-time.Hour)})

	p := NewPruner(24*time.Hour, repo, nil)
	p.now = func() time.Time { return now }
	p.Prune(ctx)

	if n, _ := repo.Count(ctx); n != 1 {
		t.Fatalf("Count() = %d, want 1", n)
	}
	if _, err := repo.Get(ctx, "new"); err != nil {
		t.Errorf("Get(new) error: %v", err)
	}
}

func TestStartDisabled(t *testing.T) {
	done := make(chan struct{})
	go func() {
		NewPruner(0, nil, nil).Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start() with zero retention did not return")
	}
}
