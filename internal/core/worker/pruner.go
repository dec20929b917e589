package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/soqlguard/internal/infra/storage"
)

// Pruner deletes old executions based on the retention period.
type Pruner struct {
	retention time.Duration
	repo      storage.HistoryRepository
	log       *slog.Logger
	now       func() time.Time
}

// NewPruner creates a new Pruner worker.
func NewPruner(retention time.Duration, repo storage.HistoryRepository, log *slog.Logger) *Pruner {
	if log == nil {
		log = slog.Default()
	}
	return &Pruner{
		retention: retention,
		repo:      repo,
		log:       log.With("component", "pruner"),
		now:       time.Now,
	}
}

// Interval is how often the pruner runs: a tenth of the retention period,
// clamped to [1m, 1h].
func (p *Pruner) Interval() time.Duration {
	interval := min(p.retention/10, 1*time.Hour)
	return max(interval, 1*time.Minute)
}

// Start runs the pruner loop until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	ticker := time.NewTicker(p.Interval())
	defer ticker.Stop()

	p.Prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Prune(ctx)
		}
	}
}

// Prune removes executions older than the retention period once.
func (p *Pruner) Prune(ctx context.Context) {
	threshold := p.now().Add(-p.retention)
	n, err := p.repo.DeleteOlderThan(ctx, threshold)
	if err != nil {
		p.log.Error("Failed to prune executions", "error", err)
		return
	}
	if n > 0 {
		p.log.Info("Pruned executions", "count", n, "before", threshold.Format(time.RFC3339))
	}
}
