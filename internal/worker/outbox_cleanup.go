package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/zencounsel/counsel-api/pkg/logger"
	"github.com/zencounsel/counsel-api/pkg/metrics"
)

// OutboxPurger deletes relayed events older than a cutoff.
type OutboxPurger interface {
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}

type OutboxCleanupWorker struct {
	repo            OutboxPurger
	retention       time.Duration
	cleanupInterval time.Duration
	logger          *logger.Logger
	metrics         *metrics.Metrics
	now             func() time.Time
}

func NewOutboxCleanupWorker(repo OutboxPurger, retention, cleanupInterval time.Duration, logger *logger.Logger, metrics *metrics.Metrics) *OutboxCleanupWorker {
	return &OutboxCleanupWorker{
		repo:            repo,
		retention:       retention,
		cleanupInterval: cleanupInterval,
		logger:          logger,
		metrics:         metrics,
		now:             time.Now,
	}
}

func (w *OutboxCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Cleanup(ctx); err != nil {
				// Log error but continue
				w.logger.Error(err, "Error cleaning up outbox events")
			}
		}
	}
}

func (w *OutboxCleanupWorker) Cleanup(ctx context.Context) (int64, error) {
	cutoff := w.now().Add(-w.retention)

	rows, err := w.repo.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup outbox events: %w", err)
	}

	w.metrics.OutboxEventsPurged.Add(float64(rows))
	w.logger.Info("Cleaned up processed outbox events", "count", rows, "cutoff", cutoff)
	return rows, nil
}
