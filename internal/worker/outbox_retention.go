package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/telehealth-api/internal/repository"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
)

// OutboxRetention deletes processed outbox rows older than the retention
// window. Published events are only kept long enough to debug delivery;
// without this pass the table grows forever.
type OutboxRetention struct {
	repo      repository.OutboxRepository
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	logger    *logger.Logger
}

func NewOutboxRetention(
	repo repository.OutboxRepository,
	interval, retention time.Duration,
	logger *logger.Logger,
) *OutboxRetention {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &OutboxRetention{
		repo:      repo,
		interval:  interval,
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

func (w *OutboxRetention) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("starting outbox retention",
		"interval", w.interval.String(),
		"retention", w.retention.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("shutting down outbox retention")
			return
		case <-ticker.C:
			if err := w.cleanOnce(ctx, w.now()); err != nil {
				w.logger.Error(err, "outbox retention pass failed")
			}
		}
	}
}

func (w *OutboxRetention) cleanOnce(ctx context.Context, now time.Time) error {
	deleted, err := w.repo.DeleteProcessedBefore(ctx, now.Add(-w.retention))
	if err != nil {
		return fmt.Errorf("failed to delete processed outbox events: %w", err)
	}
	if deleted > 0 {
		w.logger.Info("deleted processed outbox events", "count", deleted)
	}
	return nil
}
