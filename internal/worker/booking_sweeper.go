package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/telehealth-api/internal/repository"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
)

// BookingSweeper reclaims appointments whose payment never arrived. A
// reservation holds its slot for the grace period; after that the sweeper
// deletes the appointment and its unpaid payment and frees the slot. The
// reclaim is re-checked against the payment status inside the transaction,
// so a payment landing mid-sweep always wins.
type BookingSweeper struct {
	repo        repository.AppointmentRepository
	interval    time.Duration
	gracePeriod time.Duration
	batchSize   int
	now         func() time.Time
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

func NewBookingSweeper(
	repo repository.AppointmentRepository,
	interval, gracePeriod time.Duration,
	batchSize int,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *BookingSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if gracePeriod <= 0 {
		gracePeriod = 30 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &BookingSweeper{
		repo:        repo,
		interval:    interval,
		gracePeriod: gracePeriod,
		batchSize:   batchSize,
		now:         time.Now,
		logger:      logger,
		metrics:     metrics,
	}
}

func (w *BookingSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("starting booking sweeper",
		"interval", w.interval.String(),
		"grace_period", w.gracePeriod.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("shutting down booking sweeper")
			return
		case <-ticker.C:
			if err := w.sweepOnce(ctx, w.now()); err != nil {
				w.metrics.SweepErrors.Inc()
				w.logger.Error(err, "sweep failed")
			}
		}
	}
}

func (w *BookingSweeper) sweepOnce(ctx context.Context, now time.Time) error {
	w.metrics.SweepRuns.Inc()

	cutoff := now.Add(-w.gracePeriod)
	stale, err := w.repo.ListUnpaidBefore(ctx, cutoff, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list stale bookings: %w", err)
	}

	var reclaimed int
	for _, appt := range stale {
		ok, err := w.repo.ReclaimUnpaid(ctx, appt.ID)
		if err != nil {
			w.logger.Error(err, "failed to reclaim booking", "appointment_id", appt.ID.String())
			continue
		}
		if !ok {
			// Paid between the listing and the reclaim.
			continue
		}
		reclaimed++
		w.metrics.BookingsReclaimed.Inc()
	}

	if reclaimed > 0 {
		w.logger.Info("reclaimed stale bookings", "count", reclaimed)
	}
	return nil
}
