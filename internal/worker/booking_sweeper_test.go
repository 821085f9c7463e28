package worker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("worker_test")

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
}

type staleBooking struct {
	appt      *model.Appointment
	createdAt time.Time
	paid      bool
}

type fakeApptRepo struct {
	bookings   map[uuid.UUID]*staleBooking
	reclaimed  []uuid.UUID
	reclaimErr error
}

func newFakeApptRepo() *fakeApptRepo {
	return &fakeApptRepo{bookings: make(map[uuid.UUID]*staleBooking)}
}

func (f *fakeApptRepo) add(createdAt time.Time, paid bool) *model.Appointment {
	appt := &model.Appointment{
		Status:        model.AppointmentStatusScheduled,
		PaymentStatus: model.PaymentStatusUnpaid,
	}
	appt.ID = uuid.New()
	appt.CreatedAt = createdAt
	if paid {
		appt.PaymentStatus = model.PaymentStatusPaid
	}
	f.bookings[appt.ID] = &staleBooking{appt: appt, createdAt: createdAt, paid: paid}
	return appt
}

func (f *fakeApptRepo) Reserve(_ context.Context, _ *model.Appointment, _ *model.Payment) error {
	return nil
}

func (f *fakeApptRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	if b, ok := f.bookings[id]; ok {
		return b.appt, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeApptRepo) List(_ context.Context, _ *model.AppointmentFilters) ([]*model.Appointment, error) {
	return nil, nil
}

func (f *fakeApptRepo) UpdateStatus(_ context.Context, _ uuid.UUID, _ model.AppointmentStatus) error {
	return nil
}

func (f *fakeApptRepo) ListUnpaidBefore(_ context.Context, cutoff time.Time, limit int) ([]*model.Appointment, error) {
	var stale []*model.Appointment
	for _, b := range f.bookings {
		if !b.paid && b.createdAt.Before(cutoff) {
			stale = append(stale, b.appt)
		}
		if len(stale) >= limit {
			break
		}
	}
	return stale, nil
}

func (f *fakeApptRepo) ReclaimUnpaid(_ context.Context, id uuid.UUID) (bool, error) {
	if f.reclaimErr != nil {
		return false, f.reclaimErr
	}
	b, ok := f.bookings[id]
	if !ok || b.paid {
		return false, nil
	}
	delete(f.bookings, id)
	f.reclaimed = append(f.reclaimed, id)
	return true, nil
}

func newSweeper(repo *fakeApptRepo) *BookingSweeper {
	return NewBookingSweeper(repo, time.Minute, 30*time.Minute, 100, testLogger(), testMetrics)
}

func TestSweepReclaimsExpiredUnpaidBookings(t *testing.T) {
	repo := newFakeApptRepo()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	expired := repo.add(now.Add(-45*time.Minute), false)
	fresh := repo.add(now.Add(-10*time.Minute), false)
	paid := repo.add(now.Add(-45*time.Minute), true)

	require.NoError(t, newSweeper(repo).sweepOnce(context.Background(), now))

	assert.Equal(t, []uuid.UUID{expired.ID}, repo.reclaimed)
	assert.Contains(t, repo.bookings, fresh.ID)
	assert.Contains(t, repo.bookings, paid.ID)
}

func TestSweepSkipsBookingPaidMidSweep(t *testing.T) {
	repo := newFakeApptRepo()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	appt := repo.add(now.Add(-45*time.Minute), false)
	// Payment lands after the listing but before the reclaim.
	repo.bookings[appt.ID].paid = true

	require.NoError(t, newSweeper(repo).sweepOnce(context.Background(), now))

	assert.Empty(t, repo.reclaimed)
	assert.Contains(t, repo.bookings, appt.ID)
}

func TestSweepContinuesPastReclaimErrors(t *testing.T) {
	repo := newFakeApptRepo()
	repo.reclaimErr = errors.New("deadlock")
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	repo.add(now.Add(-45*time.Minute), false)

	// A per-booking failure is logged, not returned.
	require.NoError(t, newSweeper(repo).sweepOnce(context.Background(), now))
	assert.Empty(t, repo.reclaimed)
}

func TestSweepBoundaryRespectsGracePeriod(t *testing.T) {
	repo := newFakeApptRepo()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	// Exactly at the cutoff is not yet stale.
	atCutoff := repo.add(now.Add(-30*time.Minute), false)

	require.NoError(t, newSweeper(repo).sweepOnce(context.Background(), now))
	assert.Contains(t, repo.bookings, atCutoff.ID)
}
