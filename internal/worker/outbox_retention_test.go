package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/telehealth-api/internal/model"
)

type fakeOutboxStore struct {
	deleteCutoffs []time.Time
	deleted       int64
	deleteErr     error
}

func (f *fakeOutboxStore) Create(_ context.Context, _ *model.OutboxEvent) error {
	return nil
}

func (f *fakeOutboxStore) ClaimPendingEvents(_ context.Context, _ int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxStore) UpdateStatus(_ context.Context, _ uuid.UUID, _ model.OutboxStatus, _ *string) error {
	return nil
}

func (f *fakeOutboxStore) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.deleteCutoffs = append(f.deleteCutoffs, before)
	return f.deleted, nil
}

func TestRetentionDeletesBeforeCutoff(t *testing.T) {
	store := &fakeOutboxStore{deleted: 7}
	w := NewOutboxRetention(store, time.Hour, 24*time.Hour, testLogger())

	now := time.Date(2026, 9, 2, 12, 0, 0, 0, time.UTC)
	require.NoError(t, w.cleanOnce(context.Background(), now))

	require.Len(t, store.deleteCutoffs, 1)
	assert.Equal(t, now.Add(-24*time.Hour), store.deleteCutoffs[0])
}

func TestRetentionSurfacesDeleteError(t *testing.T) {
	store := &fakeOutboxStore{deleteErr: errors.New("db down")}
	w := NewOutboxRetention(store, time.Hour, 24*time.Hour, testLogger())

	err := w.cleanOnce(context.Background(), time.Now())
	require.Error(t, err)
}

func TestRetentionDefaultsApply(t *testing.T) {
	w := NewOutboxRetention(&fakeOutboxStore{}, 0, 0, testLogger())
	assert.Equal(t, time.Hour, w.interval)
	assert.Equal(t, 24*time.Hour, w.retention)
}
