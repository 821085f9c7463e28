package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
)

type fakeScheduleRepo struct {
	existing  map[string]bool
	created   []*model.Schedule
	deleteErr error
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{existing: make(map[string]bool)}
}

func intervalKey(s *model.Schedule) string {
	return s.StartDateTime.Format(time.RFC3339) + "/" + s.EndDateTime.Format(time.RFC3339)
}

func (f *fakeScheduleRepo) CreateBatch(_ context.Context, schedules []*model.Schedule) ([]*model.Schedule, error) {
	var created []*model.Schedule
	for _, s := range schedules {
		key := intervalKey(s)
		if f.existing[key] {
			continue
		}
		f.existing[key] = true
		s.ID = uuid.New()
		f.created = append(f.created, s)
		created = append(created, s)
	}
	return created, nil
}

func (f *fakeScheduleRepo) Get(_ context.Context, id uuid.UUID) (*model.Schedule, error) {
	for _, s := range f.created {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeScheduleRepo) List(_ context.Context, _ *model.ScheduleFilters) ([]*model.Schedule, error) {
	return f.created, nil
}

func (f *fakeScheduleRepo) ListAvailableForDoctor(_ context.Context, _ uuid.UUID, _ time.Time) ([]*model.Schedule, error) {
	return nil, nil
}

func (f *fakeScheduleRepo) Delete(_ context.Context, _ uuid.UUID) error {
	return f.deleteErr
}

func TestGenerateTilesWindowIntoSlots(t *testing.T) {
	repo := newFakeScheduleRepo()
	svc := NewService(repo, 30)

	created, err := svc.Generate(context.Background(), &model.CreateScheduleRequest{
		StartDate: "2026-09-01",
		EndDate:   "2026-09-01",
		StartTime: "09:00",
		EndTime:   "10:00",
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	assert.Equal(t, time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC), created[0].StartDateTime)
	assert.Equal(t, time.Date(2026, 9, 1, 9, 30, 0, 0, time.UTC), created[0].EndDateTime)
	assert.Equal(t, time.Date(2026, 9, 1, 9, 30, 0, 0, time.UTC), created[1].StartDateTime)
	assert.Equal(t, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC), created[1].EndDateTime)
}

func TestGenerateSpansMultipleDates(t *testing.T) {
	repo := newFakeScheduleRepo()
	svc := NewService(repo, 30)

	created, err := svc.Generate(context.Background(), &model.CreateScheduleRequest{
		StartDate: "2026-09-01",
		EndDate:   "2026-09-03",
		StartTime: "10:00",
		EndTime:   "12:00",
	})
	require.NoError(t, err)
	assert.Len(t, created, 12)
}

func TestGenerateDropsTrailingRemainder(t *testing.T) {
	repo := newFakeScheduleRepo()
	svc := NewService(repo, 30)

	created, err := svc.Generate(context.Background(), &model.CreateScheduleRequest{
		StartDate: "2026-09-01",
		EndDate:   "2026-09-01",
		StartTime: "09:00",
		EndTime:   "09:45",
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, time.Date(2026, 9, 1, 9, 30, 0, 0, time.UTC), created[0].EndDateTime)
}

func TestGenerateSkipsExistingIntervals(t *testing.T) {
	repo := newFakeScheduleRepo()
	svc := NewService(repo, 30)

	first, err := svc.Generate(context.Background(), &model.CreateScheduleRequest{
		StartDate: "2026-09-01",
		EndDate:   "2026-09-01",
		StartTime: "09:00",
		EndTime:   "11:00",
	})
	require.NoError(t, err)
	require.Len(t, first, 4)

	// Overlapping regeneration only creates the new tail intervals.
	second, err := svc.Generate(context.Background(), &model.CreateScheduleRequest{
		StartDate: "2026-09-01",
		EndDate:   "2026-09-01",
		StartTime: "10:00",
		EndTime:   "12:00",
	})
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC), second[0].StartDateTime)
}

func TestGenerateRejectsInvertedWindow(t *testing.T) {
	svc := NewService(newFakeScheduleRepo(), 30)

	_, err := svc.Generate(context.Background(), &model.CreateScheduleRequest{
		StartDate: "2026-09-01",
		EndDate:   "2026-09-01",
		StartTime: "11:00",
		EndTime:   "10:00",
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
}

func TestGenerateRejectsWindowShorterThanSlot(t *testing.T) {
	svc := NewService(newFakeScheduleRepo(), 30)

	_, err := svc.Generate(context.Background(), &model.CreateScheduleRequest{
		StartDate: "2026-09-01",
		EndDate:   "2026-09-01",
		StartTime: "09:00",
		EndTime:   "09:15",
	})
	require.Error(t, err)
}

func TestDeleteClaimedScheduleConflicts(t *testing.T) {
	repo := newFakeScheduleRepo()
	repo.deleteErr = repository.ErrScheduleInUse
	svc := NewService(repo, 30)

	err := svc.Delete(context.Background(), uuid.New())
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
}
