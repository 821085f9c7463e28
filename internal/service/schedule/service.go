package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type Service struct {
	repo        repository.ScheduleRepository
	slotMinutes int
}

func NewService(repo repository.ScheduleRepository, slotMinutes int) *Service {
	if slotMinutes <= 0 {
		slotMinutes = 30
	}
	return &Service{repo: repo, slotMinutes: slotMinutes}
}

// Generate tiles the [start_time, end_time) window of every date in
// [start_date, end_date] into fixed-length intervals and stores them.
// Intervals that already exist are skipped, so regenerating an overlapping
// range is safe; only newly created rows are returned.
func (s *Service) Generate(ctx context.Context, req *model.CreateScheduleRequest) ([]*model.Schedule, error) {
	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, apperrors.BadRequest("invalid start_date", err)
	}
	endDate, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return nil, apperrors.BadRequest("invalid end_date", err)
	}
	if endDate.Before(startDate) {
		return nil, apperrors.BadRequest("end_date must not be before start_date", nil)
	}

	startMin, err := parseHHMM(req.StartTime)
	if err != nil {
		return nil, apperrors.BadRequest("invalid start_time", err)
	}
	endMin, err := parseHHMM(req.EndTime)
	if err != nil {
		return nil, apperrors.BadRequest("invalid end_time", err)
	}
	if endMin <= startMin {
		return nil, apperrors.BadRequest("end_time must be after start_time", nil)
	}

	schedules := tile(startDate, endDate, startMin, endMin, s.slotMinutes)
	if len(schedules) == 0 {
		return nil, apperrors.BadRequest(
			fmt.Sprintf("time window is shorter than a %d minute slot", s.slotMinutes), nil)
	}

	created, err := s.repo.CreateBatch(ctx, schedules)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return created, nil
}

// tile walks each date and emits back-to-back slot-length intervals. A
// trailing remainder shorter than one slot is dropped.
func tile(startDate, endDate time.Time, startMin, endMin, slotMinutes int) []*model.Schedule {
	var schedules []*model.Schedule
	slot := time.Duration(slotMinutes) * time.Minute

	for date := startDate; !date.After(endDate); date = date.AddDate(0, 0, 1) {
		dayStart := date.Add(time.Duration(startMin) * time.Minute)
		dayEnd := date.Add(time.Duration(endMin) * time.Minute)

		for t := dayStart; !t.Add(slot).After(dayEnd); t = t.Add(slot) {
			schedules = append(schedules, &model.Schedule{
				StartDateTime: t,
				EndDateTime:   t.Add(slot),
			})
		}
	}
	return schedules
}

func parseHHMM(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func (s *Service) List(ctx context.Context, filters *model.ScheduleFilters) ([]*model.Schedule, error) {
	filters.Normalize()
	schedules, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return schedules, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	schedule, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("schedule", err)
		}
		return nil, apperrors.Internal(err)
	}
	return schedule, nil
}

// Delete removes an interval no doctor has claimed.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound("schedule", err)
	case errors.Is(err, repository.ErrScheduleInUse):
		return apperrors.Conflict("schedule has been claimed by a doctor", err)
	default:
		return apperrors.Internal(err)
	}
}
