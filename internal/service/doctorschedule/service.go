package doctorschedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
)

type Service struct {
	doctorRepo   repository.DoctorRepository
	slotRepo     repository.DoctorSlotRepository
	scheduleRepo repository.ScheduleRepository
}

func NewService(
	doctorRepo repository.DoctorRepository,
	slotRepo repository.DoctorSlotRepository,
	scheduleRepo repository.ScheduleRepository,
) *Service {
	return &Service{
		doctorRepo:   doctorRepo,
		slotRepo:     slotRepo,
		scheduleRepo: scheduleRepo,
	}
}

// SelectSchedules claims the given intervals for the calling doctor. Claims
// the doctor already holds are skipped; the returned count covers new claims
// only.
func (s *Service) SelectSchedules(ctx context.Context, userID uuid.UUID, req *model.SelectSchedulesRequest) (int64, error) {
	doctor, err := s.doctorForUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	for _, id := range req.ScheduleIDs {
		if _, err := s.scheduleRepo.Get(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return 0, apperrors.NotFound("schedule", err)
			}
			return 0, apperrors.Internal(err)
		}
	}

	created, err := s.slotRepo.BulkCreate(ctx, doctor.ID, req.ScheduleIDs)
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	return created, nil
}

// MySlots lists every claim the calling doctor holds, booked or not.
func (s *Service) MySlots(ctx context.Context, userID uuid.UUID) ([]*model.DoctorSlot, error) {
	doctor, err := s.doctorForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	slots, err := s.slotRepo.ListByDoctor(ctx, doctor.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return slots, nil
}

// AvailableSchedules lists a doctor's free upcoming intervals, for patients
// picking a slot to book.
func (s *Service) AvailableSchedules(ctx context.Context, doctorID uuid.UUID) ([]*model.Schedule, error) {
	if _, err := s.doctorRepo.Get(ctx, doctorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(err)
	}

	schedules, err := s.scheduleRepo.ListAvailableForDoctor(ctx, doctorID, time.Now())
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return schedules, nil
}

// RemoveSlot releases an unbooked claim. A booked claim cannot be released;
// the appointment owns it.
func (s *Service) RemoveSlot(ctx context.Context, userID, scheduleID uuid.UUID) error {
	doctor, err := s.doctorForUser(ctx, userID)
	if err != nil {
		return err
	}

	err = s.slotRepo.Delete(ctx, doctor.ID, scheduleID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound("slot", err)
	case errors.Is(err, repository.ErrSlotBooked):
		return apperrors.Conflict("slot has an appointment", err)
	default:
		return apperrors.Internal(err)
	}
}

func (s *Service) doctorForUser(ctx context.Context, userID uuid.UUID) (*model.Doctor, error) {
	doctor, err := s.doctorRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Forbidden("user is not a doctor", err)
		}
		return nil, apperrors.Internal(err)
	}
	return doctor, nil
}
