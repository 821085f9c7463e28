package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
)

type Service struct {
	apptRepo    repository.AppointmentRepository
	patientRepo repository.PatientRepository
	doctorRepo  repository.DoctorRepository
	metrics     *metrics.Metrics
}

func NewService(
	apptRepo repository.AppointmentRepository,
	patientRepo repository.PatientRepository,
	doctorRepo repository.DoctorRepository,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		apptRepo:    apptRepo,
		patientRepo: patientRepo,
		doctorRepo:  doctorRepo,
		metrics:     metrics,
	}
}

// BookingResult is what a successful reservation hands back: the appointment
// plus its UNPAID payment, whose transaction id drives gateway checkout.
type BookingResult struct {
	Appointment *model.Appointment `json:"appointment"`
	Payment     *model.Payment     `json:"payment"`
}

// Book reserves the doctor's slot for the calling patient. The appointment,
// the slot flip and the UNPAID payment commit in one transaction; if another
// booking wins the slot first the whole thing rolls back. The payment amount
// is the doctor's fee as of now and is never recomputed.
func (s *Service) Book(ctx context.Context, userID uuid.UUID, req *model.CreateAppointmentRequest) (*BookingResult, error) {
	patient, err := s.patientRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Forbidden("user is not a patient", err)
		}
		return nil, apperrors.Internal(err)
	}

	doctor, err := s.doctorRepo.Get(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(err)
	}

	appt := &model.Appointment{
		PatientID:      patient.ID,
		DoctorID:       doctor.ID,
		ScheduleID:     req.ScheduleID,
		VideoCallingID: uuid.NewString(),
		Status:         model.AppointmentStatusScheduled,
		PaymentStatus:  model.PaymentStatusUnpaid,
	}
	payment := &model.Payment{
		Amount:        doctor.AppointmentFee,
		TransactionID: newTransactionID(),
		Status:        model.PaymentStatusUnpaid,
	}

	if err := s.apptRepo.Reserve(ctx, appt, payment); err != nil {
		if errors.Is(err, repository.ErrSlotUnavailable) {
			s.metrics.ReservationConflict.Inc()
			return nil, apperrors.Conflict("schedule not available", err)
		}
		return nil, apperrors.Internal(err)
	}

	s.metrics.ReservationsTotal.Inc()
	return &BookingResult{Appointment: appt, Payment: payment}, nil
}

func newTransactionID() string {
	return fmt.Sprintf("TXN-%s", uuid.NewString())
}

func (s *Service) Get(ctx context.Context, claims *model.TokenClaims, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.apptRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(err)
	}

	if err := s.authorize(ctx, claims, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// ListMine returns the caller's appointments: the patient's own bookings or
// the doctor's calendar, depending on the role.
func (s *Service) ListMine(ctx context.Context, claims *model.TokenClaims, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	filters.Normalize()

	switch claims.Role {
	case model.UserRolePatient:
		patient, err := s.patientRepo.GetByUserID(ctx, claims.UserID)
		if err != nil {
			return nil, apperrors.Forbidden("user is not a patient", err)
		}
		filters.PatientID = &patient.ID
	case model.UserRoleDoctor:
		doctor, err := s.doctorRepo.GetByUserID(ctx, claims.UserID)
		if err != nil {
			return nil, apperrors.Forbidden("user is not a doctor", err)
		}
		filters.DoctorID = &doctor.ID
	case model.UserRoleAdmin:
		// Admins see everything the filters allow.
	default:
		return nil, apperrors.Forbidden("unknown role", nil)
	}

	appts, err := s.apptRepo.List(ctx, filters)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return appts, nil
}

// UpdateStatus moves an appointment through its lifecycle. Only the
// appointment's doctor or an admin may do this, and terminal states are
// frozen.
func (s *Service) UpdateStatus(ctx context.Context, claims *model.TokenClaims, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error) {
	appt, err := s.apptRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(err)
	}

	switch claims.Role {
	case model.UserRoleAdmin:
	case model.UserRoleDoctor:
		doctor, err := s.doctorRepo.GetByUserID(ctx, claims.UserID)
		if err != nil || doctor.ID != appt.DoctorID {
			return nil, apperrors.Forbidden("appointment belongs to another doctor", err)
		}
	default:
		return nil, apperrors.Forbidden("only doctors may update appointment status", nil)
	}

	if appt.Status.Terminal() {
		return nil, apperrors.Conflict(
			fmt.Sprintf("appointment is already %s", appt.Status), nil)
	}

	if err := s.apptRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, apperrors.Internal(err)
	}
	appt.Status = status
	return appt, nil
}

func (s *Service) authorize(ctx context.Context, claims *model.TokenClaims, appt *model.Appointment) error {
	switch claims.Role {
	case model.UserRoleAdmin:
		return nil
	case model.UserRolePatient:
		patient, err := s.patientRepo.GetByUserID(ctx, claims.UserID)
		if err == nil && patient.ID == appt.PatientID {
			return nil
		}
	case model.UserRoleDoctor:
		doctor, err := s.doctorRepo.GetByUserID(ctx, claims.UserID)
		if err == nil && doctor.ID == appt.DoctorID {
			return nil
		}
	}
	return apperrors.Forbidden("appointment belongs to another user", nil)
}
