package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
)

// Sentinel errors services translate into API errors.
var (
	ErrNotFound = errors.New("not found")

	// ErrSlotUnavailable means the conditional slot flip matched zero rows:
	// the slot does not exist, or it was booked concurrently. Callers cannot
	// distinguish the two.
	ErrSlotUnavailable = errors.New("schedule not available")

	// ErrAlreadyPaid means a payment confirmation was replayed for a
	// transaction that is already PAID.
	ErrAlreadyPaid = errors.New("payment already confirmed")

	// ErrSlotBooked means a booked slot was targeted by an operation that
	// requires it to be free.
	ErrSlotBooked = errors.New("slot is booked")

	// ErrScheduleInUse means a schedule is still referenced by doctor slots.
	ErrScheduleInUse = errors.New("schedule is in use")
)

// All repository interfaces in one file
type (
	UserRepository interface {
		CreateWithPatient(ctx context.Context, user *model.User, patient *model.Patient) error
		CreateWithDoctor(ctx context.Context, user *model.User, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	}

	DoctorRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error)
		List(ctx context.Context, filters *model.DoctorFilters) ([]*model.Doctor, error)
	}

	PatientRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Patient, error)
	}

	ScheduleRepository interface {
		// CreateBatch inserts the given intervals, skipping any whose
		// (start, end) pair already exists. Only rows actually inserted are
		// returned.
		CreateBatch(ctx context.Context, schedules []*model.Schedule) ([]*model.Schedule, error)
		Get(ctx context.Context, id uuid.UUID) (*model.Schedule, error)
		List(ctx context.Context, filters *model.ScheduleFilters) ([]*model.Schedule, error)
		// ListAvailableForDoctor returns the doctor's free claimed slots
		// starting after from.
		ListAvailableForDoctor(ctx context.Context, doctorID uuid.UUID, from time.Time) ([]*model.Schedule, error)
		Delete(ctx context.Context, id uuid.UUID) error
	}

	DoctorSlotRepository interface {
		// BulkCreate claims the given schedules for the doctor, ignoring
		// pairs that already exist. Returns the number of new claims.
		BulkCreate(ctx context.Context, doctorID uuid.UUID, scheduleIDs []uuid.UUID) (int64, error)
		Get(ctx context.Context, doctorID, scheduleID uuid.UUID) (*model.DoctorSlot, error)
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.DoctorSlot, error)
		// Delete removes an unbooked claim; ErrSlotBooked if it is booked.
		Delete(ctx context.Context, doctorID, scheduleID uuid.UUID) error
	}

	AppointmentRepository interface {
		// Reserve atomically creates the appointment, flips the doctor's
		// slot to booked (conditional on it being free) and creates the
		// payment. ErrSlotUnavailable if the conditional flip matches no row.
		Reserve(ctx context.Context, appt *model.Appointment, payment *model.Payment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error
		ListUnpaidBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.Appointment, error)
		// ReclaimUnpaid deletes the appointment and its payment and frees the
		// slot, all in one transaction re-filtered on payment_status=UNPAID.
		// Returns false when the appointment was paid (or gone) in the
		// meantime and nothing was touched.
		ReclaimUnpaid(ctx context.Context, id uuid.UUID) (bool, error)
	}

	PaymentRepository interface {
		GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Payment, error)
		GetByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error)
		// ConfirmByTransactionID atomically moves the payment UNPAID->PAID,
		// stores the gateway payload and marks the appointment PAID.
		// ErrAlreadyPaid on replay, ErrNotFound for an unknown transaction.
		ConfirmByTransactionID(ctx context.Context, transactionID string, gatewayData json.RawMessage) (*model.Payment, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPendingEvents atomically moves a batch of PENDING events to
		// PROCESSING and returns them. Concurrent pollers never receive the
		// same event.
		ClaimPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
