package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
)

const appointmentColumns = `
	id, patient_id, doctor_id, schedule_id, video_calling_id,
	status, payment_status, created_at, updated_at
`

// Reserve performs the booking transaction: appointment insert, conditional
// slot flip, payment insert. The slot flip is an UPDATE guarded by
// is_booked = FALSE; zero rows affected means the slot is missing or was
// booked concurrently, and the whole transaction rolls back.
func (r *appointmentRepository) Reserve(ctx context.Context, appt *model.Appointment, payment *model.Payment) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		apptQuery := `
			INSERT INTO appointments (
				id, patient_id, doctor_id, schedule_id, video_calling_id,
				status, payment_status, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		appt.ID = uuid.New()
		appt.CreatedAt = time.Now()
		appt.UpdatedAt = time.Now()

		_, err := tx.ExecContext(ctx, apptQuery,
			appt.ID,
			appt.PatientID,
			appt.DoctorID,
			appt.ScheduleID,
			appt.VideoCallingID,
			appt.Status,
			appt.PaymentStatus,
			appt.CreatedAt,
			appt.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create appointment: %w", err)
		}

		slotQuery := `
			UPDATE doctor_slots
			SET is_booked = TRUE, appointment_id = $1, updated_at = $2
			WHERE doctor_id = $3 AND schedule_id = $4 AND is_booked = FALSE
		`
		result, err := tx.ExecContext(ctx, slotQuery,
			appt.ID, time.Now(), appt.DoctorID, appt.ScheduleID,
		)
		if err != nil {
			return fmt.Errorf("failed to book slot: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return repository.ErrSlotUnavailable
		}

		paymentQuery := `
			INSERT INTO payments (
				id, appointment_id, amount, transaction_id, status,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		payment.ID = uuid.New()
		payment.AppointmentID = appt.ID
		payment.CreatedAt = time.Now()
		payment.UpdatedAt = time.Now()

		_, err = tx.ExecContext(ctx, paymentQuery,
			payment.ID,
			payment.AppointmentID,
			payment.Amount,
			payment.TransactionID,
			payment.Status,
			payment.CreatedAt,
			payment.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		return nil
	})
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appt model.Appointment
	err := r.db.GetContext(ctx, &appt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appt, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters.PatientID != nil {
		query += fmt.Sprintf(" AND patient_id = $%d", argCount)
		args = append(args, *filters.PatientID)
		argCount++
	}

	if filters.DoctorID != nil {
		query += fmt.Sprintf(" AND doctor_id = $%d", argCount)
		args = append(args, *filters.DoctorID)
		argCount++
	}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}

	filters.Normalize()
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filters.PageSize, filters.Offset())

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	query := `
		UPDATE appointments
		SET status = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *appointmentRepository) ListUnpaidBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE payment_status = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3
	`
	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, model.PaymentStatusUnpaid, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unpaid appointments: %w", err)
	}
	return appointments, nil
}

// ReclaimUnpaid unwinds a stale booking. Every delete re-filters on
// payment_status = UNPAID inside the transaction, so a payment confirmed
// between the sweeper's select and this call leaves the booking untouched.
func (r *appointmentRepository) ReclaimUnpaid(ctx context.Context, id uuid.UUID) (bool, error) {
	var reclaimed bool
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		deleteAppt := `
			DELETE FROM appointments
			WHERE id = $1 AND payment_status = $2
		`
		deletePayment := `
			DELETE FROM payments
			WHERE appointment_id = $1 AND status = $2
		`
		freeSlot := `
			UPDATE doctor_slots
			SET is_booked = FALSE, appointment_id = NULL, updated_at = $2
			WHERE appointment_id = $1
		`

		if _, err := tx.ExecContext(ctx, deletePayment, id, model.PaymentStatusUnpaid); err != nil {
			return fmt.Errorf("failed to delete payment: %w", err)
		}

		// The slot's appointment_id reference must be cleared before the
		// appointment row can go. If the refiltered delete below matches
		// nothing, the rollback restores the slot too.
		if _, err := tx.ExecContext(ctx, freeSlot, id, time.Now()); err != nil {
			return fmt.Errorf("failed to free slot: %w", err)
		}

		result, err := tx.ExecContext(ctx, deleteAppt, id, model.PaymentStatusUnpaid)
		if err != nil {
			return fmt.Errorf("failed to delete appointment: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			// Paid or already reclaimed since the select; leave it alone.
			return errSkipReclaim
		}

		reclaimed = true
		return nil
	})
	if errors.Is(err, errSkipReclaim) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return reclaimed, nil
}

// errSkipReclaim aborts the reclaim transaction without surfacing an error.
var errSkipReclaim = errors.New("reclaim skipped")
