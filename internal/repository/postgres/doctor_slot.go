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

func (r *doctorSlotRepository) BulkCreate(ctx context.Context, doctorID uuid.UUID, scheduleIDs []uuid.UUID) (int64, error) {
	query := `
		INSERT INTO doctor_slots (
			doctor_id, schedule_id, is_booked, created_at, updated_at
		) VALUES ($1, $2, FALSE, $3, $4)
		ON CONFLICT (doctor_id, schedule_id) DO NOTHING
	`

	var created int64
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now()
		for _, scheduleID := range scheduleIDs {
			result, err := tx.ExecContext(ctx, query, doctorID, scheduleID, now, now)
			if err != nil {
				return fmt.Errorf("failed to create doctor slot: %w", err)
			}
			rows, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			created += rows
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func (r *doctorSlotRepository) Get(ctx context.Context, doctorID, scheduleID uuid.UUID) (*model.DoctorSlot, error) {
	query := `
		SELECT doctor_id, schedule_id, is_booked, appointment_id,
			   created_at, updated_at
		FROM doctor_slots
		WHERE doctor_id = $1 AND schedule_id = $2
	`
	var slot model.DoctorSlot
	err := r.db.GetContext(ctx, &slot, query, doctorID, scheduleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor slot: %w", err)
	}
	return &slot, nil
}

func (r *doctorSlotRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.DoctorSlot, error) {
	query := `
		SELECT ds.doctor_id, ds.schedule_id, ds.is_booked, ds.appointment_id,
			   ds.created_at, ds.updated_at
		FROM doctor_slots ds
		JOIN schedules s ON s.id = ds.schedule_id
		WHERE ds.doctor_id = $1
		ORDER BY s.start_date_time ASC
	`
	var slots []*model.DoctorSlot
	if err := r.db.SelectContext(ctx, &slots, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list doctor slots: %w", err)
	}
	return slots, nil
}

func (r *doctorSlotRepository) Delete(ctx context.Context, doctorID, scheduleID uuid.UUID) error {
	// Booked slots are never deleted directly; the guard is folded into the
	// delete itself so a concurrent booking cannot slip between check and act.
	query := `
		DELETE FROM doctor_slots
		WHERE doctor_id = $1 AND schedule_id = $2 AND is_booked = FALSE
	`
	result, err := r.db.ExecContext(ctx, query, doctorID, scheduleID)
	if err != nil {
		return fmt.Errorf("failed to delete doctor slot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := r.Get(ctx, doctorID, scheduleID); errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return repository.ErrSlotBooked
	}
	return nil
}
