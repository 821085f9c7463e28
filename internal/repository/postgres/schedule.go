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

// CreateBatch relies on the unique index on (start_date_time, end_date_time):
// ON CONFLICT DO NOTHING makes concurrent generator runs safe without a
// read-before-write existence check.
func (r *scheduleRepository) CreateBatch(ctx context.Context, schedules []*model.Schedule) ([]*model.Schedule, error) {
	query := `
		INSERT INTO schedules (
			id, start_date_time, end_date_time, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (start_date_time, end_date_time) DO NOTHING
		RETURNING id
	`

	var created []*model.Schedule
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, s := range schedules {
			s.ID = uuid.New()
			s.CreatedAt = time.Now()
			s.UpdatedAt = time.Now()

			var id uuid.UUID
			err := tx.QueryRowContext(ctx, query,
				s.ID, s.StartDateTime, s.EndDateTime, s.CreatedAt, s.UpdatedAt,
			).Scan(&id)
			if errors.Is(err, sql.ErrNoRows) {
				// Interval already exists, silently skipped.
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to create schedule: %w", err)
			}
			created = append(created, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *scheduleRepository) Get(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	query := `
		SELECT id, start_date_time, end_date_time, created_at, updated_at
		FROM schedules
		WHERE id = $1
	`
	var schedule model.Schedule
	err := r.db.GetContext(ctx, &schedule, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return &schedule, nil
}

func (r *scheduleRepository) List(ctx context.Context, filters *model.ScheduleFilters) ([]*model.Schedule, error) {
	query := `
		SELECT id, start_date_time, end_date_time, created_at, updated_at
		FROM schedules
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters.StartDate != nil {
		query += fmt.Sprintf(" AND start_date_time >= $%d", argCount)
		args = append(args, *filters.StartDate)
		argCount++
	}

	if filters.EndDate != nil {
		query += fmt.Sprintf(" AND end_date_time <= $%d", argCount)
		args = append(args, filters.EndDate.Add(24*time.Hour))
		argCount++
	}

	filters.Normalize()
	query += fmt.Sprintf(" ORDER BY start_date_time ASC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filters.PageSize, filters.Offset())

	var schedules []*model.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

func (r *scheduleRepository) ListAvailableForDoctor(ctx context.Context, doctorID uuid.UUID, from time.Time) ([]*model.Schedule, error) {
	query := `
		SELECT s.id, s.start_date_time, s.end_date_time, s.created_at, s.updated_at
		FROM schedules s
		JOIN doctor_slots ds ON ds.schedule_id = s.id
		WHERE ds.doctor_id = $1
		AND ds.is_booked = FALSE
		AND s.start_date_time >= $2
		ORDER BY s.start_date_time ASC
	`
	var schedules []*model.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, doctorID, from); err != nil {
		return nil, fmt.Errorf("failed to list available schedules: %w", err)
	}
	return schedules, nil
}

func (r *scheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// Deletable only while no doctor slot references the interval.
	query := `
		DELETE FROM schedules
		WHERE id = $1
		AND NOT EXISTS (
			SELECT 1 FROM doctor_slots WHERE schedule_id = $1
		)
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := r.Get(ctx, id); errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return repository.ErrScheduleInUse
	}
	return nil
}
