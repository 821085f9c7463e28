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

func (r *userRepository) CreateWithPatient(ctx context.Context, user *model.User, patient *model.Patient) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertUser(ctx, tx, user); err != nil {
			return err
		}

		query := `
			INSERT INTO patients (
				id, user_id, name, email, contact_number, address,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		patient.ID = uuid.New()
		patient.UserID = user.ID
		patient.CreatedAt = time.Now()
		patient.UpdatedAt = time.Now()

		_, err := tx.ExecContext(ctx, query,
			patient.ID,
			patient.UserID,
			patient.Name,
			patient.Email,
			patient.ContactNumber,
			patient.Address,
			patient.CreatedAt,
			patient.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create patient profile: %w", err)
		}
		return nil
	})
}

func (r *userRepository) CreateWithDoctor(ctx context.Context, user *model.User, doctor *model.Doctor) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertUser(ctx, tx, user); err != nil {
			return err
		}

		query := `
			INSERT INTO doctors (
				id, user_id, name, email, contact_number, address,
				registration_number, experience, appointment_fee,
				qualification, specialty, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`
		doctor.ID = uuid.New()
		doctor.UserID = user.ID
		doctor.CreatedAt = time.Now()
		doctor.UpdatedAt = time.Now()

		_, err := tx.ExecContext(ctx, query,
			doctor.ID,
			doctor.UserID,
			doctor.Name,
			doctor.Email,
			doctor.ContactNumber,
			doctor.Address,
			doctor.RegistrationNumber,
			doctor.Experience,
			doctor.AppointmentFee,
			doctor.Qualification,
			doctor.Specialty,
			doctor.CreatedAt,
			doctor.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create doctor profile: %w", err)
		}
		return nil
	})
}

func insertUser(ctx context.Context, tx *sqlx.Tx, user *model.User) error {
	query := `
		INSERT INTO users (
			id, email, password_hash, role, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	_, err := tx.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Status,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `
		SELECT id, email, password_hash, role, status, last_login_at,
			   created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var user model.User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT id, email, password_hash, role, status, last_login_at,
			   created_at, updated_at
		FROM users
		WHERE email = $1
	`
	var user model.User
	err := r.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE users
		SET last_login_at = $1, updated_at = $1
		WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}
