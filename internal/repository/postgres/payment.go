package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
)

const paymentColumns = `
	id, appointment_id, amount, transaction_id, status,
	payment_gateway_data, created_at, updated_at
`

func (r *paymentRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE appointment_id = $1`

	var payment model.Payment
	err := r.db.GetContext(ctx, &payment, query, appointmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (r *paymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1`

	var payment model.Payment
	err := r.db.GetContext(ctx, &payment, query, transactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by transaction: %w", err)
	}
	return &payment, nil
}

// ConfirmByTransactionID is the UNPAID -> PAID transition. The update is
// conditional on the current status, which makes callback replays land on
// zero rows instead of double-applying.
func (r *paymentRepository) ConfirmByTransactionID(ctx context.Context, transactionID string, gatewayData json.RawMessage) (*model.Payment, error) {
	var payment model.Payment
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		confirmQuery := `
			UPDATE payments
			SET status = $1, payment_gateway_data = $2, updated_at = $3
			WHERE transaction_id = $4 AND status = $5
			RETURNING ` + paymentColumns + `
		`
		err := tx.QueryRowxContext(ctx, confirmQuery,
			model.PaymentStatusPaid,
			gatewayData,
			time.Now(),
			transactionID,
			model.PaymentStatusUnpaid,
		).StructScan(&payment)
		if errors.Is(err, sql.ErrNoRows) {
			// Unknown transaction, or a replay of an already-paid one.
			var status model.PaymentStatus
			getErr := tx.GetContext(ctx, &status,
				`SELECT status FROM payments WHERE transaction_id = $1`, transactionID)
			if errors.Is(getErr, sql.ErrNoRows) {
				return repository.ErrNotFound
			}
			if getErr != nil {
				return fmt.Errorf("failed to check payment status: %w", getErr)
			}
			return repository.ErrAlreadyPaid
		}
		if err != nil {
			return fmt.Errorf("failed to confirm payment: %w", err)
		}

		apptQuery := `
			UPDATE appointments
			SET payment_status = $1, updated_at = $2
			WHERE id = $3
		`
		if _, err := tx.ExecContext(ctx, apptQuery,
			model.PaymentStatusPaid, time.Now(), payment.AppointmentID,
		); err != nil {
			return fmt.Errorf("failed to mark appointment paid: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
