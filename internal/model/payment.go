package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Payment is created in the same transaction as its appointment. The amount
// is the doctor's fee at reservation time and is never reevaluated.
type Payment struct {
	Base
	AppointmentID      uuid.UUID       `db:"appointment_id" json:"appointment_id"`
	Amount             float64         `db:"amount" json:"amount"`
	TransactionID      string          `db:"transaction_id" json:"transaction_id"`
	Status             PaymentStatus   `db:"status" json:"status"`
	PaymentGatewayData json.RawMessage `db:"payment_gateway_data" json:"payment_gateway_data,omitempty"`
}

// PaymentOutcome is the result of processing a gateway callback.
type PaymentOutcome string

const (
	PaymentOutcomePaid     PaymentOutcome = "PAID"
	PaymentOutcomeRejected PaymentOutcome = "REJECTED"
	PaymentOutcomeInvalid  PaymentOutcome = "INVALID"
)

type InitiatePaymentResponse struct {
	PaymentURL string `json:"payment_url"`
}
