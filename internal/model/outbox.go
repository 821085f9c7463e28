package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusProcessed  OutboxStatus = "PROCESSED"
	OutboxStatusFailed     OutboxStatus = "FAILED"
)

const EventPaymentConfirmed = "payment.confirmed"

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// PaymentConfirmedEvent is the payload written to the outbox once a payment
// commits as PAID. The notification worker turns it into an invoice email.
type PaymentConfirmedEvent struct {
	AppointmentID   uuid.UUID `json:"appointment_id"`
	TransactionID   string    `json:"transaction_id"`
	Amount          float64   `json:"amount"`
	PatientName     string    `json:"patient_name"`
	PatientEmail    string    `json:"patient_email"`
	DoctorName      string    `json:"doctor_name"`
	AppointmentTime time.Time `json:"appointment_time"`
}
