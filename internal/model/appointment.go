package model

import (
	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled  AppointmentStatus = "SCHEDULED"
	AppointmentStatusInProgress AppointmentStatus = "INPROGRESS"
	AppointmentStatusCompleted  AppointmentStatus = "COMPLETED"
	AppointmentStatusCanceled   AppointmentStatus = "CANCELED"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
	PaymentStatusPaid   PaymentStatus = "PAID"
)

type Appointment struct {
	Base
	PatientID      uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID       uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	ScheduleID     uuid.UUID         `db:"schedule_id" json:"schedule_id"`
	VideoCallingID string            `db:"video_calling_id" json:"video_calling_id"`
	Status         AppointmentStatus `db:"status" json:"status"`
	PaymentStatus  PaymentStatus     `db:"payment_status" json:"payment_status"`
}

type CreateAppointmentRequest struct {
	DoctorID   uuid.UUID `json:"doctor_id" binding:"required"`
	ScheduleID uuid.UUID `json:"schedule_id" binding:"required"`
}

type UpdateAppointmentStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required,oneof=SCHEDULED INPROGRESS COMPLETED CANCELED"`
}

type AppointmentFilters struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    AppointmentStatus
	Pagination
}

// Terminal reports whether no further status transitions are allowed.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCanceled
}
