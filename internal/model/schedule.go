package model

import (
	"time"

	"github.com/google/uuid"
)

// Schedule is a bookable time interval. The (start_date_time, end_date_time)
// pair is unique at the store level.
type Schedule struct {
	Base
	StartDateTime time.Time `db:"start_date_time" json:"start_date_time"`
	EndDateTime   time.Time `db:"end_date_time" json:"end_date_time"`
}

// DoctorSlot is a doctor's claim on one schedule interval. Identity is the
// (doctor_id, schedule_id) pair. IsBooked is true exactly while a live
// appointment references the slot.
type DoctorSlot struct {
	DoctorID      uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	ScheduleID    uuid.UUID  `db:"schedule_id" json:"schedule_id"`
	IsBooked      bool       `db:"is_booked" json:"is_booked"`
	AppointmentID *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

type CreateScheduleRequest struct {
	StartDate string `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" binding:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" binding:"required,hhmm"`
	EndTime   string `json:"end_time" binding:"required,hhmm"`
}

type ScheduleFilters struct {
	StartDate *time.Time `form:"start_date" time_format:"2006-01-02"`
	EndDate   *time.Time `form:"end_date" time_format:"2006-01-02"`
	Pagination
}

type SelectSchedulesRequest struct {
	ScheduleIDs []uuid.UUID `json:"schedule_ids" binding:"required,min=1,dive,required"`
}
