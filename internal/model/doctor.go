package model

import "github.com/google/uuid"

type Doctor struct {
	Base
	UserID             uuid.UUID `db:"user_id" json:"user_id"`
	Name               string    `db:"name" json:"name"`
	Email              string    `db:"email" json:"email"`
	ContactNumber      string    `db:"contact_number" json:"contact_number"`
	Address            string    `db:"address" json:"address,omitempty"`
	RegistrationNumber string    `db:"registration_number" json:"registration_number"`
	Experience         int       `db:"experience" json:"experience"`
	AppointmentFee     float64   `db:"appointment_fee" json:"appointment_fee"`
	Qualification      string    `db:"qualification" json:"qualification"`
	Specialty          string    `db:"specialty" json:"specialty"`
}

type CreateDoctorRequest struct {
	Name               string  `json:"name" binding:"required,max=100"`
	Email              string  `json:"email" binding:"required,email"`
	Password           string  `json:"password" binding:"required,min=8"`
	ContactNumber      string  `json:"contact_number" binding:"required,max=20"`
	Address            string  `json:"address" binding:"max=255"`
	RegistrationNumber string  `json:"registration_number" binding:"required"`
	Experience         int     `json:"experience" binding:"gte=0"`
	AppointmentFee     float64 `json:"appointment_fee" binding:"required,gt=0"`
	Qualification      string  `json:"qualification" binding:"required"`
	Specialty          string  `json:"specialty" binding:"required"`
}

type DoctorFilters struct {
	Specialty  string `form:"specialty"`
	SearchTerm string `form:"search_term"`
	Pagination
}
