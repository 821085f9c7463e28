package model

import "github.com/google/uuid"

type Patient struct {
	Base
	UserID        uuid.UUID `db:"user_id" json:"user_id"`
	Name          string    `db:"name" json:"name"`
	Email         string    `db:"email" json:"email"`
	ContactNumber string    `db:"contact_number" json:"contact_number"`
	Address       string    `db:"address" json:"address,omitempty"`
}
