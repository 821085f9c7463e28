package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/telehealth-api/internal/repository"
)

type userRepository struct {
	BaseRepository
}

type doctorRepository struct {
	BaseRepository
}

type patientRepository struct {
	BaseRepository
}

type scheduleRepository struct {
	BaseRepository
}

type doctorSlotRepository struct {
	BaseRepository
}

type appointmentRepository struct {
	BaseRepository
}

type paymentRepository struct {
	BaseRepository
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{NewBaseRepository(db)}
}

func NewDoctorRepository(db *sqlx.DB) repository.DoctorRepository {
	return &doctorRepository{NewBaseRepository(db)}
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{NewBaseRepository(db)}
}

func NewScheduleRepository(db *sqlx.DB) repository.ScheduleRepository {
	return &scheduleRepository{NewBaseRepository(db)}
}

func NewDoctorSlotRepository(db *sqlx.DB) repository.DoctorSlotRepository {
	return &doctorSlotRepository{NewBaseRepository(db)}
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{NewBaseRepository(db)}
}

func NewPaymentRepository(db *sqlx.DB) repository.PaymentRepository {
	return &paymentRepository{NewBaseRepository(db)}
}
