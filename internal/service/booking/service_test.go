package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("booking_test")

type fakePatientRepo struct {
	byUser map[uuid.UUID]*model.Patient
}

func (f *fakePatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	for _, p := range f.byUser {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakePatientRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Patient, error) {
	if p, ok := f.byUser[userID]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

type fakeDoctorRepo struct {
	byID   map[uuid.UUID]*model.Doctor
	byUser map[uuid.UUID]*model.Doctor
}

func (f *fakeDoctorRepo) Get(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	if d, ok := f.byID[id]; ok {
		return d, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeDoctorRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Doctor, error) {
	if d, ok := f.byUser[userID]; ok {
		return d, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeDoctorRepo) List(_ context.Context, _ *model.DoctorFilters) ([]*model.Doctor, error) {
	return nil, nil
}

// fakeApptRepo mimics the conditional slot flip: the first reservation for a
// (doctor, schedule) pair wins, every later one gets ErrSlotUnavailable.
type fakeApptRepo struct {
	mu       sync.Mutex
	booked   map[string]bool
	appts    map[uuid.UUID]*model.Appointment
	payments map[uuid.UUID]*model.Payment
}

func newFakeApptRepo() *fakeApptRepo {
	return &fakeApptRepo{
		booked:   make(map[string]bool),
		appts:    make(map[uuid.UUID]*model.Appointment),
		payments: make(map[uuid.UUID]*model.Payment),
	}
}

func slotKey(doctorID, scheduleID uuid.UUID) string {
	return doctorID.String() + "/" + scheduleID.String()
}

func (f *fakeApptRepo) Reserve(_ context.Context, appt *model.Appointment, payment *model.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := slotKey(appt.DoctorID, appt.ScheduleID)
	if f.booked[key] {
		return repository.ErrSlotUnavailable
	}
	f.booked[key] = true

	appt.ID = uuid.New()
	payment.AppointmentID = appt.ID
	f.appts[appt.ID] = appt
	f.payments[appt.ID] = payment
	return nil
}

func (f *fakeApptRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.appts[id]; ok {
		return a, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeApptRepo) List(_ context.Context, _ *model.AppointmentFilters) ([]*model.Appointment, error) {
	return nil, nil
}

func (f *fakeApptRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = status
	return nil
}

func (f *fakeApptRepo) ListUnpaidBefore(_ context.Context, _ time.Time, _ int) ([]*model.Appointment, error) {
	return nil, nil
}

func (f *fakeApptRepo) ReclaimUnpaid(_ context.Context, _ uuid.UUID) (bool, error) {
	return false, nil
}

type fixture struct {
	svc       *Service
	apptRepo  *fakeApptRepo
	patientID uuid.UUID
	userID    uuid.UUID
	doctor    *model.Doctor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	userID := uuid.New()
	patient := &model.Patient{UserID: userID, Name: "Jamie", Email: "jamie@example.com"}
	patient.ID = uuid.New()

	doctor := &model.Doctor{Name: "Dr. Rahman", AppointmentFee: 1500}
	doctor.ID = uuid.New()

	apptRepo := newFakeApptRepo()
	svc := NewService(
		apptRepo,
		&fakePatientRepo{byUser: map[uuid.UUID]*model.Patient{userID: patient}},
		&fakeDoctorRepo{byID: map[uuid.UUID]*model.Doctor{doctor.ID: doctor}},
		testMetrics,
	)

	return &fixture{
		svc:       svc,
		apptRepo:  apptRepo,
		patientID: patient.ID,
		userID:    userID,
		doctor:    doctor,
	}
}

func TestBookCreatesAppointmentAndUnpaidPayment(t *testing.T) {
	fx := newFixture(t)
	scheduleID := uuid.New()

	result, err := fx.svc.Book(context.Background(), fx.userID, &model.CreateAppointmentRequest{
		DoctorID:   fx.doctor.ID,
		ScheduleID: scheduleID,
	})
	require.NoError(t, err)

	assert.Equal(t, fx.patientID, result.Appointment.PatientID)
	assert.Equal(t, model.AppointmentStatusScheduled, result.Appointment.Status)
	assert.Equal(t, model.PaymentStatusUnpaid, result.Appointment.PaymentStatus)
	assert.NotEmpty(t, result.Appointment.VideoCallingID)

	assert.Equal(t, result.Appointment.ID, result.Payment.AppointmentID)
	assert.Equal(t, 1500.0, result.Payment.Amount)
	assert.Equal(t, model.PaymentStatusUnpaid, result.Payment.Status)
	assert.NotEmpty(t, result.Payment.TransactionID)
}

func TestBookRejectsNonPatient(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.Book(context.Background(), uuid.New(), &model.CreateAppointmentRequest{
		DoctorID:   fx.doctor.ID,
		ScheduleID: uuid.New(),
	})

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrForbidden, appErr.Code)
	assert.Equal(t, "user is not a patient", appErr.Message)
}

func TestBookRejectsUnknownDoctor(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.Book(context.Background(), fx.userID, &model.CreateAppointmentRequest{
		DoctorID:   uuid.New(),
		ScheduleID: uuid.New(),
	})

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}

func TestConcurrentBookingsOnlyOneWins(t *testing.T) {
	fx := newFixture(t)
	scheduleID := uuid.New()

	const attempts = 20
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.svc.Book(context.Background(), fx.userID, &model.CreateAppointmentRequest{
				DoctorID:   fx.doctor.ID,
				ScheduleID: scheduleID,
			})
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		lost++
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrConflict, appErr.Code)
		assert.Equal(t, "schedule not available", appErr.Message)
	}

	assert.Equal(t, 1, won)
	assert.Equal(t, attempts-1, lost)
	assert.Len(t, fx.apptRepo.appts, 1)
}

func TestUpdateStatusFrozenWhenTerminal(t *testing.T) {
	fx := newFixture(t)

	result, err := fx.svc.Book(context.Background(), fx.userID, &model.CreateAppointmentRequest{
		DoctorID:   fx.doctor.ID,
		ScheduleID: uuid.New(),
	})
	require.NoError(t, err)

	admin := &model.TokenClaims{UserID: uuid.New(), Role: model.UserRoleAdmin}

	_, err = fx.svc.UpdateStatus(context.Background(), admin, result.Appointment.ID, model.AppointmentStatusCompleted)
	require.NoError(t, err)

	_, err = fx.svc.UpdateStatus(context.Background(), admin, result.Appointment.ID, model.AppointmentStatusInProgress)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
}
