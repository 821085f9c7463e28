package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/telehealth-api/internal/config"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
	"github.com/jwalitptl/telehealth-api/pkg/paygate"
)

var testMetrics = metrics.NewMetrics("payment_test")

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
}

type fakeGateway struct {
	session      *paygate.SessionResponse
	sessionErr   error
	sessionReq   *paygate.SessionRequest
	validation   *paygate.ValidationResponse
	validateErr  error
	validateArgs []string
}

func (f *fakeGateway) InitiateSession(_ context.Context, req *paygate.SessionRequest) (*paygate.SessionResponse, error) {
	f.sessionReq = req
	return f.session, f.sessionErr
}

func (f *fakeGateway) ValidateTransaction(_ context.Context, valID string) (*paygate.ValidationResponse, error) {
	f.validateArgs = append(f.validateArgs, valID)
	return f.validation, f.validateErr
}

type fakePaymentRepo struct {
	byTranID map[string]*model.Payment
}

func (f *fakePaymentRepo) GetByAppointment(_ context.Context, appointmentID uuid.UUID) (*model.Payment, error) {
	for _, p := range f.byTranID {
		if p.AppointmentID == appointmentID {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakePaymentRepo) GetByTransactionID(_ context.Context, transactionID string) (*model.Payment, error) {
	if p, ok := f.byTranID[transactionID]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakePaymentRepo) ConfirmByTransactionID(_ context.Context, transactionID string, gatewayData json.RawMessage) (*model.Payment, error) {
	p, ok := f.byTranID[transactionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Status == model.PaymentStatusPaid {
		return nil, repository.ErrAlreadyPaid
	}
	p.Status = model.PaymentStatusPaid
	p.PaymentGatewayData = gatewayData
	return p, nil
}

type fakeApptRepo struct {
	byID map[uuid.UUID]*model.Appointment
}

func (f *fakeApptRepo) Reserve(_ context.Context, _ *model.Appointment, _ *model.Payment) error {
	return nil
}

func (f *fakeApptRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	if a, ok := f.byID[id]; ok {
		return a, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeApptRepo) List(_ context.Context, _ *model.AppointmentFilters) ([]*model.Appointment, error) {
	return nil, nil
}

func (f *fakeApptRepo) UpdateStatus(_ context.Context, _ uuid.UUID, _ model.AppointmentStatus) error {
	return nil
}

func (f *fakeApptRepo) ListUnpaidBefore(_ context.Context, _ time.Time, _ int) ([]*model.Appointment, error) {
	return nil, nil
}

func (f *fakeApptRepo) ReclaimUnpaid(_ context.Context, _ uuid.UUID) (bool, error) {
	return false, nil
}

type fakePatientRepo struct {
	byID   map[uuid.UUID]*model.Patient
	byUser map[uuid.UUID]*model.Patient
}

func (f *fakePatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	if p, ok := f.byID[id]; ok {
		return p, nil
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
	byID map[uuid.UUID]*model.Doctor
}

func (f *fakeDoctorRepo) Get(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	if d, ok := f.byID[id]; ok {
		return d, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeDoctorRepo) GetByUserID(_ context.Context, _ uuid.UUID) (*model.Doctor, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeDoctorRepo) List(_ context.Context, _ *model.DoctorFilters) ([]*model.Doctor, error) {
	return nil, nil
}

type fakeScheduleRepo struct {
	byID map[uuid.UUID]*model.Schedule
}

func (f *fakeScheduleRepo) CreateBatch(_ context.Context, _ []*model.Schedule) ([]*model.Schedule, error) {
	return nil, nil
}

func (f *fakeScheduleRepo) Get(_ context.Context, id uuid.UUID) (*model.Schedule, error) {
	if s, ok := f.byID[id]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeScheduleRepo) List(_ context.Context, _ *model.ScheduleFilters) ([]*model.Schedule, error) {
	return nil, nil
}

func (f *fakeScheduleRepo) ListAvailableForDoctor(_ context.Context, _ uuid.UUID, _ time.Time) ([]*model.Schedule, error) {
	return nil, nil
}

func (f *fakeScheduleRepo) Delete(_ context.Context, _ uuid.UUID) error {
	return nil
}

type fakeOutboxRepo struct {
	events []*model.OutboxEvent
}

func (f *fakeOutboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutboxRepo) ClaimPendingEvents(_ context.Context, _ int) ([]*model.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeOutboxRepo) UpdateStatus(_ context.Context, _ uuid.UUID, _ model.OutboxStatus, _ *string) error {
	return nil
}

func (f *fakeOutboxRepo) DeleteProcessedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type fixture struct {
	svc     *Service
	gateway *fakeGateway
	outbox  *fakeOutboxRepo
	payment *model.Payment
	appt    *model.Appointment
	userID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	userID := uuid.New()
	patient := &model.Patient{UserID: userID, Name: "Jamie", Email: "jamie@example.com"}
	patient.ID = uuid.New()

	doctor := &model.Doctor{Name: "Dr. Rahman", AppointmentFee: 1500}
	doctor.ID = uuid.New()

	schedule := &model.Schedule{
		StartDateTime: time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
		EndDateTime:   time.Date(2026, 9, 1, 9, 30, 0, 0, time.UTC),
	}
	schedule.ID = uuid.New()

	appt := &model.Appointment{
		PatientID:     patient.ID,
		DoctorID:      doctor.ID,
		ScheduleID:    schedule.ID,
		Status:        model.AppointmentStatusScheduled,
		PaymentStatus: model.PaymentStatusUnpaid,
	}
	appt.ID = uuid.New()

	payment := &model.Payment{
		AppointmentID: appt.ID,
		Amount:        1500,
		TransactionID: "TXN-test",
		Status:        model.PaymentStatusUnpaid,
	}
	payment.ID = uuid.New()

	gateway := &fakeGateway{}
	outbox := &fakeOutboxRepo{}

	svc := NewService(
		gateway,
		&fakePaymentRepo{byTranID: map[string]*model.Payment{payment.TransactionID: payment}},
		&fakeApptRepo{byID: map[uuid.UUID]*model.Appointment{appt.ID: appt}},
		&fakePatientRepo{
			byID:   map[uuid.UUID]*model.Patient{patient.ID: patient},
			byUser: map[uuid.UUID]*model.Patient{userID: patient},
		},
		&fakeDoctorRepo{byID: map[uuid.UUID]*model.Doctor{doctor.ID: doctor}},
		&fakeScheduleRepo{byID: map[uuid.UUID]*model.Schedule{schedule.ID: schedule}},
		outbox,
		config.GatewayConfig{
			SuccessURL: "http://localhost/success",
			FailURL:    "http://localhost/fail",
			CancelURL:  "http://localhost/cancel",
			IPNURL:     "http://localhost/ipn",
		},
		testLogger(),
		testMetrics,
	)

	return &fixture{
		svc:     svc,
		gateway: gateway,
		outbox:  outbox,
		payment: payment,
		appt:    appt,
		userID:  userID,
	}
}

func TestInitiateReturnsGatewayURL(t *testing.T) {
	fx := newFixture(t)
	fx.gateway.session = &paygate.SessionResponse{
		Status:         "SUCCESS",
		GatewayPageURL: "https://gateway.example.com/pay/abc",
	}

	resp, err := fx.svc.Initiate(context.Background(), fx.userID, fx.appt.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.example.com/pay/abc", resp.PaymentURL)

	require.NotNil(t, fx.gateway.sessionReq)
	assert.Equal(t, "TXN-test", fx.gateway.sessionReq.TransactionID)
	assert.Equal(t, "http://localhost/success", fx.gateway.sessionReq.SuccessURL)
	assert.Equal(t, "http://localhost/cancel", fx.gateway.sessionReq.CancelURL)
	assert.Equal(t, "http://localhost/ipn", fx.gateway.sessionReq.IPNURL)
}

func TestInitiateRejectsPaidAppointment(t *testing.T) {
	fx := newFixture(t)
	fx.appt.PaymentStatus = model.PaymentStatusPaid

	_, err := fx.svc.Initiate(context.Background(), fx.userID, fx.appt.ID)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
}

func TestInitiateRejectsForeignAppointment(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.Initiate(context.Background(), uuid.New(), fx.appt.ID)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrForbidden, appErr.Code)
}

func TestConfirmMarksPaymentPaidAndEnqueuesInvoice(t *testing.T) {
	fx := newFixture(t)
	fx.gateway.validation = &paygate.ValidationResponse{
		Status: paygate.StatusValid,
		TranID: fx.payment.TransactionID,
		ValID:  "val-1",
	}

	outcome, err := fx.svc.Confirm(context.Background(), &paygate.Callback{ValID: "val-1"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentOutcomePaid, outcome)
	assert.Equal(t, model.PaymentStatusPaid, fx.payment.Status)
	assert.NotEmpty(t, fx.payment.PaymentGatewayData)

	require.Len(t, fx.outbox.events, 1)
	assert.Equal(t, model.EventPaymentConfirmed, fx.outbox.events[0].EventType)

	var event model.PaymentConfirmedEvent
	require.NoError(t, json.Unmarshal(fx.outbox.events[0].Payload, &event))
	assert.Equal(t, "jamie@example.com", event.PatientEmail)
	assert.Equal(t, 1500.0, event.Amount)
}

func TestConfirmReplayIsIdempotent(t *testing.T) {
	fx := newFixture(t)
	fx.gateway.validation = &paygate.ValidationResponse{
		Status: paygate.StatusValidated,
		TranID: fx.payment.TransactionID,
		ValID:  "val-1",
	}

	first, err := fx.svc.Confirm(context.Background(), &paygate.Callback{ValID: "val-1"})
	require.NoError(t, err)
	require.Equal(t, model.PaymentOutcomePaid, first)

	second, err := fx.svc.Confirm(context.Background(), &paygate.Callback{ValID: "val-1"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentOutcomePaid, second)

	// The replay must not enqueue a second invoice.
	assert.Len(t, fx.outbox.events, 1)
}

func TestConfirmRejectsFailedValidation(t *testing.T) {
	fx := newFixture(t)
	fx.gateway.validation = &paygate.ValidationResponse{
		Status: "FAILED",
		TranID: fx.payment.TransactionID,
	}

	outcome, err := fx.svc.Confirm(context.Background(), &paygate.Callback{ValID: "val-1"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentOutcomeRejected, outcome)
	assert.Equal(t, model.PaymentStatusUnpaid, fx.payment.Status)
	assert.Empty(t, fx.outbox.events)
}

func TestConfirmWithoutValIDIsInvalid(t *testing.T) {
	fx := newFixture(t)

	outcome, err := fx.svc.Confirm(context.Background(), &paygate.Callback{})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentOutcomeInvalid, outcome)
	assert.Empty(t, fx.gateway.validateArgs)
}

func TestConfirmUnknownTransactionIsInvalid(t *testing.T) {
	fx := newFixture(t)
	fx.gateway.validation = &paygate.ValidationResponse{
		Status: paygate.StatusValid,
		TranID: "TXN-unknown",
	}

	outcome, err := fx.svc.Confirm(context.Background(), &paygate.Callback{ValID: "val-2"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentOutcomeInvalid, outcome)
}

func TestConfirmGatewayErrorSurfaces(t *testing.T) {
	fx := newFixture(t)
	fx.gateway.validateErr = errors.New("gateway down")

	_, err := fx.svc.Confirm(context.Background(), &paygate.Callback{ValID: "val-1"})
	require.Error(t, err)
}
