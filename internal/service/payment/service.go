package payment

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/config"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
	"github.com/jwalitptl/telehealth-api/pkg/paygate"
)

const currency = "BDT"

type Service struct {
	gateway      paygate.Gateway
	paymentRepo  repository.PaymentRepository
	apptRepo     repository.AppointmentRepository
	patientRepo  repository.PatientRepository
	doctorRepo   repository.DoctorRepository
	scheduleRepo repository.ScheduleRepository
	outboxRepo   repository.OutboxRepository
	cfg          config.GatewayConfig
	logger       *logger.Logger
	metrics      *metrics.Metrics
}

func NewService(
	gateway paygate.Gateway,
	paymentRepo repository.PaymentRepository,
	apptRepo repository.AppointmentRepository,
	patientRepo repository.PatientRepository,
	doctorRepo repository.DoctorRepository,
	scheduleRepo repository.ScheduleRepository,
	outboxRepo repository.OutboxRepository,
	cfg config.GatewayConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		gateway:      gateway,
		paymentRepo:  paymentRepo,
		apptRepo:     apptRepo,
		patientRepo:  patientRepo,
		doctorRepo:   doctorRepo,
		scheduleRepo: scheduleRepo,
		outboxRepo:   outboxRepo,
		cfg:          cfg,
		logger:       logger,
		metrics:      metrics,
	}
}

// Initiate opens a gateway checkout session for an unpaid appointment and
// returns the hosted payment page URL. The session is keyed by the payment's
// transaction id, created at booking time.
func (s *Service) Initiate(ctx context.Context, userID, appointmentID uuid.UUID) (*model.InitiatePaymentResponse, error) {
	patient, err := s.patientRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Forbidden("user is not a patient", err)
		}
		return nil, apperrors.Internal(err)
	}

	appt, err := s.apptRepo.Get(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(err)
	}
	if appt.PatientID != patient.ID {
		return nil, apperrors.Forbidden("appointment belongs to another patient", nil)
	}
	if appt.PaymentStatus == model.PaymentStatusPaid {
		return nil, apperrors.Conflict("appointment is already paid", nil)
	}

	payment, err := s.paymentRepo.GetByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	doctor, err := s.doctorRepo.Get(ctx, appt.DoctorID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	start := time.Now()
	session, err := s.gateway.InitiateSession(ctx, &paygate.SessionRequest{
		TotalAmount:     payment.Amount,
		Currency:        currency,
		TransactionID:   payment.TransactionID,
		SuccessURL:      s.cfg.SuccessURL,
		FailURL:         s.cfg.FailURL,
		CancelURL:       s.cfg.CancelURL,
		IPNURL:          s.cfg.IPNURL,
		ProductName:     "Appointment with " + doctor.Name,
		CustomerName:    patient.Name,
		CustomerEmail:   patient.Email,
		CustomerAddress: patient.Address,
		CustomerPhone:   patient.ContactNumber,
	})
	s.metrics.GatewayLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.GatewayCalls.WithLabelValues("initiate", "error").Inc()
		return nil, apperrors.Internal(err)
	}
	s.metrics.GatewayCalls.WithLabelValues("initiate", "ok").Inc()

	return &model.InitiatePaymentResponse{PaymentURL: session.GatewayPageURL}, nil
}

// Confirm settles a gateway callback. The callback itself proves nothing;
// the verdict comes from the gateway's validation endpoint, keyed by val_id.
// Replayed callbacks for an already-paid transaction are a no-op success.
func (s *Service) Confirm(ctx context.Context, cb *paygate.Callback) (model.PaymentOutcome, error) {
	if cb.ValID == "" {
		s.metrics.PaymentsRejected.Inc()
		return model.PaymentOutcomeInvalid, nil
	}

	start := time.Now()
	verdict, err := s.gateway.ValidateTransaction(ctx, cb.ValID)
	s.metrics.GatewayLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.GatewayCalls.WithLabelValues("validate", "error").Inc()
		return "", apperrors.Internal(err)
	}
	s.metrics.GatewayCalls.WithLabelValues("validate", "ok").Inc()

	if !verdict.Success() {
		s.metrics.PaymentsRejected.Inc()
		s.logger.Warn("gateway rejected transaction",
			"tran_id", verdict.TranID, "status", verdict.Status)
		return model.PaymentOutcomeRejected, nil
	}

	payment, err := s.paymentRepo.ConfirmByTransactionID(ctx, verdict.TranID, verdict.Raw())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyPaid):
			// Replay of a settled transaction.
			return model.PaymentOutcomePaid, nil
		case errors.Is(err, repository.ErrNotFound):
			s.metrics.PaymentsRejected.Inc()
			s.logger.Warn("gateway validated unknown transaction", "tran_id", verdict.TranID)
			return model.PaymentOutcomeInvalid, nil
		default:
			return "", apperrors.Internal(err)
		}
	}

	s.metrics.PaymentsConfirmed.Inc()
	s.enqueueInvoice(ctx, payment)
	return model.PaymentOutcomePaid, nil
}

// enqueueInvoice writes the confirmation event to the outbox. The payment is
// already committed, so a failure here only costs the email, never the
// payment; it is logged and swallowed.
func (s *Service) enqueueInvoice(ctx context.Context, payment *model.Payment) {
	event, err := s.buildInvoiceEvent(ctx, payment)
	if err != nil {
		s.logger.Error(err, "failed to build invoice event",
			"appointment_id", payment.AppointmentID.String())
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error(err, "failed to marshal invoice event")
		return
	}

	if err := s.outboxRepo.Create(ctx, &model.OutboxEvent{
		EventType: model.EventPaymentConfirmed,
		Payload:   payload,
	}); err != nil {
		s.logger.Error(err, "failed to enqueue invoice event",
			"appointment_id", payment.AppointmentID.String())
	}
}

func (s *Service) buildInvoiceEvent(ctx context.Context, payment *model.Payment) (*model.PaymentConfirmedEvent, error) {
	appt, err := s.apptRepo.Get(ctx, payment.AppointmentID)
	if err != nil {
		return nil, err
	}
	patient, err := s.patientRepo.Get(ctx, appt.PatientID)
	if err != nil {
		return nil, err
	}
	doctor, err := s.doctorRepo.Get(ctx, appt.DoctorID)
	if err != nil {
		return nil, err
	}
	schedule, err := s.scheduleRepo.Get(ctx, appt.ScheduleID)
	if err != nil {
		return nil, err
	}

	return &model.PaymentConfirmedEvent{
		AppointmentID:   appt.ID,
		TransactionID:   payment.TransactionID,
		Amount:          payment.Amount,
		PatientName:     patient.Name,
		PatientEmail:    patient.Email,
		DoctorName:      doctor.Name,
		AppointmentTime: schedule.StartDateTime,
	}, nil
}
