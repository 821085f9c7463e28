package notification

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/jwalitptl/telehealth-api/internal/email"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
)

var invoiceTmpl = template.Must(template.New("invoice").Parse(`
<html>
<body>
	<h2>Payment received</h2>
	<p>Dear {{.PatientName}},</p>
	<p>We have received your payment for the appointment with {{.DoctorName}}
	on {{.AppointmentTime.Format "Mon, 02 Jan 2006 15:04"}}.</p>
	<table>
		<tr><td>Transaction</td><td>{{.TransactionID}}</td></tr>
		<tr><td>Amount</td><td>{{printf "%.2f" .Amount}} BDT</td></tr>
	</table>
	<p>Your appointment is confirmed. You will find the video call link on
	your appointments page.</p>
</body>
</html>
`))

// Service turns payment confirmations into invoice emails.
type Service struct {
	sender email.Sender
	logger *logger.Logger
}

func NewService(sender email.Sender, logger *logger.Logger) *Service {
	return &Service{sender: sender, logger: logger}
}

func (s *Service) SendInvoice(ctx context.Context, event *model.PaymentConfirmedEvent) error {
	var body bytes.Buffer
	if err := invoiceTmpl.Execute(&body, event); err != nil {
		return fmt.Errorf("failed to render invoice: %w", err)
	}

	subject := fmt.Sprintf("Payment confirmation for your appointment with %s", event.DoctorName)
	if err := s.sender.Send(ctx, event.PatientEmail, subject, body.String()); err != nil {
		return fmt.Errorf("failed to send invoice: %w", err)
	}

	s.logger.Info("invoice sent",
		"appointment_id", event.AppointmentID.String(),
		"recipient", event.PatientEmail)
	return nil
}
