package worker

import (
	"context"
	"encoding/json"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/service/notification"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
	"github.com/jwalitptl/telehealth-api/pkg/messaging"
)

// Notifier consumes payment confirmation events off the broker and hands
// them to the notification service. Delivery is best effort; a failed email
// is logged and the event dropped.
type Notifier struct {
	broker messaging.Broker
	svc    *notification.Service
	logger *logger.Logger
}

func NewNotifier(broker messaging.Broker, svc *notification.Service, logger *logger.Logger) *Notifier {
	return &Notifier{broker: broker, svc: svc, logger: logger}
}

func (n *Notifier) Start(ctx context.Context) error {
	messages, err := n.broker.Subscribe(ctx, model.EventPaymentConfirmed)
	if err != nil {
		return err
	}

	n.logger.Info("starting payment notifier")

	go func() {
		for msg := range messages {
			var event model.PaymentConfirmedEvent
			if err := json.Unmarshal(msg, &event); err != nil {
				n.logger.Error(err, "failed to decode payment event")
				continue
			}
			if err := n.svc.SendInvoice(ctx, &event); err != nil {
				n.logger.Error(err, "failed to send invoice",
					"appointment_id", event.AppointmentID.String())
			}
		}
	}()

	return nil
}
