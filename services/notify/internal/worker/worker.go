package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/innkeep/innkeep/pkg/events"
	"github.com/innkeep/innkeep/pkg/logger"
	"github.com/innkeep/innkeep/services/notify/internal/mailer"
	"github.com/innkeep/innkeep/services/notify/internal/sms"
)

// queueGroup makes delivery load-balanced across notify replicas instead of
// fanned out.
const queueGroup = "notify-workers"

// Worker consumes notify.send and dispatches by channel. Delivery is
// best-effort: failures are logged and the message is dropped, never retried.
type Worker struct {
	bus    events.Subscriber
	mailer mailer.Mailer
	sms    sms.Sender
	sub    events.Subscription
}

func New(bus events.Subscriber, m mailer.Mailer, s sms.Sender) *Worker {
	return &Worker{bus: bus, mailer: m, sms: s}
}

func (w *Worker) Start(ctx context.Context) error {
	sub, err := w.bus.QueueSubscribe(events.NotifySend, queueGroup, func(msg *events.Message) {
		w.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.NotifySend, err)
	}
	w.sub = sub

	logger.Info("Notification worker started", "subject", events.NotifySend, "queue", queueGroup)
	return nil
}

func (w *Worker) Stop() {
	if w.sub != nil {
		_ = w.sub.Unsubscribe()
	}
}

func (w *Worker) handle(ctx context.Context, msg *events.Message) {
	var ev events.NotificationEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("Bad notification payload", "error", err)
		return
	}
	if ev.Recipient == "" || ev.Body == "" {
		logger.Warn("Notification missing recipient or body", "channel", ev.Channel, "template", ev.Template)
		return
	}

	switch ev.Channel {
	case "sms":
		if err := w.sms.Send(ctx, ev.Recipient, ev.Body); err != nil {
			logger.Error("SMS delivery failed", "error", err, "template", ev.Template)
			return
		}
	case "email":
		subject := ev.Subject
		if subject == "" {
			subject = defaultSubject(ev.Template)
		}
		name, _ := ev.Data["guest_name"].(string)
		if err := w.mailer.Send(ctx, ev.Recipient, name, subject, ev.Body, ""); err != nil {
			logger.Error("Email delivery failed", "error", err, "template", ev.Template)
			return
		}
	default:
		logger.Warn("Unknown notification channel", "channel", ev.Channel)
		return
	}

	logger.Info("Notification delivered", "channel", ev.Channel, "template", ev.Template)
}

func defaultSubject(template string) string {
	switch template {
	case "request_received":
		return "We've received your request"
	case "request_completed":
		return "Your request is complete"
	case "checkout_receipt":
		return "Your checkout receipt"
	default:
		return "A note from your hotel"
	}
}
