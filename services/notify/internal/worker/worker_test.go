package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/innkeep/innkeep/pkg/events"
)

// ---------- Fakes ----------

type fakeSub struct{ unsubscribed *bool }

func (s *fakeSub) Unsubscribe() error {
	*s.unsubscribed = true
	return nil
}

type fakeBus struct {
	handler      func(*events.Message)
	unsubscribed bool
}

func (b *fakeBus) Subscribe(_ string, handler func(msg *events.Message)) (events.Subscription, error) {
	b.handler = handler
	return &fakeSub{unsubscribed: &b.unsubscribed}, nil
}

func (b *fakeBus) QueueSubscribe(_, _ string, handler func(msg *events.Message)) (events.Subscription, error) {
	b.handler = handler
	return &fakeSub{unsubscribed: &b.unsubscribed}, nil
}

func (b *fakeBus) Close() error { return nil }

func (b *fakeBus) deliver(t *testing.T, ev events.NotificationEvent) {
	t.Helper()
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b.handler(&events.Message{Subject: events.NotifySend, Data: data, Timestamp: time.Now()})
}

type sentMail struct{ to, subject, body string }

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, toEmail, _, subject, text, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: toEmail, subject: subject, body: text})
	return nil
}

type sentSMS struct{ to, body string }

type fakeSMS struct {
	sent []sentSMS
	err  error
}

func (s *fakeSMS) Send(_ context.Context, to, body string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentSMS{to: to, body: body})
	return nil
}

// ---------- Helpers ----------

func startWorker(t *testing.T) (*fakeBus, *fakeMailer, *fakeSMS, *Worker) {
	t.Helper()
	bus := &fakeBus{}
	m := &fakeMailer{}
	s := &fakeSMS{}
	w := New(bus, m, s)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return bus, m, s, w
}

// ---------- Tests ----------

func TestSMSDispatch(t *testing.T) {
	bus, m, s, _ := startWorker(t)

	bus.deliver(t, events.NotificationEvent{
		Channel: "sms", Recipient: "+15551234567", Body: "Your request SR-1A2B3C4D has been received.",
	})

	if len(s.sent) != 1 {
		t.Fatalf("expected one sms, got %d", len(s.sent))
	}
	if s.sent[0].to != "+15551234567" {
		t.Errorf("to = %q", s.sent[0].to)
	}
	if len(m.sent) != 0 {
		t.Error("no email expected")
	}
}

func TestEmailDispatchWithDefaultSubject(t *testing.T) {
	bus, m, _, _ := startWorker(t)

	bus.deliver(t, events.NotificationEvent{
		Channel: "email", Recipient: "guest@example.com", Body: "Thanks for staying with us.",
		Template: "checkout_receipt",
	})

	if len(m.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(m.sent))
	}
	if m.sent[0].subject != "Your checkout receipt" {
		t.Errorf("subject = %q", m.sent[0].subject)
	}
}

func TestMissingRecipientDropped(t *testing.T) {
	bus, m, s, _ := startWorker(t)

	bus.deliver(t, events.NotificationEvent{Channel: "sms", Body: "orphan"})
	bus.deliver(t, events.NotificationEvent{Channel: "email", Recipient: "guest@example.com"})

	if len(s.sent) != 0 || len(m.sent) != 0 {
		t.Error("incomplete notifications must be dropped, not delivered")
	}
}

func TestUnknownChannelIgnored(t *testing.T) {
	bus, m, s, _ := startWorker(t)

	bus.deliver(t, events.NotificationEvent{Channel: "pigeon", Recipient: "roof", Body: "coo"})

	if len(s.sent) != 0 || len(m.sent) != 0 {
		t.Error("unknown channel must not be delivered anywhere")
	}
}

func TestDeliveryFailureDoesNotPanic(t *testing.T) {
	bus := &fakeBus{}
	m := &fakeMailer{err: errors.New("smtp down")}
	s := &fakeSMS{err: errors.New("gateway down")}
	w := New(bus, m, s)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	bus.deliver(t, events.NotificationEvent{Channel: "sms", Recipient: "+15551234567", Body: "hi"})
	bus.deliver(t, events.NotificationEvent{Channel: "email", Recipient: "guest@example.com", Body: "hi"})
}

func TestStopUnsubscribes(t *testing.T) {
	bus, _, _, w := startWorker(t)

	w.Stop()
	if !bus.unsubscribed {
		t.Error("stop must unsubscribe the consumer")
	}
}
