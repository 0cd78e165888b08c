package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/innkeep/innkeep/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) (Subscription, error)
	QueueSubscribe(subject, queue string, handler func(msg *Message)) (Subscription, error)
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

// Subscription lets consumers drop a feed on view teardown.
type Subscription interface {
	Unsubscribe() error
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) (Subscription, error) {
	return n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) (Subscription, error) {
	return n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Subjects
const (
	// Guest request lifecycle
	RequestCreated       = "request.created"
	RequestStatusChanged = "request.status_changed"

	// Checkout
	CheckoutCompleted = "checkout.completed"

	// Notifications
	NotifySend = "notify.send"
)

// Event payloads
type RequestCreatedEvent struct {
	RequestID      string    `json:"request_id"`
	SessionID      string    `json:"session_id"`
	TenantID       string    `json:"tenant_id"`
	TrackingNumber string    `json:"tracking_number"`
	RequestType    string    `json:"request_type"`
	Priority       string    `json:"priority"`
	RoomNumber     string    `json:"room_number"`
	Summary        string    `json:"summary"`
	CreatedAt      time.Time `json:"created_at"`
}

type RequestStatusChangedEvent struct {
	RequestID   string     `json:"request_id"`
	SessionID   string     `json:"session_id"`
	TenantID    string     `json:"tenant_id"`
	OldStatus   string     `json:"old_status"`
	NewStatus   string     `json:"new_status"`
	Notes       string     `json:"notes,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ChangedAt   time.Time  `json:"changed_at"`
}

type CheckoutCompletedEvent struct {
	TenantID      string    `json:"tenant_id"`
	ReservationID string    `json:"reservation_id"`
	FolioID       string    `json:"folio_id"`
	RoomID        string    `json:"room_id"`
	FinalBalance  int64     `json:"final_balance_cents"`
	CompletedAt   time.Time `json:"completed_at"`
}

type NotificationEvent struct {
	Channel   string                 `json:"channel"` // sms or email
	Recipient string                 `json:"recipient"`
	Subject   string                 `json:"subject,omitempty"`
	Body      string                 `json:"body"`
	Template  string                 `json:"template,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}
