package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stripe/stripe-go/v76"

	"github.com/innkeep/innkeep/pkg/config"
	"github.com/innkeep/innkeep/pkg/events"
	"github.com/innkeep/innkeep/services/billing/internal/domain"
)

// ---------- Mocks ----------

type mockFolio struct {
	folio  *domain.Folio
	roomID string
	closed bool
}

type mockFolioRepo struct {
	byReservation map[string]*mockFolio
	payments      map[string]*domain.FolioItem
	checkoutErr   error
}

func newMockFolioRepo() *mockFolioRepo {
	return &mockFolioRepo{
		byReservation: make(map[string]*mockFolio),
		payments:      make(map[string]*domain.FolioItem),
	}
}

func (m *mockFolioRepo) GetByReservation(_ context.Context, _, reservationID string) (*domain.Folio, error) {
	entry, ok := m.byReservation[reservationID]
	if !ok {
		return nil, nil
	}
	return entry.folio, nil
}

func (m *mockFolioRepo) Checkout(_ context.Context, _, reservationID string, toleranceCents int64) (*domain.CheckoutResult, error) {
	if m.checkoutErr != nil {
		return nil, m.checkoutErr
	}
	entry, ok := m.byReservation[reservationID]
	if !ok {
		return nil, domain.ErrFolioNotFound
	}
	if entry.closed {
		return &domain.CheckoutResult{
			Success: false,
			FolioID: entry.folio.ID,
			RoomID:  entry.roomID,
			Message: "This reservation has already been checked out",
		}, nil
	}
	if ok, msg := domain.BalanceGate(entry.folio.BalanceCents, toleranceCents); !ok {
		return &domain.CheckoutResult{
			Success:      false,
			FolioID:      entry.folio.ID,
			RoomID:       entry.roomID,
			Message:      msg,
			FinalBalance: entry.folio.BalanceCents,
		}, nil
	}
	entry.closed = true
	return &domain.CheckoutResult{
		Success:      true,
		FolioID:      entry.folio.ID,
		RoomID:       entry.roomID,
		Message:      "Checkout complete",
		FinalBalance: entry.folio.BalanceCents,
	}, nil
}

func (m *mockFolioRepo) RecordPayment(_ context.Context, item *domain.FolioItem) (bool, error) {
	if _, exists := m.payments[item.ID]; exists {
		return false, nil
	}
	copied := *item
	m.payments[item.ID] = &copied
	return true, nil
}

type publishedEvent struct {
	subject string
	data    interface{}
}

type mockEventBus struct {
	published []publishedEvent
}

func (m *mockEventBus) Publish(_ context.Context, subject string, data interface{}) error {
	m.published = append(m.published, publishedEvent{subject: subject, data: data})
	return nil
}

func (m *mockEventBus) Close() error { return nil }

// ---------- Helpers ----------

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Billing.BalanceToleranceCents = 1
	return cfg
}

func seedFolio(repo *mockFolioRepo, reservationID string, balanceCents int64) {
	repo.byReservation[reservationID] = &mockFolio{
		folio: &domain.Folio{
			ID:            "folio-" + reservationID,
			TenantID:      "tenant-1",
			ReservationID: reservationID,
			Status:        domain.FolioOpen,
			BalanceCents:  balanceCents,
		},
		roomID: "room-" + reservationID,
	}
}

func paymentIntentEvent(eventID, folioID string, amountCents int64) *stripe.Event {
	raw, _ := json.Marshal(map[string]interface{}{
		"id":              "pi_123",
		"amount_received": amountCents,
		"metadata":        map[string]string{"folio_id": folioID},
	})
	return &stripe.Event{
		ID:   eventID,
		Type: "payment_intent.succeeded",
		Data: &stripe.EventData{Raw: raw},
	}
}

// ---------- Tests ----------

func TestCheckoutSettledBalance(t *testing.T) {
	repo := newMockFolioRepo()
	seedFolio(repo, "res-1", 0)
	bus := &mockEventBus{}
	svc := NewBillingService(repo, bus, testConfig())

	result, err := svc.Checkout(context.Background(), &domain.CheckoutReq{TenantID: "tenant-1", ReservationID: "res-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("settled folio should check out, got %+v", result)
	}
	if result.RoomID != "room-res-1" || result.FolioID != "folio-res-1" {
		t.Errorf("result should name folio and room: %+v", result)
	}
	if len(bus.published) != 1 || bus.published[0].subject != events.CheckoutCompleted {
		t.Errorf("expected one checkout.completed event, got %+v", bus.published)
	}
}

func TestCheckoutToleranceAndCredit(t *testing.T) {
	for _, balance := range []int64{0, 1, -500} {
		repo := newMockFolioRepo()
		seedFolio(repo, "res-1", balance)
		svc := NewBillingService(repo, &mockEventBus{}, testConfig())

		result, err := svc.Checkout(context.Background(), &domain.CheckoutReq{TenantID: "tenant-1", ReservationID: "res-1"})
		if err != nil {
			t.Fatalf("balance %d: unexpected error: %v", balance, err)
		}
		if !result.Success {
			t.Errorf("balance %d should be permitted, got %q", balance, result.Message)
		}
	}
}

func TestCheckoutOutstandingBalanceRefused(t *testing.T) {
	repo := newMockFolioRepo()
	seedFolio(repo, "res-1", 15050)
	bus := &mockEventBus{}
	svc := NewBillingService(repo, bus, testConfig())

	result, err := svc.Checkout(context.Background(), &domain.CheckoutReq{TenantID: "tenant-1", ReservationID: "res-1"})
	if err != nil {
		t.Fatalf("refusal is a result, not an error: %v", err)
	}
	if result.Success {
		t.Fatal("outstanding balance must block checkout")
	}
	if !strings.Contains(result.Message, "$150.50") {
		t.Errorf("refusal should name the exact amount, got %q", result.Message)
	}
	if len(bus.published) != 0 {
		t.Errorf("no event should be published for a refused checkout")
	}
	if repo.byReservation["res-1"].closed {
		t.Error("refused checkout must not close the folio")
	}
}

func TestCheckoutAlreadyCheckedOut(t *testing.T) {
	repo := newMockFolioRepo()
	seedFolio(repo, "res-1", 0)
	repo.byReservation["res-1"].closed = true
	svc := NewBillingService(repo, &mockEventBus{}, testConfig())

	result, err := svc.Checkout(context.Background(), &domain.CheckoutReq{TenantID: "tenant-1", ReservationID: "res-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Error("closed folio should not check out twice")
	}
	if !strings.Contains(result.Message, "already been checked out") {
		t.Errorf("got %q", result.Message)
	}
}

func TestCheckoutUnknownReservation(t *testing.T) {
	svc := NewBillingService(newMockFolioRepo(), &mockEventBus{}, testConfig())

	if _, err := svc.Checkout(context.Background(), &domain.CheckoutReq{TenantID: "tenant-1", ReservationID: "missing"}); !errors.Is(err, domain.ErrFolioNotFound) {
		t.Errorf("got %v, want ErrFolioNotFound", err)
	}
}

func TestStripePaymentRecorded(t *testing.T) {
	repo := newMockFolioRepo()
	svc := NewBillingService(repo, &mockEventBus{}, testConfig())

	if err := svc.HandleStripeEvent(context.Background(), paymentIntentEvent("evt_1", "folio-1", 5000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	item, ok := repo.payments["evt_1"]
	if !ok {
		t.Fatal("payment not recorded")
	}
	if item.Kind != domain.ItemPayment || item.AmountCents != 5000 || item.FolioID != "folio-1" {
		t.Errorf("unexpected payment item: %+v", item)
	}
}

func TestStripeEventReplayAppendsOnce(t *testing.T) {
	repo := newMockFolioRepo()
	svc := NewBillingService(repo, &mockEventBus{}, testConfig())

	for i := 0; i < 3; i++ {
		if err := svc.HandleStripeEvent(context.Background(), paymentIntentEvent("evt_1", "folio-1", 5000)); err != nil {
			t.Fatalf("delivery %d: unexpected error: %v", i, err)
		}
	}

	if len(repo.payments) != 1 {
		t.Errorf("replayed event should append exactly one payment, got %d", len(repo.payments))
	}
}

func TestStripeUnhandledEventIgnored(t *testing.T) {
	repo := newMockFolioRepo()
	svc := NewBillingService(repo, &mockEventBus{}, testConfig())

	event := &stripe.Event{ID: "evt_2", Type: "customer.created", Data: &stripe.EventData{Raw: []byte(`{}`)}}
	if err := svc.HandleStripeEvent(context.Background(), event); err != nil {
		t.Fatalf("unhandled events should be acked: %v", err)
	}
	if len(repo.payments) != 0 {
		t.Errorf("no payment should be recorded")
	}
}
