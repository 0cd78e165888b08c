package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"

	"github.com/innkeep/innkeep/pkg/config"
	"github.com/innkeep/innkeep/pkg/events"
	"github.com/innkeep/innkeep/pkg/logger"
	"github.com/innkeep/innkeep/services/billing/internal/domain"
	"github.com/innkeep/innkeep/services/billing/internal/repository"
)

type BillingService interface {
	GetFolio(ctx context.Context, tenantID, reservationID string) (*domain.Folio, error)
	Checkout(ctx context.Context, req *domain.CheckoutReq) (*domain.CheckoutResult, error)
	// HandleStripeEvent processes an already-verified webhook event. Unhandled
	// event types are acknowledged and ignored.
	HandleStripeEvent(ctx context.Context, event *stripe.Event) error
}

type billingService struct {
	folioRepo repository.FolioRepository
	eventBus  events.Publisher
	config    *config.Config
}

func NewBillingService(folioRepo repository.FolioRepository, eventBus events.Publisher, config *config.Config) BillingService {
	return &billingService{
		folioRepo: folioRepo,
		eventBus:  eventBus,
		config:    config,
	}
}

func (s *billingService) GetFolio(ctx context.Context, tenantID, reservationID string) (*domain.Folio, error) {
	folio, err := s.folioRepo.GetByReservation(ctx, tenantID, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load folio: %w", err)
	}
	if folio == nil {
		return nil, domain.ErrFolioNotFound
	}
	return folio, nil
}

func (s *billingService) Checkout(ctx context.Context, req *domain.CheckoutReq) (*domain.CheckoutResult, error) {
	result, err := s.folioRepo.Checkout(ctx, req.TenantID, req.ReservationID, s.config.Billing.BalanceToleranceCents)
	if err != nil {
		return nil, err
	}

	if !result.Success {
		logger.InfoContext(ctx, "Checkout refused",
			"reservation_id", req.ReservationID,
			"balance_cents", result.FinalBalance,
		)
		return result, nil
	}

	if result.FinalBalance < 0 {
		logger.WarnContext(ctx, "Checkout with credit balance",
			"reservation_id", req.ReservationID,
			"folio_id", result.FolioID,
			"credit_cents", -result.FinalBalance,
		)
	}

	event := events.CheckoutCompletedEvent{
		TenantID:      req.TenantID,
		ReservationID: req.ReservationID,
		FolioID:       result.FolioID,
		RoomID:        result.RoomID,
		FinalBalance:  result.FinalBalance,
		CompletedAt:   time.Now(),
	}
	if err := s.eventBus.Publish(ctx, events.CheckoutCompleted, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish checkout completed event", "error", err, "folio_id", result.FolioID)
	}

	logger.InfoContext(ctx, "Checkout completed",
		"reservation_id", req.ReservationID,
		"folio_id", result.FolioID,
		"room_id", result.RoomID,
		"final_balance_cents", result.FinalBalance,
	)
	return result, nil
}

func (s *billingService) HandleStripeEvent(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case "payment_intent.succeeded":
		return s.recordPaymentIntent(ctx, event)
	default:
		logger.DebugContext(ctx, "Ignoring stripe event", "type", event.Type, "event_id", event.ID)
		return nil
	}
}

func (s *billingService) recordPaymentIntent(ctx context.Context, event *stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return fmt.Errorf("failed to decode payment intent: %w", err)
	}

	folioID := intent.Metadata["folio_id"]
	if folioID == "" {
		logger.WarnContext(ctx, "Payment intent without folio metadata", "event_id", event.ID, "intent_id", intent.ID)
		return nil
	}

	// The stripe event id is the item id, so redelivery of the same event
	// appends nothing.
	item := &domain.FolioItem{
		ID:          event.ID,
		FolioID:     folioID,
		Kind:        domain.ItemPayment,
		AmountCents: intent.AmountReceived,
		Description: "Card payment " + intent.ID,
		CreatedAt:   time.Now(),
	}
	created, err := s.folioRepo.RecordPayment(ctx, item)
	if err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	if !created {
		logger.InfoContext(ctx, "Duplicate stripe event ignored", "event_id", event.ID, "folio_id", folioID)
		return nil
	}

	logger.InfoContext(ctx, "Payment recorded",
		"event_id", event.ID,
		"folio_id", folioID,
		"amount_cents", intent.AmountReceived,
	)
	return nil
}
