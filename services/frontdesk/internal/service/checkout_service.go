package service

import (
	"context"
	"fmt"

	"github.com/innkeep/innkeep/pkg/config"
	"github.com/innkeep/innkeep/pkg/logger"
	"github.com/innkeep/innkeep/pkg/money"
	"github.com/innkeep/innkeep/services/frontdesk/internal/clients"
	"github.com/innkeep/innkeep/services/frontdesk/internal/domain"
	"github.com/innkeep/innkeep/services/frontdesk/internal/statecache"
)

type CheckoutService interface {
	// Checkout runs the console-side orchestration: balance pre-flight,
	// optimistic cache mutation, the billing call, then exactly one of commit
	// or rollback depending on how the call went.
	Checkout(ctx context.Context, staffToken, tenantID, reservationID string) (*domain.CheckoutOutcome, error)
}

type checkoutService struct {
	billing clients.BillingAPI
	cache   *statecache.Cache
	config  *config.Config
}

func NewCheckoutService(billing clients.BillingAPI, cache *statecache.Cache, config *config.Config) CheckoutService {
	return &checkoutService{
		billing: billing,
		cache:   cache,
		config:  config,
	}
}

func reservationKey(id string) string { return "reservation:" + id }
func roomKey(id string) string        { return "room:" + id }
func folioKey(id string) string       { return "folio:" + id }

func (s *checkoutService) Checkout(ctx context.Context, staffToken, tenantID, reservationID string) (*domain.CheckoutOutcome, error) {
	// Pre-flight: read the folio and refuse locally before mutating anything.
	// The billing transaction re-checks under lock, this check just spares the
	// console a doomed round trip and gives the exact amount up front.
	folio, err := s.billing.GetFolio(ctx, staffToken, reservationID)
	if err != nil {
		return nil, fmt.Errorf("balance pre-flight failed: %w", err)
	}

	tolerance := s.config.Billing.BalanceToleranceCents
	if folio.BalanceCents > tolerance {
		return &domain.CheckoutOutcome{
			Success:      false,
			FolioID:      folio.FolioID,
			Message:      fmt.Sprintf("Outstanding balance of %s must be settled before checkout", money.FormatCents(folio.BalanceCents)),
			FinalBalance: folio.BalanceCents,
		}, nil
	}
	if folio.BalanceCents < 0 {
		logger.WarnContext(ctx, "Checking out with credit balance",
			"reservation_id", reservationID,
			"credit_cents", -folio.BalanceCents,
		)
	}

	// Optimistic apply: flip the cached reservation and room ahead of the
	// remote call so the console repaints instantly.
	var reservation domain.ReservationView
	hasReservation := s.cache.Get(reservationKey(reservationID), &reservation) == nil

	keys := []string{reservationKey(reservationID)}
	if hasReservation && reservation.RoomID != "" {
		keys = append(keys, roomKey(reservation.RoomID))
	}
	op := s.cache.Begin(keys...)

	if hasReservation {
		updated := reservation
		updated.Status = "checked_out"
		if err := s.cache.Apply(op, reservationKey(reservationID), updated); err != nil {
			return nil, fmt.Errorf("failed to apply optimistic reservation: %w", err)
		}
		if reservation.RoomID != "" {
			var room domain.RoomView
			if s.cache.Get(roomKey(reservation.RoomID), &room) == nil {
				room.Status = "needs_cleaning"
				if err := s.cache.Apply(op, roomKey(reservation.RoomID), room); err != nil {
					return nil, fmt.Errorf("failed to apply optimistic room: %w", err)
				}
			}
		}
	}

	result, err := s.billing.Checkout(ctx, staffToken, tenantID, reservationID)
	if err != nil {
		// Transport failure: the truth is unknown, so the optimistic state
		// must go.
		if rbErr := s.cache.Rollback(op); rbErr != nil {
			logger.ErrorContext(ctx, "Rollback failed", "error", rbErr, "reservation_id", reservationID)
		}
		return nil, err
	}

	if !result.Success {
		// Decided refusal: same rollback, but the billing message is the
		// answer, not an error.
		if rbErr := s.cache.Rollback(op); rbErr != nil {
			logger.ErrorContext(ctx, "Rollback failed", "error", rbErr, "reservation_id", reservationID)
		}
		logger.InfoContext(ctx, "Checkout refused by billing",
			"reservation_id", reservationID,
			"message", result.Message,
		)
		return result, nil
	}

	if err := s.cache.Commit(op); err != nil {
		logger.ErrorContext(ctx, "Commit failed", "error", err, "reservation_id", reservationID)
	}
	// Dependent reads are stale now; drop them and pin the room to the state
	// billing decided.
	s.cache.Invalidate(folioKey(reservationID))
	if result.RoomID != "" {
		var room domain.RoomView
		if s.cache.Get(roomKey(result.RoomID), &room) != nil {
			room = domain.RoomView{ID: result.RoomID}
		}
		room.Status = "needs_cleaning"
		if err := s.cache.Put(roomKey(result.RoomID), room); err != nil {
			logger.ErrorContext(ctx, "Failed to pin room state", "error", err, "room_id", result.RoomID)
		}
	}

	logger.InfoContext(ctx, "Checkout committed",
		"reservation_id", reservationID,
		"folio_id", result.FolioID,
		"room_id", result.RoomID,
	)
	return result, nil
}
