package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/innkeep/innkeep/pkg/money"
)

type FolioStatus string

const (
	FolioOpen   FolioStatus = "open"
	FolioClosed FolioStatus = "closed"
)

type ItemKind string

const (
	ItemCharge  ItemKind = "charge"
	ItemPayment ItemKind = "payment"
)

var (
	ErrFolioNotFound       = errors.New("folio not found")
	ErrReservationNotFound = errors.New("reservation not found")
)

// Folio is the running bill for one reservation. Balance is integer cents:
// charges minus payments.
type Folio struct {
	ID            string      `json:"folio_id"`
	TenantID      string      `json:"tenant_id"`
	ReservationID string      `json:"reservation_id"`
	Status        FolioStatus `json:"status"`
	Items         []FolioItem `json:"items,omitempty"`
	BalanceCents  int64       `json:"balance_cents"`
	CreatedAt     time.Time   `json:"created_at"`
}

type FolioItem struct {
	ID          string    `json:"item_id"`
	FolioID     string    `json:"folio_id"`
	Kind        ItemKind  `json:"kind"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type Reservation struct {
	ID        string `json:"reservation_id"`
	TenantID  string `json:"tenant_id"`
	RoomID    string `json:"room_id"`
	GuestName string `json:"guest_name"`
	Status    string `json:"status"`
}

// CheckoutResult is the single envelope for both outcomes: business refusals
// are results, not errors, so callers always get a message they can show.
type CheckoutResult struct {
	Success      bool   `json:"success"`
	FolioID      string `json:"folio_id,omitempty"`
	RoomID       string `json:"room_id,omitempty"`
	Message      string `json:"message"`
	FinalBalance int64  `json:"final_balance"`
}

type CheckoutReq struct {
	TenantID      string `json:"tenant_id"`
	ReservationID string `json:"reservation_id"`
}

// BalanceGate decides whether a balance permits checkout. Small positive
// residue within the tolerance is forgiven; credit balances (the hotel owes
// the guest) never block, the caller is expected to log them.
func BalanceGate(balanceCents, toleranceCents int64) (ok bool, message string) {
	if balanceCents > toleranceCents {
		return false, fmt.Sprintf("Outstanding balance of %s must be settled before checkout", money.FormatCents(balanceCents))
	}
	return true, ""
}
