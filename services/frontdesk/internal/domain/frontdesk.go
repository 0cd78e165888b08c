package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrReservationUnknown = errors.New("reservation not in view")
	ErrTransport          = errors.New("upstream call failed")
)

// ReservationView is the console's working copy of one reservation.
type ReservationView struct {
	ID        string `json:"reservation_id"`
	TenantID  string `json:"tenant_id"`
	RoomID    string `json:"room_id"`
	GuestName string `json:"guest_name"`
	Status    string `json:"status"` // checked_in | checked_out
}

type RoomView struct {
	ID     string `json:"room_id"`
	Number string `json:"number"`
	Status string `json:"status"` // occupied | needs_cleaning | available
}

type RequestView struct {
	ID             string     `json:"request_id"`
	TrackingNumber string     `json:"tracking_number"`
	RoomNumber     string     `json:"room_number"`
	Summary        string     `json:"summary"`
	Priority       string     `json:"priority"`
	Status         string     `json:"status"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Terminal mirrors the portal's status machine: completed and cancelled stop
// the projector's per-request polling.
func (v RequestView) Terminal() bool {
	return v.Status == "completed" || v.Status == "cancelled"
}

// CheckoutOutcome is what the console surfaces after the orchestration: the
// billing result on a decided call, or a transport failure the staff member
// should retry.
type CheckoutOutcome struct {
	Success      bool   `json:"success"`
	FolioID      string `json:"folio_id,omitempty"`
	RoomID       string `json:"room_id,omitempty"`
	Message      string `json:"message"`
	FinalBalance int64  `json:"final_balance"`
}

type StaffUser struct {
	ID           string    `json:"user_id"`
	TenantID     string    `json:"tenant_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"` // staff | admin
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type LoginReq struct {
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRes struct {
	Token string     `json:"token"`
	User  *StaffUser `json:"user"`
}

type CreateUserReq struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

type UpdateUserReq struct {
	Name     *string `json:"name,omitempty"`
	Role     *string `json:"role,omitempty"`
	Password *string `json:"password,omitempty"`
}
