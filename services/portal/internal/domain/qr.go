package domain

import (
	"errors"
	"time"
)

// Validation failure taxonomy. Every variant maps to a distinct guest-facing
// message; a guest holding a phone at a door needs to know whether to retry,
// rescan or walk to the front desk.
var (
	ErrInvalidTokenFormat = errors.New("invalid token format")
	ErrTokenNotFound      = errors.New("qr code not found")
	ErrTokenDeactivated   = errors.New("qr code deactivated")
	ErrTokenExpired       = errors.New("qr code expired")
	ErrRateLimited        = errors.New("rate limited")
	ErrShortlinkNotFound  = errors.New("shortlink not found")
)

type QRCode struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	Token      string     `json:"token"`
	HotelName  string     `json:"hotel_name"`
	RoomNumber string     `json:"room_number"`
	Services   []string   `json:"services"`
	Active     bool       `json:"active"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Expired reports whether the code itself (not a session) has lapsed.
func (q *QRCode) Expired(now time.Time) bool {
	return q.ExpiresAt != nil && now.After(*q.ExpiresAt)
}

// GuestSession is one scanned-QR-to-portal-access grant. Rows are never
// mutated after insert; a session ends by expiring or by the guest discarding
// the credential.
type GuestSession struct {
	ID         string    `json:"session_id"`
	TenantID   string    `json:"tenant_id"`
	QRCodeID   string    `json:"qr_code_id"`
	HotelName  string    `json:"hotel_name"`
	RoomNumber string    `json:"room_number"`
	Services   []string  `json:"services"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// SessionGrant is what validation returns: the session row plus the signed
// credential whose encoded expiry equals the session's.
type SessionGrant struct {
	Session *GuestSession `json:"session"`
	Token   string        `json:"token"`
}

type ScanType string

const (
	ScanValidated      ScanType = "validated"
	ScanDeniedInactive ScanType = "denied_inactive"
	ScanDeniedExpired  ScanType = "denied_expired"
	ScanRateLimited    ScanType = "rate_limited"
)

// ScanLog is an append-only audit record, written on success and on the
// failure paths where the QR code is known, to support abuse monitoring.
type ScanLog struct {
	ID        string    `json:"id"`
	QRCodeID  string    `json:"qr_code_id"`
	ScanType  ScanType  `json:"scan_type"`
	UserAgent string    `json:"user_agent"`
	Language  string    `json:"language"`
	RemoteIP  string    `json:"remote_ip"`
	CreatedAt time.Time `json:"created_at"`
}

// DeviceInfo is best-effort scan metadata; missing fields never block issuance.
type DeviceInfo struct {
	UserAgent string    `json:"user_agent"`
	Language  string    `json:"language"`
	Timestamp time.Time `json:"timestamp"`
}
