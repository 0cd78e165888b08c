package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	SessionID string   `json:"sid,omitempty"`
	TenantID  string   `json:"tid"`
	QRCodeID  string   `json:"qid,omitempty"`
	Room      string   `json:"room,omitempty"`
	Services  []string `json:"services,omitempty"`
	Email     string   `json:"email,omitempty"`
	Role      string   `json:"role"`
	Scope     string   `json:"scope"`
	jwt.RegisteredClaims
}

// NewGuestSessionToken mints the credential handed back after a successful QR
// scan. The expiry must match the session row exactly; callers pass the
// session's expires_at rather than a TTL so the two cannot drift.
func NewGuestSessionToken(sessionID, tenantID, qrCodeID, room string, services []string, secret string, expiresAt time.Time) (string, error) {
	now := time.Now()
	claims := Claims{
		SessionID: sessionID,
		TenantID:  tenantID,
		QRCodeID:  qrCodeID,
		Room:      room,
		Services:  services,
		Role:      "guest",
		Scope:     "guest.requests:read guest.requests:write",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Audience:  []string{"innkeep-api"},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func NewStaffToken(tenantID, email, role, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		TenantID: tenantID,
		Email:    email,
		Role:     role,
		Scope:    "staff.requests:write staff.checkout:write",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  []string{"innkeep-api"},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

var ErrExpiredToken = errors.New("token expired")

func Parse(tokenString, secret string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, err
	}
	if claims, ok := tok.Claims.(*Claims); ok && tok.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
