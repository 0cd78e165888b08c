package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/innkeep/innkeep/pkg/logger"
	"github.com/innkeep/innkeep/services/portal/internal/domain"
)

type createSessionReq struct {
	QRToken    string            `json:"qr_token"`
	DeviceInfo domain.DeviceInfo `json:"device_info"`
}

type sessionRes struct {
	SessionID  string    `json:"sessionId"`
	TenantID   string    `json:"tenantId"`
	QRCodeID   string    `json:"qrCodeId"`
	HotelName  string    `json:"hotelName"`
	RoomNumber string    `json:"roomNumber"`
	Services   []string  `json:"services"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type createSessionRes struct {
	Success bool       `json:"success"`
	Session sessionRes `json:"session"`
	Token   string     `json:"token"`
}

// CreateSession handles POST /guest/sessions. The whole validation is bounded
// by its own timeout: a guest standing at a door with a phone needs a
// specific retry message, not a spinner.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var in createSessionReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "INVALID_INPUT")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.config.Portal.ValidateTimeout)
	defer cancel()

	grant, err := h.sessionService.Validate(ctx, in.QRToken, in.DeviceInfo, getClientIP(r))
	if err != nil {
		h.writeValidationError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createSessionRes{
		Success: true,
		Session: sessionRes{
			SessionID:  grant.Session.ID,
			TenantID:   grant.Session.TenantID,
			QRCodeID:   grant.Session.QRCodeID,
			HotelName:  grant.Session.HotelName,
			RoomNumber: grant.Session.RoomNumber,
			Services:   grant.Session.Services,
			ExpiresAt:  grant.Session.ExpiresAt,
		},
		Token: grant.Token,
	})
}

func (h *Handlers) writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidTokenFormat):
		writeError(w, http.StatusBadRequest, "Invalid code format. Please check the code and try again.", "INVALID_TOKEN_FORMAT")
	case errors.Is(err, domain.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, "Invalid code. Please check with the front desk.", "TOKEN_NOT_FOUND")
	case errors.Is(err, domain.ErrTokenDeactivated):
		writeError(w, http.StatusGone, "This QR code is no longer valid. Please contact the front desk.", "TOKEN_DEACTIVATED")
	case errors.Is(err, domain.ErrTokenExpired):
		writeError(w, http.StatusGone, "This QR code has expired — please call the front desk.", "TOKEN_EXPIRED")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "Too many requests. Please wait a moment and try again.", "RATE_LIMIT_EXCEEDED")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "The connection timed out. Please check your signal and try again.", "TIMEOUT")
	default:
		logger.ErrorContext(r.Context(), "Session validation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.", "INTERNAL_ERROR")
	}
}

// ResolveShortlink handles GET /q/{code}, redirecting to the canonical
// /guest/qr/{token} form.
func (h *Handlers) ResolveShortlink(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	token, err := h.sessionService.ResolveShortlink(r.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrShortlinkNotFound) {
			writeError(w, http.StatusNotFound, "Invalid code. Please check with the front desk.", "NOT_FOUND")
			return
		}
		logger.ErrorContext(r.Context(), "Shortlink resolution failed", "error", err, "code", code)
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.", "INTERNAL_ERROR")
		return
	}

	target := h.config.Portal.PublicBaseURL + "/guest/qr/" + token
	// Preserve query parameters for analytics attribution.
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusFound)
}
