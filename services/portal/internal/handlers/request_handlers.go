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

type createRequestRes struct {
	Success bool `json:"success"`
	Request struct {
		RequestID      string    `json:"requestId"`
		TrackingNumber string    `json:"trackingNumber"`
		CreatedAt      time.Time `json:"createdAt"`
	} `json:"request"`
}

// CreateRequest handles POST /guest/requests. Submission is wrapped in its
// own timeout: on expiry the guest is told to retry, but the server-side
// write may still have landed (at-least-once; duplicates are a staff
// nuisance, not a correctness problem).
func (h *Handlers) CreateRequest(w http.ResponseWriter, r *http.Request) {
	claims := getGuestClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Guest session required", "UNAUTHORIZED")
		return
	}

	var in domain.SubmitRequestReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "INVALID_INPUT")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.config.Portal.SubmitTimeout)
	defer cancel()

	request, err := h.requestService.Submit(ctx, claims, &in)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidationFailed):
			writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_FAILED")
		case errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, "Your request may not have gone through. Please try again.", "SUBMISSION_TIMEOUT")
		default:
			logger.ErrorContext(r.Context(), "Request submission failed", "error", err, "session_id", claims.SessionID)
			writeError(w, http.StatusInternalServerError, "We couldn't submit your request. Please try again or contact the front desk.", "SUBMISSION_FAILED")
		}
		return
	}

	var out createRequestRes
	out.Success = true
	out.Request.RequestID = request.ID
	out.Request.TrackingNumber = request.TrackingNumber
	out.Request.CreatedAt = request.CreatedAt
	writeJSON(w, http.StatusCreated, out)
}

// GetRequest handles GET /guest/requests/{id}; guests can only read their
// own session's requests.
func (h *Handlers) GetRequest(w http.ResponseWriter, r *http.Request) {
	claims := getGuestClaims(r)
	id := chi.URLParam(r, "id")

	request, err := h.requestService.Get(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to get request", "error", err, "request_id", id)
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.", "INTERNAL_ERROR")
		return
	}
	if request == nil || claims == nil || request.SessionID != claims.SessionID {
		writeError(w, http.StatusNotFound, "Request not found", "NOT_FOUND")
		return
	}

	writeJSON(w, http.StatusOK, request)
}

// ListRequests handles GET /guest/requests for the calling session.
func (h *Handlers) ListRequests(w http.ResponseWriter, r *http.Request) {
	claims := getGuestClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Guest session required", "UNAUTHORIZED")
		return
	}

	limit, offset := parsePagination(r)
	requests, err := h.requestService.ListBySession(r.Context(), claims.SessionID, limit, offset)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list requests", "error", err, "session_id", claims.SessionID)
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.", "INTERNAL_ERROR")
		return
	}
	if requests == nil {
		requests = []domain.ServiceRequest{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": requests})
}

// GetTenantRequest handles GET /staff/requests/{id}, tenant-scoped.
func (h *Handlers) GetTenantRequest(w http.ResponseWriter, r *http.Request) {
	claims := getStaffClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Staff token required", "UNAUTHORIZED")
		return
	}
	id := chi.URLParam(r, "id")

	request, err := h.requestService.Get(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to get request", "error", err, "request_id", id)
		writeError(w, http.StatusInternalServerError, "Failed to load request", "INTERNAL_ERROR")
		return
	}
	if request == nil || request.TenantID != claims.TenantID {
		writeError(w, http.StatusNotFound, "Request not found", "NOT_FOUND")
		return
	}

	writeJSON(w, http.StatusOK, request)
}

// ListTenantRequests handles GET /staff/requests with optional status filter.
func (h *Handlers) ListTenantRequests(w http.ResponseWriter, r *http.Request) {
	claims := getStaffClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Staff token required", "UNAUTHORIZED")
		return
	}

	var status *domain.RequestStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s, ok := domain.ParseRequestStatus(v)
		if !ok {
			writeError(w, http.StatusBadRequest, "Unknown status filter", "INVALID_INPUT")
			return
		}
		status = &s
	}

	limit, offset := parsePagination(r)
	requests, err := h.requestService.ListByTenant(r.Context(), claims.TenantID, status, limit, offset)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list tenant requests", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list requests", "INTERNAL_ERROR")
		return
	}
	if requests == nil {
		requests = []domain.ServiceRequest{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": requests})
}

// UpdateRequestStatus handles PATCH /staff/requests/{id}/status.
func (h *Handlers) UpdateRequestStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var in struct {
		Status string  `json:"status"`
		Notes  *string `json:"notes,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "INVALID_INPUT")
		return
	}

	status, ok := domain.ParseRequestStatus(in.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown status", "INVALID_INPUT")
		return
	}

	updated, err := h.requestService.UpdateStatus(r.Context(), id, domain.StatusPatch{Status: status, Notes: in.Notes})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRequestNotFound):
			writeError(w, http.StatusNotFound, "Request not found", "NOT_FOUND")
		case errors.Is(err, domain.ErrInvalidTransition):
			writeError(w, http.StatusConflict, err.Error(), "CONFLICT")
		default:
			logger.ErrorContext(r.Context(), "Failed to update request status", "error", err, "request_id", id)
			writeError(w, http.StatusInternalServerError, "Failed to update request", "INTERNAL_ERROR")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}
