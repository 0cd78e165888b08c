package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/innkeep/innkeep/pkg/logger"
	"github.com/innkeep/innkeep/services/billing/internal/domain"
)

// GetFolio handles GET /folios/{reservation_id}.
func (h *Handlers) GetFolio(w http.ResponseWriter, r *http.Request) {
	claims := getStaffClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Staff token required", "UNAUTHORIZED")
		return
	}
	reservationID := chi.URLParam(r, "reservation_id")

	folio, err := h.billingService.GetFolio(r.Context(), claims.TenantID, reservationID)
	if err != nil {
		if errors.Is(err, domain.ErrFolioNotFound) {
			writeError(w, http.StatusNotFound, "Folio not found", "NOT_FOUND")
			return
		}
		logger.ErrorContext(r.Context(), "Failed to load folio", "error", err, "reservation_id", reservationID)
		writeError(w, http.StatusInternalServerError, "Failed to load folio", "INTERNAL_ERROR")
		return
	}

	writeJSON(w, http.StatusOK, folio)
}

// Checkout handles POST /checkout. Business refusals (outstanding balance,
// already checked out) come back as a 200 result envelope with success=false;
// only transport and storage problems are HTTP errors.
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	claims := getStaffClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Staff token required", "UNAUTHORIZED")
		return
	}

	var in domain.CheckoutReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "INVALID_INPUT")
		return
	}
	if in.ReservationID == "" {
		writeError(w, http.StatusBadRequest, "reservation_id is required", "INVALID_INPUT")
		return
	}
	// The caller's tenant wins over whatever the body claims.
	in.TenantID = claims.TenantID

	result, err := h.billingService.Checkout(r.Context(), &in)
	if err != nil {
		if errors.Is(err, domain.ErrFolioNotFound) {
			writeError(w, http.StatusNotFound, "Folio not found", "NOT_FOUND")
			return
		}
		logger.ErrorContext(r.Context(), "Checkout failed", "error", err, "reservation_id", in.ReservationID)
		writeError(w, http.StatusInternalServerError, "Checkout failed", "INTERNAL_ERROR")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
