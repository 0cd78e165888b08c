package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/innkeep/innkeep/pkg/logger"
	"github.com/innkeep/innkeep/services/frontdesk/internal/domain"
)

// Checkout handles POST /checkout/{reservation_id}: the console-side
// orchestration over the billing call. Decided refusals come back 200 with
// the billing message; transport failures are 502 so staff know to retry.
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	claims := getStaffClaims(r)
	reservationID := chi.URLParam(r, "reservation_id")

	outcome, err := h.checkoutService.Checkout(r.Context(), getStaffToken(r), claims.TenantID, reservationID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrReservationUnknown):
			writeError(w, http.StatusNotFound, "Reservation not found", "NOT_FOUND")
		case errors.Is(err, domain.ErrTransport):
			logger.ErrorContext(r.Context(), "Checkout transport failure", "error", err, "reservation_id", reservationID)
			writeError(w, http.StatusBadGateway, "Checkout could not be completed. The local view was restored; please retry.", "TRANSPORT_FAILURE")
		default:
			logger.ErrorContext(r.Context(), "Checkout failed", "error", err, "reservation_id", reservationID)
			writeError(w, http.StatusInternalServerError, "Checkout failed", "INTERNAL_ERROR")
		}
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// Board handles GET /board: the cached staff view, rendered as-is.
func (h *Handlers) Board(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.View())
}
