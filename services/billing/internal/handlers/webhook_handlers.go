package handlers

import (
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/innkeep/innkeep/pkg/logger"
)

// Stripe recommends a cap on webhook bodies to guard against oversized
// payloads.
const maxWebhookBody = 65536

// StripeWebhook handles POST /webhooks/stripe. Signature verification happens
// before anything else; an unverifiable payload is rejected without parsing.
func (h *Handlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read payload", "INVALID_INPUT")
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.config.Stripe.WebhookSecret)
	if err != nil {
		logger.WarnContext(r.Context(), "Stripe signature verification failed", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid signature", "INVALID_SIGNATURE")
		return
	}

	if err := h.billingService.HandleStripeEvent(r.Context(), &event); err != nil {
		// Non-2xx makes stripe redeliver; payment recording is idempotent on
		// the event id so the retry is safe.
		logger.ErrorContext(r.Context(), "Failed to process stripe event", "error", err, "event_id", event.ID)
		writeError(w, http.StatusInternalServerError, "Failed to process event", "INTERNAL_ERROR")
		return
	}

	w.WriteHeader(http.StatusOK)
}
