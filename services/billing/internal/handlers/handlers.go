package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/innkeep/innkeep/pkg/auth"
	"github.com/innkeep/innkeep/pkg/config"
	"github.com/innkeep/innkeep/pkg/logger"
	"github.com/innkeep/innkeep/services/billing/internal/service"
)

type ctxKey string

const staffClaimsKey ctxKey = "staff_claims"

type Handlers struct {
	billingService service.BillingService
	config         *config.Config
}

func New(billingService service.BillingService, config *config.Config) *Handlers {
	return &Handlers{
		billingService: billingService,
		config:         config,
	}
}

func (h *Handlers) RequireStaffJWT(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header", "UNAUTHORIZED")
				return
			}

			claims, err := auth.Parse(strings.TrimPrefix(authz, "Bearer "), h.config.Auth.JWTSecret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token", "INVALID_TOKEN")
				return
			}

			if requiredRole != "" && claims.Role != requiredRole && claims.Role != "admin" {
				writeError(w, http.StatusForbidden, "Insufficient permissions", "FORBIDDEN")
				return
			}

			ctx := context.WithValue(r.Context(), staffClaimsKey, claims)
			ctx = context.WithValue(ctx, logger.TenantIDKey, claims.TenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getStaffClaims(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(staffClaimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
		"code":  code,
	})
}
