package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/innkeep/innkeep/pkg/auth"
	"github.com/innkeep/innkeep/pkg/config"
	"github.com/innkeep/innkeep/pkg/logger"
	"github.com/innkeep/innkeep/services/frontdesk/internal/service"
	"github.com/innkeep/innkeep/services/frontdesk/internal/statecache"
)

type ctxKey string

const (
	staffClaimsKey ctxKey = "staff_claims"
	staffTokenKey  ctxKey = "staff_token"
)

type Handlers struct {
	authService     service.AuthService
	checkoutService service.CheckoutService
	cache           *statecache.Cache
	config          *config.Config
}

func New(authService service.AuthService, checkoutService service.CheckoutService, cache *statecache.Cache, config *config.Config) *Handlers {
	return &Handlers{
		authService:     authService,
		checkoutService: checkoutService,
		cache:           cache,
		config:          config,
	}
}

// RequireStaffJWT gates console routes. The raw token is kept on the context
// because the orchestration forwards it to billing.
func (h *Handlers) RequireStaffJWT(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header", "UNAUTHORIZED")
				return
			}
			token := strings.TrimPrefix(authz, "Bearer ")

			claims, err := auth.Parse(token, h.config.Auth.JWTSecret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token", "INVALID_TOKEN")
				return
			}

			if requiredRole != "" && claims.Role != requiredRole && claims.Role != "admin" {
				writeError(w, http.StatusForbidden, "Insufficient permissions", "FORBIDDEN")
				return
			}

			ctx := context.WithValue(r.Context(), staffClaimsKey, claims)
			ctx = context.WithValue(ctx, staffTokenKey, token)
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

func getStaffToken(r *http.Request) string {
	if token, ok := r.Context().Value(staffTokenKey).(string); ok {
		return token
	}
	return ""
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
