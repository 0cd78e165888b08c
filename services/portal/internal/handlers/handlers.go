package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/innkeep/innkeep/pkg/auth"
	"github.com/innkeep/innkeep/pkg/config"
	"github.com/innkeep/innkeep/pkg/logger"
	"github.com/innkeep/innkeep/services/portal/internal/service"
)

type ctxKey string

const (
	guestClaimsKey ctxKey = "guest_claims"
	staffClaimsKey ctxKey = "staff_claims"
)

type Handlers struct {
	sessionService service.SessionService
	requestService service.RequestService
	config         *config.Config
}

func New(sessionService service.SessionService, requestService service.RequestService, config *config.Config) *Handlers {
	return &Handlers{
		sessionService: sessionService,
		requestService: requestService,
		config:         config,
	}
}

// RequireGuestSession checks the credential on every privileged call; an
// expired credential gets its own message telling the guest to rescan.
func (h *Handlers) RequireGuestSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("session_token")
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Guest session required", "UNAUTHORIZED")
			return
		}

		claims, err := auth.Parse(token, h.config.Auth.JWTSecret)
		if err == auth.ErrExpiredToken {
			writeError(w, http.StatusUnauthorized, "Your session has expired. Please rescan the QR code in your room.", "SESSION_EXPIRED")
			return
		}
		if err != nil || claims.Role != "guest" {
			writeError(w, http.StatusUnauthorized, "Invalid guest session", "UNAUTHORIZED")
			return
		}

		ctx := context.WithValue(r.Context(), guestClaimsKey, claims)
		ctx = context.WithValue(ctx, logger.SessionIDKey, claims.SessionID)
		ctx = context.WithValue(ctx, logger.TenantIDKey, claims.TenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireStaffJWT gates staff routes; admin always passes.
func (h *Handlers) RequireStaffJWT(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header", "UNAUTHORIZED")
				return
			}

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
			ctx = context.WithValue(ctx, logger.TenantIDKey, claims.TenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}
	return ""
}

func getGuestClaims(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(guestClaimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}

func getStaffClaims(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(staffClaimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
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

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
