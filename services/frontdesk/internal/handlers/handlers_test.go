package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/innkeep/innkeep/pkg/auth"
	"github.com/innkeep/innkeep/pkg/config"
	"github.com/innkeep/innkeep/services/frontdesk/internal/domain"
	"github.com/innkeep/innkeep/services/frontdesk/internal/statecache"
)

const testSecret = "test-secret"

type stubAuthService struct{}

func (s *stubAuthService) Login(context.Context, string, *domain.LoginReq) (*domain.LoginRes, error) {
	return &domain.LoginRes{Token: "t"}, nil
}
func (s *stubAuthService) CreateUser(context.Context, string, *domain.CreateUserReq) (*domain.StaffUser, error) {
	return &domain.StaffUser{ID: "u-1"}, nil
}
func (s *stubAuthService) GetUser(context.Context, string, string) (*domain.StaffUser, error) {
	return &domain.StaffUser{ID: "u-1"}, nil
}
func (s *stubAuthService) ListUsers(context.Context, string) ([]domain.StaffUser, error) {
	return []domain.StaffUser{}, nil
}
func (s *stubAuthService) UpdateUser(context.Context, string, string, *domain.UpdateUserReq) (*domain.StaffUser, error) {
	return &domain.StaffUser{ID: "u-1"}, nil
}
func (s *stubAuthService) DeleteUser(context.Context, string, string) error { return nil }

type stubCheckoutService struct{}

func (s *stubCheckoutService) Checkout(context.Context, string, string, string) (*domain.CheckoutOutcome, error) {
	return &domain.CheckoutOutcome{Success: true}, nil
}

func gatedRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{Auth: config.AuthConfig{JWTSecret: testSecret}}
	h := New(&stubAuthService{}, &stubCheckoutService{}, statecache.New(), cfg)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(h.RequireStaffJWT("staff"))
		r.Get("/board", h.Board)
	})
	r.Route("/admin/users", func(r chi.Router) {
		r.Use(h.RequireStaffJWT("admin"))
		r.Get("/", h.ListUsers)
	})
	return r
}

func mintToken(t *testing.T, role string, ttl time.Duration) string {
	t.Helper()
	token, err := auth.NewStaffToken("tenant-1", "user@hotel.test", role, testSecret, ttl)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestStaffJWTRoleGating(t *testing.T) {
	router := gatedRouter(t)

	tests := []struct {
		name   string
		path   string
		token  string
		status int
		code   string
	}{
		{"no token", "/board", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage token", "/board", "not-a-jwt", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"expired token", "/board", mintToken(t, "staff", -time.Minute), http.StatusUnauthorized, "INVALID_TOKEN"},
		{"staff on staff route", "/board", mintToken(t, "staff", time.Hour), http.StatusOK, ""},
		{"staff on admin route", "/admin/users/", mintToken(t, "staff", time.Hour), http.StatusForbidden, "FORBIDDEN"},
		{"admin on admin route", "/admin/users/", mintToken(t, "admin", time.Hour), http.StatusOK, ""},
		{"admin on staff route", "/board", mintToken(t, "admin", time.Hour), http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.code != "" {
				var envelope struct {
					Code string `json:"code"`
				}
				if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
					t.Fatalf("decode error envelope: %v", err)
				}
				if envelope.Code != tt.code {
					t.Errorf("code = %q, want %q", envelope.Code, tt.code)
				}
			}
		})
	}
}
