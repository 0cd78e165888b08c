package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/innkeep/innkeep/pkg/config"
	"github.com/innkeep/innkeep/services/portal/internal/domain"
)

// ---------- Stub services ----------

type stubSessionService struct {
	grant       *domain.SessionGrant
	validateErr error
	shortlinks  map[string]string
	delay       time.Duration
}

func (s *stubSessionService) Validate(ctx context.Context, _ string, _ domain.DeviceInfo, _ string) (*domain.SessionGrant, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.validateErr != nil {
		return nil, s.validateErr
	}
	return s.grant, nil
}

func (s *stubSessionService) ResolveShortlink(_ context.Context, code string) (string, error) {
	if token, ok := s.shortlinks[code]; ok {
		return token, nil
	}
	return "", domain.ErrShortlinkNotFound
}

func handlerConfig() *config.Config {
	cfg := config.Load()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Portal.PublicBaseURL = "https://app.example.com"
	cfg.Portal.ValidateTimeout = 100 * time.Millisecond
	return cfg
}

func newSessionHandlers(svc *stubSessionService) *Handlers {
	return New(svc, nil, handlerConfig())
}

func postSession(t *testing.T, h *Handlers, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/guest/sessions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateSession(rec, req)
	return rec
}

// ---------- Tests ----------

func TestCreateSessionSuccess(t *testing.T) {
	svc := &stubSessionService{
		grant: &domain.SessionGrant{
			Session: &domain.GuestSession{
				ID:         "session-1",
				TenantID:   "tenant-1",
				QRCodeID:   "qr-1",
				HotelName:  "Harbor View",
				RoomNumber: "204",
				Services:   []string{"maintenance"},
				ExpiresAt:  time.Now().Add(4 * time.Hour),
			},
			Token: "signed.jwt.credential",
		},
	}

	rec := postSession(t, newSessionHandlers(svc), `{"qr_token":"test-qr-token-123"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`"success":true`, `"sessionId":"session-1"`, `"roomNumber":"204"`, `"token":"signed.jwt.credential"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %s: %s", want, body)
		}
	}
}

func TestCreateSessionDeactivatedMessage(t *testing.T) {
	svc := &stubSessionService{validateErr: domain.ErrTokenDeactivated}

	rec := postSession(t, newSessionHandlers(svc), `{"qr_token":"test-qr-token-123"}`)

	if rec.Code != http.StatusGone {
		t.Errorf("status = %d, want 410", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no longer valid") {
		t.Errorf("deactivated message must say the code is no longer valid, got %s", rec.Body.String())
	}
}

func TestCreateSessionExpiredMessage(t *testing.T) {
	svc := &stubSessionService{validateErr: domain.ErrTokenExpired}

	rec := postSession(t, newSessionHandlers(svc), `{"qr_token":"test-qr-token-123"}`)

	if rec.Code != http.StatusGone {
		t.Errorf("status = %d, want 410", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "expired") {
		t.Errorf("expired message must mention expiry, got %s", rec.Body.String())
	}
}

func TestCreateSessionErrorCodes(t *testing.T) {
	cases := []struct {
		err      error
		wantCode int
		wantBody string
	}{
		{domain.ErrInvalidTokenFormat, http.StatusBadRequest, "INVALID_TOKEN_FORMAT"},
		{domain.ErrTokenNotFound, http.StatusNotFound, "front desk"},
		{domain.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
	}

	for _, tc := range cases {
		svc := &stubSessionService{validateErr: tc.err}
		rec := postSession(t, newSessionHandlers(svc), `{"qr_token":"whatever-token"}`)
		if rec.Code != tc.wantCode {
			t.Errorf("%v: status = %d, want %d", tc.err, rec.Code, tc.wantCode)
		}
		if !strings.Contains(rec.Body.String(), tc.wantBody) {
			t.Errorf("%v: body missing %q: %s", tc.err, tc.wantBody, rec.Body.String())
		}
	}
}

func TestCreateSessionTimeoutMessage(t *testing.T) {
	svc := &stubSessionService{delay: time.Second}

	rec := postSession(t, newSessionHandlers(svc), `{"qr_token":"test-qr-token-123"}`)

	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "timed out") || !strings.Contains(body, "try again") {
		t.Errorf("timeout needs its own retry message, got %s", body)
	}
}

func TestResolveShortlinkRedirect(t *testing.T) {
	svc := &stubSessionService{shortlinks: map[string]string{"abc123": "test-qr-token-123"}}
	h := newSessionHandlers(svc)

	r := chi.NewRouter()
	r.Get("/q/{code}", h.ResolveShortlink)

	req := httptest.NewRequest(http.MethodGet, "/q/abc123?src=lobby", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	location := rec.Header().Get("Location")
	if !regexp.MustCompile(`/guest/qr/[a-zA-Z0-9_-]+`).MatchString(location) {
		t.Errorf("redirect target should be the canonical guest url, got %s", location)
	}
	if !strings.Contains(location, "src=lobby") {
		t.Errorf("attribution query should survive the redirect, got %s", location)
	}
}

func TestResolveShortlinkNotFound(t *testing.T) {
	h := newSessionHandlers(&stubSessionService{})

	r := chi.NewRouter()
	r.Get("/q/{code}", h.ResolveShortlink)

	req := httptest.NewRequest(http.MethodGet, "/q/nope", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
