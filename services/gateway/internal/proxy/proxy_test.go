package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestProxyForwardsRequestAndResponse(t *testing.T) {
	var gotPath, gotQuery, gotAuth, gotIdem, gotBody string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotIdem = r.Header.Get("Idempotency-Key")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	p := NewServiceProxy(upstream.URL)

	req := httptest.NewRequest(http.MethodPost, "/guest/requests?src=lobby", strings.NewReader(`{"type":"maintenance"}`))
	req.Header.Set("Authorization", "Bearer session-jwt")
	req.Header.Set("Idempotency-Key", "idem-1")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	p.ServeHTTP(rec, req)

	if gotPath != "/guest/requests" || gotQuery != "src=lobby" {
		t.Errorf("upstream saw %q?%q", gotPath, gotQuery)
	}
	if gotAuth != "Bearer session-jwt" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotIdem != "idem-1" {
		t.Errorf("Idempotency-Key = %q", gotIdem)
	}
	if gotBody != `{"type":"maintenance"}` {
		t.Errorf("body = %q", gotBody)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	if rec.Body.String() != `{"ok":true}` {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestProxyMarksForwardedTraffic(t *testing.T) {
	var forwarded, forwardedFor string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forwarded = r.Header.Get("X-Gateway-Forwarded")
		forwardedFor = r.Header.Get("X-Forwarded-For")
	}))
	defer upstream.Close()

	p := NewServiceProxy(upstream.URL)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/board", nil))

	if forwarded != "true" {
		t.Errorf("X-Gateway-Forwarded = %q", forwarded)
	}
	if forwardedFor == "" {
		t.Error("X-Forwarded-For must identify the caller")
	}
}

func TestProxyUnreachableUpstream(t *testing.T) {
	p := NewServiceProxy("http://127.0.0.1:1")

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/board", nil))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}
