package guestclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolveTokenBareToken(t *testing.T) {
	c := New("http://portal.example.com")

	resolved, err := c.ResolveToken(context.Background(), "  test-qr-token-123  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Token != "test-qr-token-123" {
		t.Errorf("token = %q, want trimmed input", resolved.Token)
	}
}

func TestResolveTokenPortalURL(t *testing.T) {
	c := New("http://portal.example.com")

	resolved, err := c.ResolveToken(context.Background(), "https://app.example.com/guest/qr/Ab3xYz12?src=lobby&utm_campaign=summer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Token != "Ab3xYz12" {
		t.Errorf("token = %q", resolved.Token)
	}
	if resolved.Attribution.Get("src") != "lobby" {
		t.Errorf("attribution src = %q, want lobby", resolved.Attribution.Get("src"))
	}
	if resolved.Attribution.Get("utm_campaign") != "summer" {
		t.Error("attribution must keep all query parameters")
	}
}

func TestResolveTokenInvalidFormat(t *testing.T) {
	c := New("http://portal.example.com")

	for _, input := range []string{"", "   ", "ab", "has spaces in it", "https://app.example.com/somewhere/else"} {
		if _, err := c.ResolveToken(context.Background(), input); !errors.Is(err, ErrInvalidTokenFormat) {
			t.Errorf("input %q: err = %v, want ErrInvalidTokenFormat", input, err)
		}
	}
}

func TestResolveTokenShortlink(t *testing.T) {
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/q/Ab3xYz12" {
			t.Errorf("portal saw path %q", r.URL.Path)
		}
		target := "https://app.example.com/guest/qr/full-token-value-1"
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusFound)
	}))
	defer portal.Close()

	c := New(portal.URL)

	resolved, err := c.ResolveToken(context.Background(), "/q/Ab3xYz12?src=lobby")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Token != "full-token-value-1" {
		t.Errorf("token = %q", resolved.Token)
	}
	if resolved.Attribution.Get("src") != "lobby" {
		t.Error("attribution must survive the redirect hop")
	}
}

func TestResolveTokenShortlinkAbsoluteURL(t *testing.T) {
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://app.example.com/guest/qr/full-token-value-1", http.StatusFound)
	}))
	defer portal.Close()

	c := New("http://unused.example.com")

	resolved, err := c.ResolveToken(context.Background(), portal.URL+"/q/Ab3xYz12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Token != "full-token-value-1" {
		t.Errorf("token = %q", resolved.Token)
	}
}

func TestResolveTokenShortlinkNotRedirected(t *testing.T) {
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Invalid code.","code":"NOT_FOUND"}`, http.StatusNotFound)
	}))
	defer portal.Close()

	c := New(portal.URL)

	if _, err := c.ResolveToken(context.Background(), "/q/Ab3xYz12"); !errors.Is(err, ErrRedirectFailed) {
		t.Errorf("err = %v, want ErrRedirectFailed", err)
	}
}

func TestResolveTokenShortlinkBadLocation(t *testing.T) {
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://app.example.com/nowhere/useful")
		w.WriteHeader(http.StatusFound)
	}))
	defer portal.Close()

	c := New(portal.URL)

	if _, err := c.ResolveToken(context.Background(), "/q/Ab3xYz12"); !errors.Is(err, ErrRedirectFailed) {
		t.Errorf("err = %v, want ErrRedirectFailed", err)
	}
}
