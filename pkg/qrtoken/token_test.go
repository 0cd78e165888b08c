package qrtoken

import (
	"errors"
	"testing"
)

func TestCanonicalizeTrimsWhitespace(t *testing.T) {
	token, _, short, err := Canonicalize("  test-qr-token-123  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if short {
		t.Fatal("bare token misdetected as shortlink")
	}
	if token != "test-qr-token-123" {
		t.Errorf("got %q, want %q", token, "test-qr-token-123")
	}
}

func TestCanonicalizePortalURL(t *testing.T) {
	token, attr, short, err := Canonicalize("https://stay.example.com/guest/qr/abc123def456?src=lobby")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if short {
		t.Fatal("portal URL misdetected as shortlink")
	}
	if token != "abc123def456" {
		t.Errorf("got token %q", token)
	}
	if attr.Get("src") != "lobby" {
		t.Errorf("attribution params not preserved: %v", attr)
	}
}

func TestCanonicalizeShortlink(t *testing.T) {
	_, _, short, err := Canonicalize("https://stay.example.com/q/abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !short {
		t.Fatal("shortlink not detected")
	}
}

func TestCanonicalizeRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"short",                // below minimum length
		"has spaces in it",     // disallowed characters
		"token!with@symbols#1", // disallowed characters
		"https://stay.example.com/somewhere/else",
	}
	for _, in := range cases {
		if _, _, _, err := Canonicalize(in); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("Canonicalize(%q) = %v, want ErrInvalidFormat", in, err)
		}
	}
}
