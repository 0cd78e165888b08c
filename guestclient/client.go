// Package guestclient is the Go client for the guest portal: it turns a
// scanned QR code into a session and drives service requests over that
// session. It holds credentials in memory only; persisting state across
// reloads is the embedder's job via MarshalState/RestoreState.
package guestclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrInvalidTokenFormat = errors.New("invalid token format")
	ErrRedirectFailed     = errors.New("shortlink redirect failed")
	ErrSessionClosed      = errors.New("session closed")
)

// APIError carries the portal's structured error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Client talks to the portal service (directly or through the gateway).
type Client struct {
	baseURL       string
	http          *http.Client
	noFollow      *http.Client
	submitTimeout time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the transport, e.g. for tests or custom TLS.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithSubmitTimeout bounds SubmitRequest end to end.
func WithSubmitTimeout(d time.Duration) Option {
	return func(c *Client) { c.submitTimeout = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		http:          &http.Client{Timeout: 15 * time.Second},
		submitTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	// Shortlink resolution inspects Location itself instead of following it.
	nf := *c.http
	nf.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	c.noFollow = &nf
	return c
}

// DeviceInfo is best-effort scan metadata sent with validation.
type DeviceInfo struct {
	UserAgent string    `json:"user_agent"`
	Language  string    `json:"language"`
	Timestamp time.Time `json:"timestamp"`
}

type createSessionReq struct {
	QRToken    string     `json:"qr_token"`
	DeviceInfo DeviceInfo `json:"device_info"`
}

type createSessionRes struct {
	Success bool        `json:"success"`
	Session SessionInfo `json:"session"`
	Token   string      `json:"token"`
}

// Validate exchanges a canonical QR token for a guest session.
func (c *Client) Validate(ctx context.Context, qrToken string, device DeviceInfo) (*SessionContext, error) {
	var out createSessionRes
	err := c.doJSON(ctx, http.MethodPost, "/guest/sessions", "", createSessionReq{
		QRToken:    qrToken,
		DeviceInfo: device,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &SessionContext{token: out.Token, info: out.Session}, nil
}

// doJSON performs one request and decodes either the expected body or the
// portal's {error, code} envelope.
func (c *Client) doJSON(ctx context.Context, method, path, credential string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("portal request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		var envelope struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if derr := json.NewDecoder(res.Body).Decode(&envelope); derr != nil || envelope.Code == "" {
			return &APIError{StatusCode: res.StatusCode, Code: "UNEXPECTED", Message: res.Status}
		}
		return &APIError{StatusCode: res.StatusCode, Code: envelope.Code, Message: envelope.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
