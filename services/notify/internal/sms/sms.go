package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/innkeep/innkeep/pkg/logger"
)

// Sender delivers one SMS.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// GatewaySender posts messages to an HTTP SMS gateway.
type GatewaySender struct {
	url    string
	apiKey string
	sender string
	http   *http.Client
}

func NewGatewaySender(url, apiKey, sender string) *GatewaySender {
	return &GatewaySender{
		url:    url,
		apiKey: apiKey,
		sender: sender,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *GatewaySender) Send(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(map[string]string{
		"from": g.sender,
		"to":   to,
		"body": body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	res, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned %d", res.StatusCode)
	}
	return nil
}

// DevSender prints messages to the log instead of sending them.
type DevSender struct{}

func NewDevSender() *DevSender {
	return &DevSender{}
}

func (d *DevSender) Send(_ context.Context, to, body string) error {
	logger.Info("📱 [DEV SMS]", "to", to, "body", body)
	return nil
}
