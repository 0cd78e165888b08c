package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/innkeep/innkeep/services/frontdesk/internal/domain"
)

// BillingAPI is the slice of the billing service the console needs.
type BillingAPI interface {
	GetFolio(ctx context.Context, token, reservationID string) (*FolioView, error)
	Checkout(ctx context.Context, token, tenantID, reservationID string) (*domain.CheckoutOutcome, error)
}

// FolioView is the billing read used for the pre-flight balance check.
type FolioView struct {
	FolioID       string `json:"folio_id"`
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
	BalanceCents  int64  `json:"balance_cents"`
}

type billingClient struct {
	baseURL string
	http    *http.Client
}

func NewBillingClient(baseURL string) BillingAPI {
	return &billingClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *billingClient) GetFolio(ctx context.Context, token, reservationID string) (*FolioView, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/folios/"+reservationID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, domain.ErrReservationUnknown
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: folio read returned %d", domain.ErrTransport, res.StatusCode)
	}

	var folio FolioView
	if err := json.NewDecoder(res.Body).Decode(&folio); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	return &folio, nil
}

func (c *billingClient) Checkout(ctx context.Context, token, tenantID, reservationID string) (*domain.CheckoutOutcome, error) {
	body, err := json.Marshal(map[string]string{
		"tenant_id":      tenantID,
		"reservation_id": reservationID,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer res.Body.Close()

	// The checkout contract: business refusals come back 200 with a result
	// envelope, anything else is a transport failure.
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: checkout returned %d", domain.ErrTransport, res.StatusCode)
	}

	var outcome domain.CheckoutOutcome
	if err := json.NewDecoder(res.Body).Decode(&outcome); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	return &outcome, nil
}
