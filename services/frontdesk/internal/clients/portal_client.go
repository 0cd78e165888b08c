package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-querystring/query"

	"github.com/innkeep/innkeep/services/frontdesk/internal/domain"
)

// PortalAPI is the slice of the portal service the console reads from.
type PortalAPI interface {
	GetRequest(ctx context.Context, token, id string) (*domain.RequestView, error)
	ListRequests(ctx context.Context, token string, opts RequestListOptions) ([]domain.RequestView, error)
}

type RequestListOptions struct {
	Status string `url:"status,omitempty"`
	Limit  int    `url:"limit,omitempty"`
	Offset int    `url:"offset,omitempty"`
}

// requestWire mirrors the portal's service request JSON.
type requestWire struct {
	ID             string     `json:"request_id"`
	TrackingNumber string     `json:"tracking_number"`
	RoomNumber     string     `json:"room_number"`
	Notes          string     `json:"notes"`
	Priority       string     `json:"priority"`
	Status         string     `json:"status"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

func (w requestWire) toView() domain.RequestView {
	return domain.RequestView{
		ID:             w.ID,
		TrackingNumber: w.TrackingNumber,
		RoomNumber:     w.RoomNumber,
		Summary:        w.Notes,
		Priority:       w.Priority,
		Status:         w.Status,
		UpdatedAt:      w.UpdatedAt,
		CompletedAt:    w.CompletedAt,
	}
}

type portalClient struct {
	baseURL string
	http    *http.Client
}

func NewPortalClient(baseURL string) PortalAPI {
	return &portalClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *portalClient) GetRequest(ctx context.Context, token, id string) (*domain.RequestView, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/staff/requests/"+id, nil)
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
		return nil, nil
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: request read returned %d", domain.ErrTransport, res.StatusCode)
	}

	var w requestWire
	if err := json.NewDecoder(res.Body).Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	view := w.toView()
	return &view, nil
}

func (c *portalClient) ListRequests(ctx context.Context, token string, opts RequestListOptions) ([]domain.RequestView, error) {
	values, err := query.Values(opts)
	if err != nil {
		return nil, err
	}

	url := c.baseURL + "/staff/requests"
	if encoded := values.Encode(); encoded != "" {
		url += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: request list returned %d", domain.ErrTransport, res.StatusCode)
	}

	var body struct {
		Requests []requestWire `json:"requests"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}

	views := make([]domain.RequestView, 0, len(body.Requests))
	for _, w := range body.Requests {
		views = append(views, w.toView())
	}
	return views, nil
}
