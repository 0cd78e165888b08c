package guestclient

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// RequestPayload is the tagged union over request types; set exactly the
// variant matching RequestType.
type RequestPayload struct {
	Maintenance  *MaintenancePayload  `json:"maintenance,omitempty"`
	RoomService  *RoomServicePayload  `json:"room_service,omitempty"`
	Housekeeping *HousekeepingPayload `json:"housekeeping,omitempty"`
	Amenity      *AmenityPayload      `json:"amenity,omitempty"`
	General      *GeneralPayload      `json:"general,omitempty"`
}

type MaintenancePayload struct {
	IssueType   string `json:"issue_type"`
	Description string `json:"description"`
}

type RoomServicePayload struct {
	Items   []OrderItem `json:"items"`
	Remarks string      `json:"remarks,omitempty"`
}

type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type HousekeepingPayload struct {
	Service string `json:"service"`
	Remarks string `json:"remarks,omitempty"`
}

type AmenityPayload struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

type GeneralPayload struct {
	Message string `json:"message"`
}

type SubmitInput struct {
	RequestType string         `json:"request_type"`
	Payload     RequestPayload `json:"request_data"`
	Priority    string         `json:"priority,omitempty"`
	SMSEnabled  bool           `json:"sms_enabled,omitempty"`
	GuestPhone  string         `json:"guest_phone,omitempty"`
	GuestName   string         `json:"guest_name,omitempty"`
}

// SubmittedRequest is the submission acknowledgement.
type SubmittedRequest struct {
	RequestID      string    `json:"requestId"`
	TrackingNumber string    `json:"trackingNumber"`
	CreatedAt      time.Time `json:"createdAt"`
}

// RequestView is one service request as the guest sees it.
type RequestView struct {
	ID             string     `json:"request_id"`
	TrackingNumber string     `json:"tracking_number"`
	RequestType    string     `json:"request_type"`
	Priority       string     `json:"priority"`
	Status         string     `json:"status"`
	Notes          string     `json:"notes"`
	RoomNumber     string     `json:"room_number"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the request will never change status again.
func (v *RequestView) Terminal() bool {
	return v.Status == "completed" || v.Status == "cancelled"
}

// SubmitRequest files a service request on the session. The call is bounded
// by the client's submit timeout; on expiry the request may still have
// landed server-side, so callers should tell the guest to check before
// resubmitting.
func (c *Client) SubmitRequest(ctx context.Context, session *SessionContext, in SubmitInput) (*SubmittedRequest, error) {
	credential, err := session.credential()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()

	var out struct {
		Success bool             `json:"success"`
		Request SubmittedRequest `json:"request"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/guest/requests", credential, in, &out); err != nil {
		return nil, err
	}
	return &out.Request, nil
}

// GetRequest reads one of the session's requests.
func (c *Client) GetRequest(ctx context.Context, session *SessionContext, id string) (*RequestView, error) {
	credential, err := session.credential()
	if err != nil {
		return nil, err
	}

	var out RequestView
	if err := c.doJSON(ctx, http.MethodGet, "/guest/requests/"+id, credential, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRequests returns the session's requests, newest first.
func (c *Client) ListRequests(ctx context.Context, session *SessionContext) ([]RequestView, error) {
	credential, err := session.credential()
	if err != nil {
		return nil, err
	}

	var out struct {
		Requests []RequestView `json:"requests"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/guest/requests", credential, nil, &out); err != nil {
		return nil, err
	}
	return out.Requests, nil
}

// WatchOptions bound a request watch. Zero values take the defaults.
type WatchOptions struct {
	Interval    time.Duration // poll cadence, default 5s
	MaxDuration time.Duration // hard stop, default 10m
}

// WatchRequest polls one request until it turns terminal, the watch window
// lapses, or ctx is done. onUpdate fires on every observed status change,
// including the first read. The last observed view is always returned.
func (c *Client) WatchRequest(ctx context.Context, session *SessionContext, id string, opts WatchOptions, onUpdate func(*RequestView)) (*RequestView, error) {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 10 * time.Minute
	}

	ctx, cancel := context.WithTimeout(ctx, opts.MaxDuration)
	defer cancel()

	var last *RequestView
	poll := func() (bool, error) {
		view, err := c.GetRequest(ctx, session, id)
		if err != nil {
			return false, err
		}
		if last == nil || view.Status != last.Status {
			if onUpdate != nil {
				onUpdate(view)
			}
		}
		last = view
		return view.Terminal(), nil
	}

	done, err := poll()
	if err != nil {
		return last, err
	}
	if done {
		return last, nil
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return last, fmt.Errorf("watch ended: %w", ctx.Err())
		case <-ticker.C:
			done, err := poll()
			if err != nil {
				return last, err
			}
			if done {
				return last, nil
			}
		}
	}
}
