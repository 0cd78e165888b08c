package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type RequestStatus string

const (
	RequestPending      RequestStatus = "pending"
	RequestAcknowledged RequestStatus = "acknowledged"
	RequestInProgress   RequestStatus = "in_progress"
	RequestCompleted    RequestStatus = "completed"
	RequestCancelled    RequestStatus = "cancelled"
)

var statusRank = map[RequestStatus]int{
	RequestPending:      0,
	RequestAcknowledged: 1,
	RequestInProgress:   2,
	RequestCompleted:    3,
}

func ParseRequestStatus(s string) (RequestStatus, bool) {
	switch RequestStatus(s) {
	case RequestPending, RequestAcknowledged, RequestInProgress, RequestCompleted, RequestCancelled:
		return RequestStatus(s), true
	default:
		return "", false
	}
}

// Terminal reports whether no further transitions are possible.
func (s RequestStatus) Terminal() bool {
	return s == RequestCompleted || s == RequestCancelled
}

// CanTransitionTo enforces the monotonic status machine: forward-only moves,
// with cancelled reachable from any non-terminal state.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == RequestCancelled {
		return true
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

type RequestPriority string

const (
	PriorityLow    RequestPriority = "low"
	PriorityNormal RequestPriority = "normal"
	PriorityHigh   RequestPriority = "high"
	PriorityUrgent RequestPriority = "urgent"
)

func ParseRequestPriority(s string) (RequestPriority, bool) {
	switch RequestPriority(s) {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return RequestPriority(s), true
	default:
		return "", false
	}
}

type RequestType string

const (
	RequestMaintenance  RequestType = "maintenance"
	RequestRoomService  RequestType = "room_service"
	RequestHousekeeping RequestType = "housekeeping"
	RequestAmenity      RequestType = "amenity"
	RequestGeneral      RequestType = "general"
)

var (
	ErrValidationFailed  = errors.New("validation failed")
	ErrRequestNotFound   = errors.New("request not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// RequestPayload is a tagged union over request types: exactly the variant
// matching the request type must be set.
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
	Service string `json:"service"` // e.g. full_clean, towels, turndown
	Remarks string `json:"remarks,omitempty"`
}

type AmenityPayload struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

type GeneralPayload struct {
	Message string `json:"message"`
}

var maintenanceIssueLabels = map[string]string{
	"plumbing":   "Plumbing",
	"electrical": "Electrical",
	"hvac":       "Heating / Cooling",
	"appliance":  "Appliance",
	"furniture":  "Furniture",
	"other":      "Maintenance",
}

// Validate checks the variant matching typ is present and well formed.
func (p *RequestPayload) Validate(typ RequestType) error {
	switch typ {
	case RequestMaintenance:
		if p.Maintenance == nil || strings.TrimSpace(p.Maintenance.Description) == "" {
			return fmt.Errorf("%w: maintenance requests need an issue description", ErrValidationFailed)
		}
		if p.Maintenance.IssueType == "" {
			return fmt.Errorf("%w: maintenance requests need an issue type", ErrValidationFailed)
		}
	case RequestRoomService:
		if p.RoomService == nil || len(p.RoomService.Items) == 0 {
			return fmt.Errorf("%w: room service orders need at least one item", ErrValidationFailed)
		}
		for _, item := range p.RoomService.Items {
			if item.Name == "" || item.Quantity <= 0 {
				return fmt.Errorf("%w: each order item needs a name and quantity", ErrValidationFailed)
			}
		}
	case RequestHousekeeping:
		if p.Housekeeping == nil || p.Housekeeping.Service == "" {
			return fmt.Errorf("%w: housekeeping requests need a service", ErrValidationFailed)
		}
	case RequestAmenity:
		if p.Amenity == nil || p.Amenity.Item == "" {
			return fmt.Errorf("%w: amenity requests need an item", ErrValidationFailed)
		}
	case RequestGeneral:
		if p.General == nil || strings.TrimSpace(p.General.Message) == "" {
			return fmt.Errorf("%w: general requests need a message", ErrValidationFailed)
		}
	default:
		return fmt.Errorf("%w: unknown request type %q", ErrValidationFailed, typ)
	}
	return nil
}

// Summary derives the human-readable line shown in staff chat and
// notification views. Handling is exhaustive over request types.
func (p *RequestPayload) Summary(typ RequestType) string {
	switch typ {
	case RequestMaintenance:
		label, ok := maintenanceIssueLabels[p.Maintenance.IssueType]
		if !ok {
			label = maintenanceIssueLabels["other"]
		}
		return fmt.Sprintf("%s: %s", label, p.Maintenance.Description)
	case RequestRoomService:
		parts := make([]string, 0, len(p.RoomService.Items))
		for _, item := range p.RoomService.Items {
			parts = append(parts, fmt.Sprintf("%dx %s", item.Quantity, item.Name))
		}
		summary := "Room service: " + strings.Join(parts, ", ")
		if p.RoomService.Remarks != "" {
			summary += " (" + p.RoomService.Remarks + ")"
		}
		return summary
	case RequestHousekeeping:
		summary := "Housekeeping: " + p.Housekeeping.Service
		if p.Housekeeping.Remarks != "" {
			summary += " (" + p.Housekeeping.Remarks + ")"
		}
		return summary
	case RequestAmenity:
		qty := p.Amenity.Quantity
		if qty <= 0 {
			qty = 1
		}
		return fmt.Sprintf("Amenity: %dx %s", qty, p.Amenity.Item)
	case RequestGeneral:
		return "Guest message: " + p.General.Message
	default:
		return string(typ)
	}
}

// ServiceRequest is one guest-initiated service ask tied to a session.
type ServiceRequest struct {
	ID             string          `json:"request_id"`
	SessionID      string          `json:"session_id"`
	TenantID       string          `json:"tenant_id"`
	TrackingNumber string          `json:"tracking_number"`
	RequestType    RequestType     `json:"request_type"`
	Payload        RequestPayload  `json:"request_data"`
	Priority       RequestPriority `json:"priority"`
	Status         RequestStatus   `json:"status"`
	Notes          string          `json:"notes"`
	RoomNumber     string          `json:"room_number"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

type SubmitRequestReq struct {
	RequestType RequestType     `json:"request_type"`
	Payload     RequestPayload  `json:"request_data"`
	Priority    RequestPriority `json:"priority"`
	SMSEnabled  bool            `json:"sms_enabled"`
	GuestPhone  string          `json:"guest_phone,omitempty"`
	GuestName   string          `json:"guest_name,omitempty"`
}

type SubmitRequestRes struct {
	RequestID      string    `json:"request_id"`
	TrackingNumber string    `json:"tracking_number"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

type StatusPatch struct {
	Status RequestStatus `json:"status"`
	Notes  *string       `json:"notes,omitempty"`
}
