package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/innkeep/innkeep/pkg/auth"
	"github.com/innkeep/innkeep/pkg/config"
	"github.com/innkeep/innkeep/pkg/events"
	"github.com/innkeep/innkeep/pkg/logger"
	"github.com/innkeep/innkeep/services/portal/internal/domain"
	"github.com/innkeep/innkeep/services/portal/internal/repository"
)

type RequestService interface {
	Submit(ctx context.Context, claims *auth.Claims, req *domain.SubmitRequestReq) (*domain.ServiceRequest, error)
	Get(ctx context.Context, id string) (*domain.ServiceRequest, error)
	ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]domain.ServiceRequest, error)
	ListByTenant(ctx context.Context, tenantID string, status *domain.RequestStatus, limit, offset int) ([]domain.ServiceRequest, error)
	UpdateStatus(ctx context.Context, id string, patch domain.StatusPatch) (*domain.ServiceRequest, error)
}

type requestService struct {
	requestRepo repository.RequestRepository
	eventBus    events.Publisher
	config      *config.Config
}

func NewRequestService(
	requestRepo repository.RequestRepository,
	eventBus events.Publisher,
	config *config.Config,
) RequestService {
	return &requestService{
		requestRepo: requestRepo,
		eventBus:    eventBus,
		config:      config,
	}
}

func (s *requestService) Submit(ctx context.Context, claims *auth.Claims, req *domain.SubmitRequestReq) (*domain.ServiceRequest, error) {
	if req.Priority == "" {
		req.Priority = domain.PriorityNormal
	}
	if _, ok := domain.ParseRequestPriority(string(req.Priority)); !ok {
		return nil, fmt.Errorf("%w: unknown priority %q", domain.ErrValidationFailed, req.Priority)
	}
	if err := req.Payload.Validate(req.RequestType); err != nil {
		return nil, err
	}

	now := time.Now()
	request := &domain.ServiceRequest{
		ID:             uuid.NewString(),
		SessionID:      claims.SessionID,
		TenantID:       claims.TenantID,
		TrackingNumber: newTrackingNumber(),
		RequestType:    req.RequestType,
		Payload:        req.Payload,
		Priority:       req.Priority,
		Status:         domain.RequestPending,
		Notes:          req.Payload.Summary(req.RequestType),
		RoomNumber:     claims.Room,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create service request: %w", err)
	}

	event := events.RequestCreatedEvent{
		RequestID:      request.ID,
		SessionID:      request.SessionID,
		TenantID:       request.TenantID,
		TrackingNumber: request.TrackingNumber,
		RequestType:    string(request.RequestType),
		Priority:       string(request.Priority),
		RoomNumber:     request.RoomNumber,
		Summary:        request.Notes,
		CreatedAt:      request.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.RequestCreated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish request created event", "error", err, "request_id", request.ID)
	}

	// The request row is the durable artifact; the SMS confirmation is
	// best-effort and must never fail the submission.
	if req.SMSEnabled && req.GuestPhone != "" {
		notification := events.NotificationEvent{
			Channel:   "sms",
			Recipient: req.GuestPhone,
			Body: fmt.Sprintf("Your request %s has been received. We'll keep you posted.",
				request.TrackingNumber),
			Template: "request_received",
			Data: map[string]interface{}{
				"tracking_number": request.TrackingNumber,
				"guest_name":      req.GuestName,
				"summary":         request.Notes,
			},
		}
		if err := s.eventBus.Publish(ctx, events.NotifySend, notification); err != nil {
			logger.ErrorContext(ctx, "Failed to queue SMS notification", "error", err, "request_id", request.ID)
		}
	}

	return request, nil
}

func (s *requestService) Get(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	return s.requestRepo.GetByID(ctx, id)
}

func (s *requestService) ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]domain.ServiceRequest, error) {
	return s.requestRepo.ListBySession(ctx, sessionID, limit, offset)
}

func (s *requestService) ListByTenant(ctx context.Context, tenantID string, status *domain.RequestStatus, limit, offset int) ([]domain.ServiceRequest, error) {
	return s.requestRepo.ListByTenant(ctx, tenantID, status, limit, offset)
}

func (s *requestService) UpdateStatus(ctx context.Context, id string, patch domain.StatusPatch) (*domain.ServiceRequest, error) {
	existing, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	if existing == nil {
		return nil, domain.ErrRequestNotFound
	}

	if !existing.Status.CanTransitionTo(patch.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, existing.Status, patch.Status)
	}

	updated, err := s.requestRepo.UpdateStatus(ctx, id, existing.Status, patch.Status, patch.Notes)
	if err != nil {
		return nil, fmt.Errorf("failed to update request status: %w", err)
	}
	if updated == nil {
		// Someone else moved the status between our read and the swap.
		return nil, fmt.Errorf("%w: request changed concurrently", domain.ErrInvalidTransition)
	}

	event := events.RequestStatusChangedEvent{
		RequestID:   updated.ID,
		SessionID:   updated.SessionID,
		TenantID:    updated.TenantID,
		OldStatus:   string(existing.Status),
		NewStatus:   string(updated.Status),
		Notes:       updated.Notes,
		CompletedAt: updated.CompletedAt,
		ChangedAt:   updated.UpdatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.RequestStatusChanged, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish status changed event", "error", err, "request_id", updated.ID)
	}

	return updated, nil
}

func newTrackingNumber() string {
	return "SR-" + strings.ToUpper(uuid.NewString()[:8])
}
