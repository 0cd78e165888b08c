package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/innkeep/innkeep/pkg/auth"
	"github.com/innkeep/innkeep/pkg/config"
	"github.com/innkeep/innkeep/pkg/logger"
	"github.com/innkeep/innkeep/pkg/qrtoken"
	"github.com/innkeep/innkeep/services/portal/internal/domain"
	"github.com/innkeep/innkeep/services/portal/internal/repository"
)

type SessionService interface {
	// Validate exchanges a canonical token for a guest session and a signed
	// credential. On success exactly one GuestSession row and exactly one
	// ScanLog row are written.
	Validate(ctx context.Context, rawToken string, device domain.DeviceInfo, clientIP string) (*domain.SessionGrant, error)
	// ResolveShortlink maps /q/{code} to its canonical token.
	ResolveShortlink(ctx context.Context, code string) (string, error)
}

type sessionService struct {
	qrRepo        repository.QRRepository
	sessionRepo   repository.SessionRepository
	scanLogRepo   repository.ScanLogRepository
	rateLimitRepo repository.RateLimitRepository
	config        *config.Config
}

func NewSessionService(
	qrRepo repository.QRRepository,
	sessionRepo repository.SessionRepository,
	scanLogRepo repository.ScanLogRepository,
	rateLimitRepo repository.RateLimitRepository,
	config *config.Config,
) SessionService {
	return &sessionService{
		qrRepo:        qrRepo,
		sessionRepo:   sessionRepo,
		scanLogRepo:   scanLogRepo,
		rateLimitRepo: rateLimitRepo,
		config:        config,
	}
}

func (s *sessionService) Validate(ctx context.Context, rawToken string, device domain.DeviceInfo, clientIP string) (*domain.SessionGrant, error) {
	token, _, isShort, err := qrtoken.Canonicalize(rawToken)
	if err != nil || isShort {
		// Shortlinks must be resolved to the canonical form before any
		// session logic runs; reaching here with one is a caller bug.
		return nil, domain.ErrInvalidTokenFormat
	}

	code, err := s.qrRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to look up qr code: %w", err)
	}
	if code == nil {
		return nil, domain.ErrTokenNotFound
	}

	// Per-QR and per-IP limits; both fail open on limiter errors.
	allowed, err := s.rateLimitRepo.CheckRateLimit(ctx, "qr:"+code.ID, s.config.Portal.ScanRatePerQR, s.config.Portal.ScanRateWindow)
	if err != nil {
		logger.ErrorContext(ctx, "Rate limit check failed", "error", err, "qr_code_id", code.ID)
	}
	if allowed && clientIP != "" {
		allowed, err = s.rateLimitRepo.CheckRateLimit(ctx, "ip:"+clientIP, s.config.Portal.ScanRatePerIP, s.config.Portal.ScanRateWindow)
		if err != nil {
			logger.ErrorContext(ctx, "Rate limit check failed", "error", err, "ip", clientIP)
		}
	}
	if !allowed {
		s.recordScan(ctx, code.ID, domain.ScanRateLimited, device, clientIP)
		return nil, domain.ErrRateLimited
	}

	now := time.Now()
	if !code.Active {
		s.recordScan(ctx, code.ID, domain.ScanDeniedInactive, device, clientIP)
		return nil, domain.ErrTokenDeactivated
	}
	if code.Expired(now) {
		s.recordScan(ctx, code.ID, domain.ScanDeniedExpired, device, clientIP)
		return nil, domain.ErrTokenExpired
	}

	// Success path: the scan log is part of the issuance contract, not a
	// best-effort side channel, so a failed write fails the call.
	scan := &domain.ScanLog{
		ID:        uuid.NewString(),
		QRCodeID:  code.ID,
		ScanType:  domain.ScanValidated,
		UserAgent: device.UserAgent,
		Language:  device.Language,
		RemoteIP:  clientIP,
		CreatedAt: now,
	}
	if err := s.scanLogRepo.Create(ctx, scan); err != nil {
		return nil, fmt.Errorf("failed to record scan: %w", err)
	}

	session := &domain.GuestSession{
		ID:         uuid.NewString(),
		TenantID:   code.TenantID,
		QRCodeID:   code.ID,
		HotelName:  code.HotelName,
		RoomNumber: code.RoomNumber,
		Services:   code.Services,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.config.Auth.GuestSessionTTL),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create guest session: %w", err)
	}

	credential, err := auth.NewGuestSessionToken(
		session.ID, session.TenantID, session.QRCodeID, session.RoomNumber,
		session.Services, s.config.Auth.JWTSecret, session.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mint session credential: %w", err)
	}

	logger.InfoContext(ctx, "Guest session issued",
		"session_id", session.ID,
		"tenant_id", session.TenantID,
		"qr_code_id", session.QRCodeID,
		"room", session.RoomNumber,
	)

	return &domain.SessionGrant{Session: session, Token: credential}, nil
}

// recordScan writes denial-path audit records; failures are logged only, the
// guest already has an error on the way.
func (s *sessionService) recordScan(ctx context.Context, qrCodeID string, scanType domain.ScanType, device domain.DeviceInfo, clientIP string) {
	scan := &domain.ScanLog{
		ID:        uuid.NewString(),
		QRCodeID:  qrCodeID,
		ScanType:  scanType,
		UserAgent: device.UserAgent,
		Language:  device.Language,
		RemoteIP:  clientIP,
		CreatedAt: time.Now(),
	}
	if err := s.scanLogRepo.Create(ctx, scan); err != nil {
		logger.ErrorContext(ctx, "Failed to record scan", "error", err, "qr_code_id", qrCodeID, "scan_type", scanType)
	}
}

func (s *sessionService) ResolveShortlink(ctx context.Context, code string) (string, error) {
	token, err := s.qrRepo.GetShortlinkToken(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to resolve shortlink: %w", err)
	}
	if token == "" {
		return "", domain.ErrShortlinkNotFound
	}
	return token, nil
}
