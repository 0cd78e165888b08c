package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/innkeep/innkeep/services/portal/internal/domain"
)

type SessionRepository interface {
	Create(ctx context.Context, s *domain.GuestSession) error
	GetByID(ctx context.Context, id string) (*domain.GuestSession, error)
}

type ScanLogRepository interface {
	Create(ctx context.Context, l *domain.ScanLog) error
}

type sessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

// Sessions are insert-only; there is deliberately no Update method.
func (r *sessionRepository) Create(ctx context.Context, s *domain.GuestSession) error {
	const q = `INSERT INTO guest_sessions (
		id, tenant_id, qr_code_id, hotel_name, room_number, services, issued_at, expires_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q,
		s.ID, s.TenantID, s.QRCodeID, s.HotelName, s.RoomNumber,
		s.Services, s.IssuedAt, s.ExpiresAt,
	)
	return err
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.GuestSession, error) {
	const q = `SELECT id, tenant_id, qr_code_id, hotel_name, room_number, services, issued_at, expires_at
		FROM guest_sessions WHERE id=$1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s domain.GuestSession
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&s.ID, &s.TenantID, &s.QRCodeID, &s.HotelName, &s.RoomNumber,
		&s.Services, &s.IssuedAt, &s.ExpiresAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type scanLogRepository struct {
	pool *pgxpool.Pool
}

func NewScanLogRepository(pool *pgxpool.Pool) ScanLogRepository {
	return &scanLogRepository{pool: pool}
}

func (r *scanLogRepository) Create(ctx context.Context, l *domain.ScanLog) error {
	const q = `INSERT INTO scan_logs (id, qr_code_id, scan_type, user_agent, language, remote_ip, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q,
		l.ID, l.QRCodeID, l.ScanType, l.UserAgent, l.Language, l.RemoteIP, l.CreatedAt,
	)
	return err
}
