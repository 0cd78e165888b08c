package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/innkeep/innkeep/services/portal/internal/domain"
)

type QRRepository interface {
	GetByToken(ctx context.Context, token string) (*domain.QRCode, error)
	GetShortlinkToken(ctx context.Context, code string) (string, error)
}

type qrRepository struct {
	pool *pgxpool.Pool
}

func NewQRRepository(pool *pgxpool.Pool) QRRepository {
	return &qrRepository{pool: pool}
}

const qrCols = `id, tenant_id, token, hotel_name, room_number, services, active, expires_at, created_at`

func (r *qrRepository) GetByToken(ctx context.Context, token string) (*domain.QRCode, error) {
	const q = `SELECT ` + qrCols + ` FROM qr_codes WHERE token=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var c domain.QRCode
	err := r.pool.QueryRow(ctx, q, token).Scan(
		&c.ID, &c.TenantID, &c.Token, &c.HotelName, &c.RoomNumber,
		&c.Services, &c.Active, &c.ExpiresAt, &c.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *qrRepository) GetShortlinkToken(ctx context.Context, code string) (string, error) {
	const q = `SELECT token FROM shortlinks WHERE code=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var token string
	err := r.pool.QueryRow(ctx, q, code).Scan(&token)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	return token, err
}
