package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/innkeep/innkeep/services/portal/internal/domain"
)

type RequestRepository interface {
	Create(ctx context.Context, req *domain.ServiceRequest) error
	GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error)
	ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]domain.ServiceRequest, error)
	ListByTenant(ctx context.Context, tenantID string, status *domain.RequestStatus, limit, offset int) ([]domain.ServiceRequest, error)
	// UpdateStatus is a compare-and-swap on the current status so concurrent
	// staff updates cannot double-apply a transition. Returns the updated row,
	// or nil when the row no longer holds fromStatus.
	UpdateStatus(ctx context.Context, id string, fromStatus, toStatus domain.RequestStatus, notes *string) (*domain.ServiceRequest, error)
}

type requestRepository struct {
	pool *pgxpool.Pool
}

func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

const requestCols = `id, session_id, tenant_id, tracking_number, request_type, request_data,
priority, status, notes, room_number, created_at, updated_at, completed_at`

func scanRequest(row pgx.Row) (*domain.ServiceRequest, error) {
	var req domain.ServiceRequest
	var payload []byte
	err := row.Scan(
		&req.ID, &req.SessionID, &req.TenantID, &req.TrackingNumber, &req.RequestType, &payload,
		&req.Priority, &req.Status, &req.Notes, &req.RoomNumber,
		&req.CreatedAt, &req.UpdatedAt, &req.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode request payload: %w", err)
		}
	}
	return &req, nil
}

func (r *requestRepository) Create(ctx context.Context, req *domain.ServiceRequest) error {
	const q = `INSERT INTO service_requests (
		id, session_id, tenant_id, tracking_number, request_type, request_data,
		priority, status, notes, room_number, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)`

	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode request payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err = r.pool.Exec(ctx, q,
		req.ID, req.SessionID, req.TenantID, req.TrackingNumber, req.RequestType, payload,
		req.Priority, req.Status, req.Notes, req.RoomNumber, req.CreatedAt,
	)
	return err
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	const q = `SELECT ` + requestCols + ` FROM service_requests WHERE id=$1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := scanRequest(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return req, err
}

func (r *requestRepository) ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]domain.ServiceRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `SELECT ` + requestCols + ` FROM service_requests
		WHERE session_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, sessionID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRequests(rows)
}

func (r *requestRepository) ListByTenant(ctx context.Context, tenantID string, status *domain.RequestStatus, limit, offset int) ([]domain.ServiceRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + requestCols + ` FROM service_requests WHERE tenant_id=$1`
	args := []any{tenantID}
	if status != nil {
		q += ` AND status=$2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`
		args = append(args, *status, limit, offset)
	} else {
		q += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRequests(rows)
}

func collectRequests(rows pgx.Rows) ([]domain.ServiceRequest, error) {
	var requests []domain.ServiceRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

func (r *requestRepository) UpdateStatus(ctx context.Context, id string, fromStatus, toStatus domain.RequestStatus, notes *string) (*domain.ServiceRequest, error) {
	// completed_at is set exactly once, at the transition into completed.
	const q = `UPDATE service_requests SET
			status=$3,
			notes=COALESCE($4, notes),
			completed_at=CASE WHEN $3='completed' AND completed_at IS NULL THEN now() ELSE completed_at END,
			updated_at=now()
		WHERE id=$1 AND status=$2
		RETURNING ` + requestCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := scanRequest(r.pool.QueryRow(ctx, q, id, fromStatus, toStatus, notes))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return req, err
}
