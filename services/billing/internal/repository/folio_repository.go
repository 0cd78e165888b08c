package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/innkeep/innkeep/services/billing/internal/domain"
)

type FolioRepository interface {
	// GetByReservation loads the folio with its items and computed balance.
	GetByReservation(ctx context.Context, tenantID, reservationID string) (*domain.Folio, error)
	// Checkout runs the whole checkout as one transaction: the folio row is
	// locked, the balance recomputed under that lock and gated, and only then
	// are reservation, room and folio flipped. A blocked checkout commits
	// nothing and is reported as a result, not an error.
	Checkout(ctx context.Context, tenantID, reservationID string, toleranceCents int64) (*domain.CheckoutResult, error)
	// RecordPayment appends a payment item keyed by an external id; replaying
	// the same id is a no-op. Returns whether a new row was written.
	RecordPayment(ctx context.Context, item *domain.FolioItem) (bool, error)
}

type folioRepository struct {
	pool *pgxpool.Pool
}

func NewFolioRepository(pool *pgxpool.Pool) FolioRepository {
	return &folioRepository{pool: pool}
}

const balanceQuery = `SELECT COALESCE(SUM(
		CASE WHEN kind='charge' THEN amount_cents ELSE -amount_cents END
	), 0) FROM folio_items WHERE folio_id=$1`

func (r *folioRepository) GetByReservation(ctx context.Context, tenantID, reservationID string) (*domain.Folio, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var folio domain.Folio
	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, reservation_id, status, created_at
		 FROM folios WHERE tenant_id=$1 AND reservation_id=$2`,
		tenantID, reservationID,
	).Scan(&folio.ID, &folio.TenantID, &folio.ReservationID, &folio.Status, &folio.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, folio_id, kind, amount_cents, description, created_at
		 FROM folio_items WHERE folio_id=$1 ORDER BY created_at`,
		folio.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.FolioItem
		if err := rows.Scan(&item.ID, &item.FolioID, &item.Kind, &item.AmountCents, &item.Description, &item.CreatedAt); err != nil {
			return nil, err
		}
		if item.Kind == domain.ItemCharge {
			folio.BalanceCents += item.AmountCents
		} else {
			folio.BalanceCents -= item.AmountCents
		}
		folio.Items = append(folio.Items, item)
	}
	return &folio, rows.Err()
}

func (r *folioRepository) Checkout(ctx context.Context, tenantID, reservationID string, toleranceCents int64) (*domain.CheckoutResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin checkout transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var folioID string
	var folioStatus domain.FolioStatus
	var roomID string
	err = tx.QueryRow(ctx,
		`SELECT f.id, f.status, res.room_id
		 FROM folios f JOIN reservations res ON res.id = f.reservation_id
		 WHERE f.tenant_id=$1 AND f.reservation_id=$2
		 FOR UPDATE OF f`,
		tenantID, reservationID,
	).Scan(&folioID, &folioStatus, &roomID)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrFolioNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock folio: %w", err)
	}

	if folioStatus == domain.FolioClosed {
		return &domain.CheckoutResult{
			Success: false,
			FolioID: folioID,
			RoomID:  roomID,
			Message: "This reservation has already been checked out",
		}, nil
	}

	// The balance is recomputed under the row lock; a stale read from the
	// staff console cannot sneak an unsettled checkout through.
	var balance int64
	if err := tx.QueryRow(ctx, balanceQuery, folioID).Scan(&balance); err != nil {
		return nil, fmt.Errorf("failed to compute balance: %w", err)
	}

	if ok, msg := domain.BalanceGate(balance, toleranceCents); !ok {
		return &domain.CheckoutResult{
			Success:      false,
			FolioID:      folioID,
			RoomID:       roomID,
			Message:      msg,
			FinalBalance: balance,
		}, nil
	}

	if _, err := tx.Exec(ctx,
		`UPDATE reservations SET status='checked_out' WHERE id=$1 AND tenant_id=$2`,
		reservationID, tenantID,
	); err != nil {
		return nil, fmt.Errorf("failed to update reservation: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE rooms SET status='needs_cleaning' WHERE id=$1 AND tenant_id=$2`,
		roomID, tenantID,
	); err != nil {
		return nil, fmt.Errorf("failed to update room: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE folios SET status='closed' WHERE id=$1`,
		folioID,
	); err != nil {
		return nil, fmt.Errorf("failed to close folio: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit checkout: %w", err)
	}

	return &domain.CheckoutResult{
		Success:      true,
		FolioID:      folioID,
		RoomID:       roomID,
		Message:      "Checkout complete",
		FinalBalance: balance,
	}, nil
}

func (r *folioRepository) RecordPayment(ctx context.Context, item *domain.FolioItem) (bool, error) {
	const q = `INSERT INTO folio_items (id, folio_id, kind, amount_cents, description, created_at)
		VALUES ($1,$2,'payment',$3,$4,$5)
		ON CONFLICT (id) DO NOTHING`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, item.ID, item.FolioID, item.AmountCents, item.Description, item.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
