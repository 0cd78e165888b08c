package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/innkeep/innkeep/services/frontdesk/internal/domain"
)

type StaffRepository interface {
	Create(ctx context.Context, user *domain.StaffUser) error
	GetByID(ctx context.Context, id string) (*domain.StaffUser, error)
	GetByEmail(ctx context.Context, tenantID, email string) (*domain.StaffUser, error)
	ListByTenant(ctx context.Context, tenantID string) ([]domain.StaffUser, error)
	Update(ctx context.Context, user *domain.StaffUser) error
	Delete(ctx context.Context, id string) error
}

type staffRepository struct {
	pool *pgxpool.Pool
}

func NewStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &staffRepository{pool: pool}
}

const staffCols = `id, tenant_id, email, name, role, password_hash, created_at`

func scanStaff(row pgx.Row) (*domain.StaffUser, error) {
	var u domain.StaffUser
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *staffRepository) Create(ctx context.Context, user *domain.StaffUser) error {
	const q = `INSERT INTO staff_users (id, tenant_id, email, name, role, password_hash, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q,
		user.ID, user.TenantID, user.Email, user.Name, user.Role, user.PasswordHash, user.CreatedAt,
	)
	return err
}

func (r *staffRepository) GetByID(ctx context.Context, id string) (*domain.StaffUser, error) {
	const q = `SELECT ` + staffCols + ` FROM staff_users WHERE id=$1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	user, err := scanStaff(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return user, err
}

func (r *staffRepository) GetByEmail(ctx context.Context, tenantID, email string) (*domain.StaffUser, error) {
	const q = `SELECT ` + staffCols + ` FROM staff_users WHERE tenant_id=$1 AND lower(email)=lower($2)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	user, err := scanStaff(r.pool.QueryRow(ctx, q, tenantID, email))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return user, err
}

func (r *staffRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.StaffUser, error) {
	const q = `SELECT ` + staffCols + ` FROM staff_users WHERE tenant_id=$1 ORDER BY created_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.StaffUser
	for rows.Next() {
		user, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *staffRepository) Update(ctx context.Context, user *domain.StaffUser) error {
	const q = `UPDATE staff_users SET name=$2, role=$3, password_hash=$4 WHERE id=$1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, user.ID, user.Name, user.Role, user.PasswordHash)
	return err
}

func (r *staffRepository) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM staff_users WHERE id=$1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id)
	return err
}
