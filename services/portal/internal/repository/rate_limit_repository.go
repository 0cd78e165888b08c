package repository

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/innkeep/innkeep/pkg/logger"
)

// RateLimitRepository counts scan attempts per key inside a sliding window.
type RateLimitRepository interface {
	// CheckRateLimit records one attempt against key and reports whether it
	// stays within limit. A limiter outage never blocks a guest: on error
	// the attempt is allowed and the error is returned so callers can log it.
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	// CleanupExpired deletes rows whose retention lapsed.
	CleanupExpired(ctx context.Context) (int64, error)
}

type rateLimitRepository struct {
	pool *pgxpool.Pool
}

func NewRateLimitRepository(pool *pgxpool.Pool) RateLimitRepository {
	return &rateLimitRepository{pool: pool}
}

func (r *rateLimitRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	// Keys carry QR ids and client IPs; only a digest ever reaches storage.
	digest := fmt.Sprintf("%x", sha256.Sum256([]byte(key)))

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	now := time.Now()
	windowStart := now.Add(-window)

	// One UPSERT so check and increment stay atomic across portal replicas.
	// A row whose window lapsed restarts its count instead of being deleted
	// first; the sweeper reclaims rows nothing touches anymore.
	const q = `
		INSERT INTO rate_limits (rl_key, count, window_start, expires_at)
		VALUES ($1, 1, $2, $3)
		ON CONFLICT (rl_key) DO UPDATE SET
			count = CASE
				WHEN rate_limits.window_start < $2 THEN 1
				ELSE rate_limits.count + 1
			END,
			window_start = CASE
				WHEN rate_limits.window_start < $2 THEN $2
				ELSE rate_limits.window_start
			END,
			expires_at = $3
		RETURNING count`

	var count int
	if err := r.pool.QueryRow(ctx, q, digest, windowStart, now.Add(time.Hour)).Scan(&count); err != nil {
		// Fail open: scan limiting is abuse protection, not an issuance
		// precondition. The error still goes up so the outage is visible.
		return true, fmt.Errorf("rate limit upsert failed: %w", err)
	}
	return count <= limit, nil
}

func (r *rateLimitRepository) CleanupExpired(ctx context.Context) (int64, error) {
	const q = `DELETE FROM rate_limits WHERE expires_at < now()`

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// SweepExpired runs CleanupExpired every interval until ctx ends. Errors are
// logged and the sweep keeps going.
func SweepExpired(ctx context.Context, repo RateLimitRepository, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.CleanupExpired(ctx)
			if err != nil {
				logger.Error("Rate limit cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("Expired rate limit rows removed", "rows", n)
			}
		}
	}
}
