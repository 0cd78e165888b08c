package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeRateLimitRepo struct {
	mu         sync.Mutex
	sweeps     int
	cleanupErr error
}

func (f *fakeRateLimitRepo) CheckRateLimit(context.Context, string, int, time.Duration) (bool, error) {
	return true, nil
}

func (f *fakeRateLimitRepo) CleanupExpired(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	return 1, f.cleanupErr
}

func (f *fakeRateLimitRepo) sweepCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sweeps
}

func waitForSweeps(t *testing.T, repo *fakeRateLimitRepo, want int) {
	t.Helper()
	deadline := time.After(time.Second)
	for repo.sweepCount() < want {
		select {
		case <-deadline:
			t.Fatalf("sweeper ran %d times, want at least %d", repo.sweepCount(), want)
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func TestSweepExpiredRunsUntilCancelled(t *testing.T) {
	repo := &fakeRateLimitRepo{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		SweepExpired(ctx, repo, 2*time.Millisecond)
		close(done)
	}()

	waitForSweeps(t, repo, 2)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}

func TestSweepExpiredKeepsGoingOnError(t *testing.T) {
	repo := &fakeRateLimitRepo{cleanupErr: errors.New("db down")}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go SweepExpired(ctx, repo, 2*time.Millisecond)

	// A failing cleanup must not kill the loop.
	waitForSweeps(t, repo, 3)
}
