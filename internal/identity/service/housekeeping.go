package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/invopay/identity/internal/identity/store"
)

// HousekeepingService periodically prunes expired refresh-token pairs so the
// users table doesn't carry stale credentials around forever. Expired tokens
// are already unusable; this is hygiene, not enforcement.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping worker with the given
// interval. A non-positive interval defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker, blocking until any
// in-progress cleanup finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	now := time.Now()

	n, err := s.Store.Users().ClearExpiredRefreshTokens(ctx, now)
	if err != nil {
		s.Logger.Error("failed to clear expired refresh tokens", "error", err)
	} else if n > 0 {
		s.Logger.Info("cleared expired refresh tokens", "count", n)
	}

	n, err = s.Store.Users().ClearExpiredLockouts(ctx, now)
	if err != nil {
		s.Logger.Error("failed to clear expired lockouts", "error", err)
	} else if n > 0 {
		s.Logger.Info("cleared expired lockouts", "count", n)
	}
}
