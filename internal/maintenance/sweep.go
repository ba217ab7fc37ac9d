// Package maintenance runs scheduled background upkeep: collecting
// stale guest accounts and their data.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/shared"
	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/store"
)

// CleanupCallback is called for every guest removed by the sweep, so
// live sessions can be torn down alongside the data.
type CleanupCallback func(userID string)

// Sweeper periodically deletes guest users idle past their TTL.
type Sweeper struct {
	repo      store.Repository
	ttl       time.Duration
	onCleanup CleanupCallback
	cron      *cron.Cron
}

// NewSweeper creates a sweeper. onCleanup may be nil.
func NewSweeper(repo store.Repository, ttl time.Duration, onCleanup CleanupCallback) *Sweeper {
	return &Sweeper{
		repo:      repo,
		ttl:       ttl,
		onCleanup: onCleanup,
		cron:      cron.New(),
	}
}

// Start schedules the sweep with a cron spec such as "@every 1h" and
// runs until Stop is called.
func (s *Sweeper) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.Sweep(ctx)
	}); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	s.cron.Start()
	slog.Info("Guest sweeper started", "spec", spec, "ttl", s.ttl)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep removes every stale guest now. Also usable directly for a
// one-shot cleanup at startup.
func (s *Sweeper) Sweep(ctx context.Context) {
	stale, err := s.repo.GetStaleGuests(ctx, s.ttl)
	if err != nil {
		slog.Error("Sweep failed to list stale guests", "error", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	slog.Info("Sweep found stale guests", "count", len(stale))
	cleaned := 0
	now := time.Now()
	for _, guest := range stale {
		slog.Info("Sweep deleting stale guest", "user_id", guest.UserID, "idle", guest.IdleFor(now))
		if s.onCleanup != nil {
			s.onCleanup(guest.UserID)
		}
		if err := deleteUserWithRetry(ctx, s.repo, guest.UserID); err != nil {
			slog.Warn("Sweep failed to delete guest", "user_id", guest.UserID, "error", err)
			continue
		}
		cleaned++
	}
	slog.Info("Sweep completed", "cleaned", cleaned)
}

// deleteUserWithRetry deletes a user with exponential backoff to handle
// SQLITE_BUSY errors from concurrent session writes.
func deleteUserWithRetry(ctx context.Context, repo store.Repository, userID string) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		err := repo.DeleteUser(ctx, userID)
		if err == nil {
			return nil
		}

		if shared.IsSQLiteConflictError(err) {
			if i < maxRetries-1 {
				delay := baseDelay * time.Duration(1<<i)
				slog.Debug("Guest delete hit SQLITE_BUSY, retrying",
					"user_id", userID,
					"attempt", i+1,
					"delay", delay)
				time.Sleep(delay)
				continue
			}
		}

		if ctx.Err() != nil {
			slog.Debug("Sweep context canceled, cleanup may be incomplete",
				"user_id", userID,
				"error", err)
			return nil
		}

		return fmt.Errorf("failed to delete guest %s after %d attempts: %w", userID, maxRetries, err)
	}

	return nil
}
