package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/caremont/hospital-api/internal/repositories"
)

// CleanupManager periodically clears expired account locks and removes
// expired password reset tokens from the database.
type CleanupManager struct {
	userRepo  *repositories.UserRepository
	resetRepo *repositories.PasswordResetRepository
	logger    *slog.Logger
	interval  time.Duration
	stopCh    chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	userRepo *repositories.UserRepository,
	resetRepo *repositories.PasswordResetRepository,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		userRepo:  userRepo,
		resetRepo: resetRepo,
		logger:    logger,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cm.logger.Info("starting periodic cleanup")

	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	unlocked, err := cm.userRepo.ClearExpiredLocks(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to clear expired account locks", slog.Any("error", err))
	} else if unlocked > 0 {
		cm.logger.Info("expired account locks cleared", slog.Int64("accounts", unlocked))
	}

	deleted, err := cm.resetRepo.CleanupExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to cleanup expired reset tokens", slog.Any("error", err))
	} else if deleted > 0 {
		cm.logger.Info("expired reset token cleanup completed", slog.Int64("rows_deleted", deleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
