package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/securedbank/sentinel/internal/security"
)

// AttemptPruner removes aged login attempt rows from the database.
type AttemptPruner interface {
	DeleteExpiredAttempts(ctx context.Context, olderThan time.Duration) (int64, error)
}

// CleanupManager periodically reaps expired in-memory security state and
// aged login attempt rows
type CleanupManager struct {
	services      *security.Services
	attempts      AttemptPruner
	logger        *slog.Logger
	interval      time.Duration
	attemptMaxAge time.Duration
	stopCh        chan struct{}
}

// NewCleanupManager creates a new cleanup manager. attempts may be nil
// when the service runs without a database.
func NewCleanupManager(
	services *security.Services,
	attempts AttemptPruner,
	logger *slog.Logger,
	interval time.Duration,
	attemptMaxAge time.Duration,
) *CleanupManager {
	return &CleanupManager{
		services:      services,
		attempts:      attempts,
		logger:        logger,
		interval:      interval,
		attemptMaxAge: attemptMaxAge,
		stopCh:        make(chan struct{}),
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

// runCleanup reaps expired security state in memory and in the database
func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cm.services.Cleanup(cm.logger)

	if cm.attempts == nil {
		return
	}

	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rowsDeleted, err := cm.attempts.DeleteExpiredAttempts(cleanupCtx, cm.attemptMaxAge)
	if err != nil {
		cm.logger.Error("failed to cleanup expired login attempts", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		cm.logger.Info("expired login attempt cleanup completed", slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
