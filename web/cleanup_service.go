package web

import (
	"context"
	"time"

	"kydx-console/web/services"

	"go.uber.org/zap"
)

// CleanupService drops sessions that have been idle too long
type CleanupService struct {
	sessions *services.SessionService
	logger   *zap.Logger
}

// NewCleanupService creates a new cleanup service instance
func NewCleanupService(sessions *services.SessionService, logger *zap.Logger) *CleanupService {
	return &CleanupService{
		sessions: sessions,
		logger:   logger,
	}
}

// CleanupStaleSessions removes sessions idle for longer than maxAge and
// returns how many were removed.
func (cs *CleanupService) CleanupStaleSessions(maxAge time.Duration) int {
	cutoffTime := time.Now().Add(-maxAge)

	stale := cs.sessions.StaleSessions(cutoffTime)
	if len(stale) == 0 {
		cs.logger.Debug("No stale sessions found")
		return 0
	}

	for _, id := range stale {
		cs.sessions.Remove(id)
	}

	cs.logger.Info("Stale session cleanup completed",
		zap.Int("sessions_removed", len(stale)),
		zap.Int("sessions_remaining", cs.sessions.Len()))
	return len(stale)
}

// Run sweeps every interval until ctx is cancelled.
func (cs *CleanupService) Run(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cs.CleanupStaleSessions(maxAge)
		case <-ctx.Done():
			return
		}
	}
}
