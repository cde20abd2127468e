package job

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const runTimeout = time.Minute

// NotificationCleaner deletes read notifications older than a number of days
type NotificationCleaner interface {
	CleanupOld(ctx context.Context, days int) (int64, error)
}

// NotificationCleanupJob removes read notifications past the retention window
type NotificationCleanupJob struct {
	cleaner NotificationCleaner
	days    int
	logger  *zap.Logger
}

// NewNotificationCleanupJob creates a new NotificationCleanupJob instance
func NewNotificationCleanupJob(cleaner NotificationCleaner, days int, logger *zap.Logger) *NotificationCleanupJob {
	return &NotificationCleanupJob{
		cleaner: cleaner,
		days:    days,
		logger:  logger,
	}
}

// Run executes the cleanup job
func (j *NotificationCleanupJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	j.logger.Info("Starting notification cleanup job", zap.Int("days", j.days))

	deleted, err := j.cleaner.CleanupOld(ctx, j.days)
	if err != nil {
		j.logger.Error("Failed to clean up old notifications", zap.Int("days", j.days), zap.Error(err))
		return
	}

	j.logger.Info("Notification cleanup job completed", zap.Int64("deleted", deleted))
}
