package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/tanaka-0224/Iverse2/internal/domain"
	"github.com/tanaka-0224/Iverse2/internal/dto"
	"github.com/tanaka-0224/Iverse2/internal/metrics"
	"github.com/tanaka-0224/Iverse2/internal/repository"
	"github.com/tanaka-0224/Iverse2/internal/response"
)

const defaultNotificationLimit = 50

// NotificationService defines the interface for notification business logic
type NotificationService interface {
	// Notify stores and publishes n. Failures are logged and counted, never returned.
	Notify(ctx context.Context, n *domain.Notification)
	List(ctx context.Context, identity domain.Identity, unreadOnly bool) ([]*dto.NotificationResponse, error)
	UnreadCount(ctx context.Context, identity domain.Identity) (*dto.UnreadCountResponse, error)
	MarkAsRead(ctx context.Context, identity domain.Identity, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, identity domain.Identity) (*dto.MarkAllReadResponse, error)
	// InvalidateUnread drops the cached unread count of userID
	InvalidateUnread(ctx context.Context, userID uuid.UUID)
	// WithdrawRequest removes likerID's undecided request for boardID from
	// ownerID's list. Failures are logged, never returned.
	WithdrawRequest(ctx context.Context, ownerID, boardID, likerID uuid.UUID)
	CleanupOld(ctx context.Context, days int) (int64, error)
}

type notificationServiceImpl struct {
	repo     repository.NotificationRepository
	redis    *redis.Client
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewNotificationService creates a new instance of NotificationService.
// redisClient may be nil; publishing and caching are then skipped.
func NewNotificationService(
	repo repository.NotificationRepository,
	redisClient *redis.Client,
	cacheTTL time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) NotificationService {
	return &notificationServiceImpl{
		repo:     repo,
		redis:    redisClient,
		cacheTTL: cacheTTL,
		metrics:  m,
		logger:   logger,
	}
}

func notificationChannel(userID uuid.UUID) string {
	return fmt.Sprintf("notifications:user:%s", userID.String())
}

func unreadCacheKey(userID uuid.UUID) string {
	return fmt.Sprintf("unread:%s", userID.String())
}

func (s *notificationServiceImpl) Notify(ctx context.Context, n *domain.Notification) {
	if n.Status == "" {
		n.Status = domain.NotificationStatusInfo
	}
	if len(n.Metadata) == 0 {
		n.Metadata = datatypes.JSON(`{}`)
	}
	n.Stamp(timeNow())

	if err := s.repo.Create(ctx, n); err != nil {
		s.metrics.IncrementNotificationFailed()
		s.logger.Error("Failed to create notification",
			zap.String("type", string(n.Type)),
			zap.String("user_id", n.UserID.String()),
			zap.String("board_id", n.BoardID.String()),
			zap.Error(err),
		)
		return
	}

	s.publish(ctx, n)
	s.InvalidateUnread(ctx, n.UserID)

	s.logger.Info("Notification created",
		zap.String("id", n.ID.String()),
		zap.String("type", string(n.Type)),
		zap.String("user_id", n.UserID.String()),
	)
}

func (s *notificationServiceImpl) publish(ctx context.Context, n *domain.Notification) {
	if s.redis == nil {
		return
	}

	data, err := json.Marshal(dto.NotificationFromDomain(n))
	if err != nil {
		s.logger.Error("Failed to marshal notification for publish", zap.Error(err))
		return
	}
	if err := s.redis.Publish(ctx, notificationChannel(n.UserID), data).Err(); err != nil {
		s.logger.Warn("Failed to publish notification", zap.String("id", n.ID.String()), zap.Error(err))
	}
}

func (s *notificationServiceImpl) InvalidateUnread(ctx context.Context, userID uuid.UUID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, unreadCacheKey(userID)).Err(); err != nil {
		s.logger.Warn("Failed to invalidate unread count cache", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func (s *notificationServiceImpl) List(ctx context.Context, identity domain.Identity, unreadOnly bool) ([]*dto.NotificationResponse, error) {
	if identity.IsDemo() {
		return []*dto.NotificationResponse{}, nil
	}
	userID, err := backendUserID(identity)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.FindByUser(ctx, userID, unreadOnly, defaultNotificationLimit)
	if err != nil {
		return nil, internalError("Failed to load notifications", err)
	}

	result := make([]*dto.NotificationResponse, 0, len(rows))
	for _, n := range rows {
		result = append(result, dto.NotificationFromDomain(n))
	}
	return result, nil
}

func (s *notificationServiceImpl) UnreadCount(ctx context.Context, identity domain.Identity) (*dto.UnreadCountResponse, error) {
	if identity.IsDemo() {
		return &dto.UnreadCountResponse{}, nil
	}
	userID, err := backendUserID(identity)
	if err != nil {
		return nil, err
	}

	key := unreadCacheKey(userID)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key).Int64(); err == nil {
			return &dto.UnreadCountResponse{Count: cached}, nil
		}
	}

	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, internalError("Failed to count unread notifications", err)
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, count, s.cacheTTL).Err(); err != nil {
			s.logger.Debug("Failed to cache unread count", zap.Error(err))
		}
	}
	return &dto.UnreadCountResponse{Count: count}, nil
}

func (s *notificationServiceImpl) MarkAsRead(ctx context.Context, identity domain.Identity, id uuid.UUID) error {
	userID, err := backendUserID(identity)
	if err != nil {
		return err
	}

	affected, err := s.repo.MarkAsRead(ctx, id, userID)
	if err != nil {
		return internalError("Failed to mark notification as read", err)
	}
	if affected == 0 {
		return response.NewAppError(response.ErrCodeNotFound, "Notification not found", "")
	}

	s.InvalidateUnread(ctx, userID)
	return nil
}

func (s *notificationServiceImpl) MarkAllAsRead(ctx context.Context, identity domain.Identity) (*dto.MarkAllReadResponse, error) {
	if identity.IsDemo() {
		return &dto.MarkAllReadResponse{}, nil
	}
	userID, err := backendUserID(identity)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.MarkAllAsRead(ctx, userID)
	if err != nil {
		return nil, internalError("Failed to mark notifications as read", err)
	}

	s.InvalidateUnread(ctx, userID)
	return &dto.MarkAllReadResponse{Updated: count}, nil
}

func (s *notificationServiceImpl) WithdrawRequest(ctx context.Context, ownerID, boardID, likerID uuid.UUID) {
	removed, err := s.repo.DeletePendingRequests(ctx, boardID, likerID)
	if err != nil {
		s.logger.Error("Failed to withdraw join request",
			zap.String("board_id", boardID.String()),
			zap.String("from_user_id", likerID.String()),
			zap.Error(err),
		)
		return
	}
	if removed > 0 {
		s.InvalidateUnread(ctx, ownerID)
		s.logger.Info("Join request withdrawn",
			zap.String("board_id", boardID.String()),
			zap.String("from_user_id", likerID.String()),
			zap.Int64("removed", removed),
		)
	}
}

func (s *notificationServiceImpl) CleanupOld(ctx context.Context, days int) (int64, error) {
	if days < 1 {
		return 0, fmt.Errorf("cleanup days must be positive, got %d", days)
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	return s.repo.DeleteReadBefore(ctx, cutoff)
}
