package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tanaka-0224/Iverse2/internal/backend"
	"github.com/tanaka-0224/Iverse2/internal/domain"
)

const notificationsTable = "notifications"

// NotificationRepository defines the interface for notification data access
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
	FindByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, error)
	// FindPending returns like requests still waiting for userID's decision
	FindPending(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	// ResolvePending moves a pending request addressed to userID to status.
	// It returns 0 when the request was already resolved.
	ResolvePending(ctx context.Context, id, userID uuid.UUID, status domain.NotificationStatus) (int64, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) (int64, error)
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	// DeletePendingRequests removes the undecided like requests fromUserID
	// sent for boardID
	DeletePendingRequests(ctx context.Context, boardID, fromUserID uuid.UUID) (int64, error)
	// DeleteReadBefore removes read notifications created before cutoff.
	// Pending requests are kept until they are decided.
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type notificationRepositoryImpl struct {
	client backend.Client
}

// NewNotificationRepository creates a new instance of NotificationRepository
func NewNotificationRepository(client backend.Client) NotificationRepository {
	return &notificationRepositoryImpl{client: client}
}

func (r *notificationRepositoryImpl) Create(ctx context.Context, notification *domain.Notification) error {
	return r.client.Insert(ctx, notification)
}

func (r *notificationRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	var notification domain.Notification
	if err := r.client.First(ctx, backend.From(notificationsTable).Eq("id", id), &notification); err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *notificationRepositoryImpl) FindByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	q := backend.From(notificationsTable).Eq("user_id", userID)
	if unreadOnly {
		q = q.Eq("is_read", false)
	}
	q = q.OrderBy("created_at", true).Take(limit)

	var notifications []*domain.Notification
	if err := r.client.Select(ctx, q, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *notificationRepositoryImpl) FindPending(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	q := backend.From(notificationsTable).
		Eq("user_id", userID).
		Eq("type", domain.NotificationTypeLike).
		Eq("status", domain.NotificationStatusPending).
		OrderBy("created_at", true)

	var notifications []*domain.Notification
	if err := r.client.Select(ctx, q, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *notificationRepositoryImpl) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.client.Count(ctx, backend.From(notificationsTable).Eq("user_id", userID).Eq("is_read", false))
}

func (r *notificationRepositoryImpl) ResolvePending(ctx context.Context, id, userID uuid.UUID, status domain.NotificationStatus) (int64, error) {
	q := backend.From(notificationsTable).
		Eq("id", id).
		Eq("user_id", userID).
		Eq("status", domain.NotificationStatusPending)

	return r.client.Update(ctx, q, map[string]interface{}{
		"status":     status,
		"is_read":    true,
		"updated_at": time.Now().UTC(),
	})
}

func (r *notificationRepositoryImpl) MarkAsRead(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	q := backend.From(notificationsTable).Eq("id", id).Eq("user_id", userID)
	return r.client.Update(ctx, q, map[string]interface{}{
		"is_read":    true,
		"updated_at": time.Now().UTC(),
	})
}

func (r *notificationRepositoryImpl) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	q := backend.From(notificationsTable).Eq("user_id", userID).Eq("is_read", false)
	return r.client.Update(ctx, q, map[string]interface{}{
		"is_read":    true,
		"updated_at": time.Now().UTC(),
	})
}

func (r *notificationRepositoryImpl) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	q := backend.From(notificationsTable).
		Eq("is_read", true).
		Neq("status", domain.NotificationStatusPending).
		Lt("created_at", cutoff.UTC())
	return r.client.Delete(ctx, q)
}

func (r *notificationRepositoryImpl) DeletePendingRequests(ctx context.Context, boardID, fromUserID uuid.UUID) (int64, error) {
	q := backend.From(notificationsTable).
		Eq("board_id", boardID).
		Eq("from_user_id", fromUserID).
		Eq("type", domain.NotificationTypeLike).
		Eq("status", domain.NotificationStatusPending)
	return r.client.Delete(ctx, q)
}
