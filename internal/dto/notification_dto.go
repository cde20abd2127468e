package dto

import (
	"encoding/json"
	"time"

	"github.com/tanaka-0224/Iverse2/internal/domain"
)

// NotificationResponse represents a notification addressed to the caller
type NotificationResponse struct {
	ID         string                    `json:"id"`
	UserID     string                    `json:"user_id"`
	FromUserID string                    `json:"from_user_id"`
	BoardID    string                    `json:"board_id"`
	Type       domain.NotificationType   `json:"type"`
	Message    string                    `json:"message"`
	Status     domain.NotificationStatus `json:"status"`
	IsRead     bool                      `json:"is_read"`
	Metadata   json.RawMessage           `json:"metadata,omitempty"`
	CreatedAt  time.Time                 `json:"created_at"`
}

func NotificationFromDomain(n *domain.Notification) *NotificationResponse {
	resp := &NotificationResponse{
		ID:         n.ID.String(),
		UserID:     n.UserID.String(),
		FromUserID: n.FromUserID.String(),
		BoardID:    n.BoardID.String(),
		Type:       n.Type,
		Message:    n.Message,
		Status:     n.Status,
		IsRead:     n.IsRead,
		CreatedAt:  n.CreatedAt,
	}
	if len(n.Metadata) > 0 {
		resp.Metadata = json.RawMessage(n.Metadata)
	}
	return resp
}

// DecisionResponse is the result of approving or rejecting a join request
type DecisionResponse struct {
	NotificationID string                    `json:"notification_id"`
	BoardID        string                    `json:"board_id"`
	UserID         string                    `json:"user_id"`
	Status         domain.NotificationStatus `json:"status"`
}

type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
