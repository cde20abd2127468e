package domain

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotificationTypeLike     NotificationType = "like"
	NotificationTypeAccepted NotificationType = "accepted"
	NotificationTypeRejected NotificationType = "rejected"
	NotificationTypeJoined   NotificationType = "joined"
)

type NotificationStatus string

const (
	NotificationStatusPending  NotificationStatus = "pending"
	NotificationStatusApproved NotificationStatus = "approved"
	NotificationStatusRejected NotificationStatus = "rejected"
	NotificationStatusInfo     NotificationStatus = "info"
)

// Notification is a one-way row addressed to UserID. Like notifications
// start pending and are the board owner's incoming join requests.
type Notification struct {
	BaseModel
	UserID     uuid.UUID          `gorm:"type:uuid;not null;index:idx_notifications_user_status" json:"user_id"`
	FromUserID uuid.UUID          `gorm:"type:uuid;not null" json:"from_user_id"`
	BoardID    uuid.UUID          `gorm:"type:uuid;not null;index" json:"board_id"`
	Type       NotificationType   `gorm:"type:varchar(20);not null" json:"type"`
	Message    string             `gorm:"type:text" json:"message"`
	Status     NotificationStatus `gorm:"type:varchar(20);not null;index:idx_notifications_user_status" json:"status"`
	IsRead     bool               `gorm:"not null;default:false" json:"is_read"`
	Metadata   datatypes.JSON     `json:"metadata,omitempty"`
}

// TableName specifies the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}

// IsPendingRequest reports whether the owner still has to approve or reject
func (n *Notification) IsPendingRequest() bool {
	return n.Type == NotificationTypeLike && n.Status == NotificationStatusPending
}
