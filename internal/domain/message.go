package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is an append-only chat line of a board, ordered by CreatedAt.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BoardID   uuid.UUID `gorm:"type:uuid;not null;index:idx_message_board_created" json:"board_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"not null;index:idx_message_board_created" json:"created_at"`
}

// TableName specifies the table name for Message
func (Message) TableName() string {
	return "message"
}
