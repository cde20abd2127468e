package domain

import (
	"time"

	"github.com/google/uuid"
)

// Like is a user's revocable interest in a board. One row per (user, board).
type Like struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_likes_user_board" json:"user_id"`
	BoardID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_likes_user_board;index:idx_likes_board_id" json:"board_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// TableName specifies the table name for Like
func (Like) TableName() string {
	return "likes"
}
