package domain

import "github.com/google/uuid"

// Board is a recruiting post owned by one user.
type Board struct {
	BaseModel
	UserID     uuid.UUID `gorm:"type:uuid;not null;index:idx_board_user_id" json:"user_id"`
	Title      string    `gorm:"type:varchar(255);not null" json:"title"`
	Purpose    *string   `gorm:"type:text" json:"purpose"`
	LimitCount int       `gorm:"not null;default:10" json:"limit_count"`
}

// TableName specifies the table name for Board
func (Board) TableName() string {
	return "board"
}

// IsOwnedBy reports whether userID owns the board
func (b *Board) IsOwnedBy(userID uuid.UUID) bool {
	return b.UserID == userID
}
