package domain

import "github.com/google/uuid"

// ParticipantStatus tracks a user's membership in a board's chat
type ParticipantStatus string

const (
	ParticipantStatusAccepted ParticipantStatus = "accepted"
	ParticipantStatusRejected ParticipantStatus = "rejected"
)

// Participant represents a user's membership of a board. Only accepted
// participants may read or write the board's messages.
type Participant struct {
	BaseModel
	BoardID uuid.UUID         `gorm:"type:uuid;not null;index:idx_participants_board_id;uniqueIndex:uq_participants_board_user" json:"board_id"`
	UserID  uuid.UUID         `gorm:"type:uuid;not null;index:idx_participants_user_id;uniqueIndex:uq_participants_board_user" json:"user_id"`
	Status  ParticipantStatus `gorm:"type:varchar(20);not null" json:"status"`
}

// TableName specifies the table name for Participant
func (Participant) TableName() string {
	return "board_participants"
}

// IsAccepted reports whether the participant has chat access
func (p *Participant) IsAccepted() bool {
	return p != nil && p.Status == ParticipantStatusAccepted
}
