package domain

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel holds the columns every backend-owned row carries.
// IDs and timestamps are assigned by the service so that every backend
// (direct database or REST gateway) receives the same row.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// Stamp assigns an id when missing and sets both timestamps for a new row.
func (m *BaseModel) Stamp(now time.Time) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now = now.UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}
