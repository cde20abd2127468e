package domain

import "github.com/google/uuid"

// DefaultUserName is used when a user row has no usable name.
const DefaultUserName = "ユーザー"

// User is a row of the users table and doubles as the profile record.
type User struct {
	BaseModel
	Email   string  `gorm:"type:varchar(255);not null;index:idx_users_email" json:"email"`
	Name    string  `gorm:"type:varchar(100);not null" json:"name"`
	Photo   *string `gorm:"type:text" json:"photo"`
	Skill   *string `gorm:"type:text" json:"skill"`
	Purpose *string `gorm:"type:text" json:"purpose"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// DisplayName returns the name or the default placeholder.
func (u *User) DisplayName() string {
	if u == nil || u.Name == "" {
		return DefaultUserName
	}
	return u.Name
}

// UserSummary is the owner/author card attached to boards and messages.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Photo *string   `json:"photo"`
}
