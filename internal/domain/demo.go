package domain

import "time"

// DemoUser is the persisted pseudo-session of demo mode.
type DemoUser struct {
	ID           string            `json:"id"`
	Email        string            `json:"email"`
	UserMetadata map[string]string `json:"user_metadata"`
	AppMetadata  map[string]string `json:"app_metadata"`
	CreatedAt    time.Time         `json:"created_at"`
}

// DemoProfile mirrors the users row shape for demo identities.
type DemoProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Skill     *string   `json:"skill"`
	Purpose   *string   `json:"purpose"`
	Photo     *string   `json:"photo"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DemoBoard is a board record kept only in local demo storage.
type DemoBoard struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Title      string    `json:"title"`
	Purpose    *string   `json:"purpose"`
	LimitCount int       `json:"limit_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	OwnerName  string    `json:"owner_name"`
}
