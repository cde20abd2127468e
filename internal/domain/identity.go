package domain

import (
	"strings"

	"github.com/google/uuid"
)

// DemoIDPrefix marks identities that only exist in local demo storage.
const DemoIDPrefix = "demo-"

type AuthMode string

const (
	AuthModeBackend AuthMode = "backend"
	AuthModeDemo    AuthMode = "demo"
)

// Identity is the authenticated caller as carried by the session token.
type Identity struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Mode  AuthMode `json:"mode"`
}

// IsDemo reports whether the identity is a local demo pseudo-user.
func (i Identity) IsDemo() bool {
	return i.Mode == AuthModeDemo || strings.HasPrefix(i.ID, DemoIDPrefix)
}

// UserID parses the backend user id. Demo identities have none.
func (i Identity) UserID() (uuid.UUID, bool) {
	if i.IsDemo() {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(i.ID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// NewDemoID returns a fresh demo- prefixed identifier.
func NewDemoID() string {
	return DemoIDPrefix + uuid.NewString()
}
