package dto

import (
	"time"

	"github.com/tanaka-0224/Iverse2/internal/domain"
)

// Fallback reasons reported when an auth call is served in demo mode
const (
	FallbackBackendUnconfigured = "backend_unconfigured"
	FallbackBackendForcedOff    = "backend_forced_off"
	FallbackBackendError        = "backend_error"
)

// SignInRequest represents the request to sign in with email and password
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email" example:"taro@example.com"`
	Password string `json:"password" binding:"required" example:"secret123"`
}

// SignUpRequest represents the request to register a new account
type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email" example:"taro@example.com"`
	Password string `json:"password" binding:"required,min=6" example:"secret123"`
	Name     string `json:"name" binding:"max=100" example:"Taro"`
}

// UserInfo is the signed-in user as shown to the client
type UserInfo struct {
	ID           string            `json:"id"`
	Email        string            `json:"email"`
	Name         string            `json:"name"`
	UserMetadata map[string]string `json:"user_metadata,omitempty"`
	AppMetadata  map[string]string `json:"app_metadata,omitempty"`
}

// SessionInfo carries the session token the client sends as Bearer
type SessionInfo struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AuthResponse is returned by sign-in and sign-up. Session is nil when the
// backend requires email confirmation first.
type AuthResponse struct {
	User           *UserInfo       `json:"user"`
	Session        *SessionInfo    `json:"session"`
	Mode           domain.AuthMode `json:"mode"`
	FallbackReason string          `json:"fallback_reason,omitempty"`
}

// SessionResponse describes the current session
type SessionResponse struct {
	User    *UserInfo       `json:"user"`
	Session *SessionInfo    `json:"session"`
	Mode    domain.AuthMode `json:"mode,omitempty"`
	Loading bool            `json:"loading"`
}

// UserInfoFromDemo converts a persisted demo user
func UserInfoFromDemo(u *domain.DemoUser) *UserInfo {
	if u == nil {
		return nil
	}
	return &UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.UserMetadata["name"],
		UserMetadata: u.UserMetadata,
		AppMetadata:  u.AppMetadata,
	}
}
