package dto

import (
	"time"

	"github.com/tanaka-0224/Iverse2/internal/domain"
)

// UpdateProfileRequest carries only the fields the client sent.
// A nil field is left unchanged.
type UpdateProfileRequest struct {
	Name    *string `json:"name" binding:"omitempty,max=100"`
	Skill   *string `json:"skill"`
	Purpose *string `json:"purpose"`
	Photo   *string `json:"photo"`
}

// IsEmpty reports whether the request changes nothing
func (r *UpdateProfileRequest) IsEmpty() bool {
	return r == nil || (r.Name == nil && r.Skill == nil && r.Purpose == nil && r.Photo == nil)
}

// ProfileResponse represents a user's profile
type ProfileResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Skill     *string   `json:"skill"`
	Purpose   *string   `json:"purpose"`
	Photo     *string   `json:"photo"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ProfileFromUser(u *domain.User) *ProfileResponse {
	return &ProfileResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		Skill:     u.Skill,
		Purpose:   u.Purpose,
		Photo:     u.Photo,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func ProfileFromDemo(p *domain.DemoProfile) *ProfileResponse {
	return &ProfileResponse{
		ID:        p.ID,
		Email:     p.Email,
		Name:      p.Name,
		Skill:     p.Skill,
		Purpose:   p.Purpose,
		Photo:     p.Photo,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// Avatar storage kinds
const (
	AvatarStorageObject = "object"
	AvatarStorageInline = "inline"
)

// AvatarResponse is the result of an avatar upload
type AvatarResponse struct {
	PhotoURL string           `json:"photo_url"`
	Storage  string           `json:"storage"`
	Profile  *ProfileResponse `json:"profile"`
}
