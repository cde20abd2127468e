package dto

import (
	"time"

	"github.com/tanaka-0224/Iverse2/internal/domain"
)

// Board list filters
const (
	BoardFilterAll        = "all"
	BoardFilterMyPosts    = "my_posts"
	BoardFilterLikedPosts = "liked_posts"
)

// Navigation targets returned by actions that move the client to another screen
const (
	NavigateChat = "chat"
)

// CreateBoardRequest represents the request to create a recruiting board
type CreateBoardRequest struct {
	Title      string  `json:"title" binding:"required,max=255" example:"Go study group"`
	Purpose    *string `json:"purpose" example:"Build a chat app together"`
	LimitCount *int    `json:"limit_count" example:"10"`
}

// UpdateBoardRequest carries the fields to change. A nil field is left unchanged.
type UpdateBoardRequest struct {
	Title      *string `json:"title" binding:"omitempty,max=255"`
	Purpose    *string `json:"purpose"`
	LimitCount *int    `json:"limit_count"`
}

// OwnerSummary is the owner card shown on a board
type OwnerSummary struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Photo *string `json:"photo"`
}

// BoardResponse represents a board with the caller's relation to it
type BoardResponse struct {
	ID               string        `json:"id"`
	UserID           string        `json:"user_id"`
	Title            string        `json:"title"`
	Purpose          *string       `json:"purpose"`
	LimitCount       int           `json:"limit_count"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	Owner            *OwnerSummary `json:"owner"`
	Liked            bool          `json:"liked"`
	Joined           bool          `json:"joined"`
	ParticipantCount int           `json:"participant_count"`
}

func BoardFromDomain(b *domain.Board) *BoardResponse {
	return &BoardResponse{
		ID:         b.ID.String(),
		UserID:     b.UserID.String(),
		Title:      b.Title,
		Purpose:    b.Purpose,
		LimitCount: b.LimitCount,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

func BoardFromDemo(b *domain.DemoBoard) *BoardResponse {
	return &BoardResponse{
		ID:         b.ID,
		UserID:     b.UserID,
		Title:      b.Title,
		Purpose:    b.Purpose,
		LimitCount: b.LimitCount,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
		Owner:      &OwnerSummary{ID: b.UserID, Name: b.OwnerName},
	}
}

// JoinResponse is the result of joining a board
type JoinResponse struct {
	BoardID       string `json:"board_id"`
	Joined        bool   `json:"joined"`
	AlreadyJoined bool   `json:"already_joined"`
	Navigate      string `json:"navigate,omitempty"`
}
