package dto

import (
	"time"

	"github.com/tanaka-0224/Iverse2/internal/domain"
)

// SendMessageRequest represents a chat message sent by the client
type SendMessageRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

// MessageResponse represents a chat message with its author card
type MessageResponse struct {
	ID        string        `json:"id"`
	BoardID   string        `json:"board_id"`
	UserID    string        `json:"user_id"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"created_at"`
	Author    *OwnerSummary `json:"author,omitempty"`
}

func MessageFromDomain(m *domain.Message) *MessageResponse {
	return &MessageResponse{
		ID:        m.ID.String(),
		BoardID:   m.BoardID.String(),
		UserID:    m.UserID.String(),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

// ChatBoardResponse is a board the caller can chat in
type ChatBoardResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Purpose          *string   `json:"purpose"`
	OwnerID          string    `json:"owner_id"`
	ParticipantCount int       `json:"participant_count"`
	JoinedAt         time.Time `json:"joined_at"`
}

// WSInbound is a frame sent by the chat client
type WSInbound struct {
	Type    string `json:"type"`
	BoardID string `json:"boardId,omitempty"`
	Content string `json:"content,omitempty"`
}

// WS frame types
const (
	WSTypeSelectBoard = "select_board"
	WSTypeSend        = "send"
	WSTypeReset       = "reset"
	WSTypeMessages    = "messages"
	WSTypeMessage     = "message"
	WSTypeError       = "error"
)

// WSOutbound is a frame sent to the chat client. Message holds a
// *MessageResponse for "message" frames and the error text for "error" frames.
type WSOutbound struct {
	Type     string             `json:"type"`
	BoardID  string             `json:"boardId,omitempty"`
	Messages []*MessageResponse `json:"messages,omitempty"`
	Message  interface{}        `json:"message,omitempty"`
	Code     string             `json:"code,omitempty"`
}
