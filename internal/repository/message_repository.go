package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/tanaka-0224/Iverse2/internal/backend"
	"github.com/tanaka-0224/Iverse2/internal/domain"
)

const messageTable = "message"

// MessageRepository defines the interface for chat message data access
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	// FindByBoard returns a board's messages oldest first
	FindByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Message, error)
}

type messageRepositoryImpl struct {
	client backend.Client
}

// NewMessageRepository creates a new instance of MessageRepository
func NewMessageRepository(client backend.Client) MessageRepository {
	return &messageRepositoryImpl{client: client}
}

func (r *messageRepositoryImpl) Create(ctx context.Context, message *domain.Message) error {
	return r.client.Insert(ctx, message)
}

func (r *messageRepositoryImpl) FindByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Message, error) {
	var messages []*domain.Message
	q := backend.From(messageTable).Eq("board_id", boardID).OrderBy("created_at", false)
	if err := r.client.Select(ctx, q, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
