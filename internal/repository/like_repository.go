package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/tanaka-0224/Iverse2/internal/backend"
	"github.com/tanaka-0224/Iverse2/internal/domain"
)

const likesTable = "likes"

// LikeRepository defines the interface for like data access
type LikeRepository interface {
	// Create inserts a like; an existing (user, board) pair yields backend.ErrDuplicate
	Create(ctx context.Context, like *domain.Like) error
	Find(ctx context.Context, userID, boardID uuid.UUID) (*domain.Like, error)
	Delete(ctx context.Context, userID, boardID uuid.UUID) (int64, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Like, error)
	// FindByUserAndBoards returns likes of userID on any of boardIDs
	FindByUserAndBoards(ctx context.Context, userID uuid.UUID, boardIDs []uuid.UUID) ([]*domain.Like, error)
}

type likeRepositoryImpl struct {
	client backend.Client
}

// NewLikeRepository creates a new instance of LikeRepository
func NewLikeRepository(client backend.Client) LikeRepository {
	return &likeRepositoryImpl{client: client}
}

func (r *likeRepositoryImpl) Create(ctx context.Context, like *domain.Like) error {
	return r.client.Insert(ctx, like)
}

func (r *likeRepositoryImpl) Find(ctx context.Context, userID, boardID uuid.UUID) (*domain.Like, error) {
	var like domain.Like
	q := backend.From(likesTable).Eq("user_id", userID).Eq("board_id", boardID)
	if err := r.client.First(ctx, q, &like); err != nil {
		return nil, err
	}
	return &like, nil
}

func (r *likeRepositoryImpl) Delete(ctx context.Context, userID, boardID uuid.UUID) (int64, error) {
	return r.client.Delete(ctx, backend.From(likesTable).Eq("user_id", userID).Eq("board_id", boardID))
}

func (r *likeRepositoryImpl) FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Like, error) {
	var likes []*domain.Like
	q := backend.From(likesTable).Eq("user_id", userID).OrderBy("created_at", true)
	if err := r.client.Select(ctx, q, &likes); err != nil {
		return nil, err
	}
	return likes, nil
}

func (r *likeRepositoryImpl) FindByUserAndBoards(ctx context.Context, userID uuid.UUID, boardIDs []uuid.UUID) ([]*domain.Like, error) {
	if len(boardIDs) == 0 {
		return []*domain.Like{}, nil
	}
	var likes []*domain.Like
	q := backend.From(likesTable).Eq("user_id", userID).In("board_id", backend.IDs(uniqueIDs(boardIDs))...)
	if err := r.client.Select(ctx, q, &likes); err != nil {
		return nil, err
	}
	return likes, nil
}
