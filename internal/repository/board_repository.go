package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/tanaka-0224/Iverse2/internal/backend"
	"github.com/tanaka-0224/Iverse2/internal/domain"
)

const boardTable = "board"

// BoardRepository defines the interface for board data access
type BoardRepository interface {
	Create(ctx context.Context, board *domain.Board) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Board, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Board, error)
	// FindAll returns every board, newest first
	FindAll(ctx context.Context) ([]*domain.Board, error)
	FindByOwner(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error)
	// FindNotOwnedBy returns boards of other users, newest first
	FindNotOwnedBy(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error)
	Update(ctx context.Context, id uuid.UUID, values map[string]interface{}) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type boardRepositoryImpl struct {
	client backend.Client
}

// NewBoardRepository creates a new instance of BoardRepository
func NewBoardRepository(client backend.Client) BoardRepository {
	return &boardRepositoryImpl{client: client}
}

func (r *boardRepositoryImpl) Create(ctx context.Context, board *domain.Board) error {
	return r.client.Insert(ctx, board)
}

func (r *boardRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	var board domain.Board
	if err := r.client.First(ctx, backend.From(boardTable).Eq("id", id), &board); err != nil {
		return nil, err
	}
	return &board, nil
}

func (r *boardRepositoryImpl) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Board, error) {
	if len(ids) == 0 {
		return []*domain.Board{}, nil
	}
	return r.selectBoards(ctx, backend.From(boardTable).In("id", backend.IDs(uniqueIDs(ids))...).OrderBy("created_at", true))
}

func (r *boardRepositoryImpl) FindAll(ctx context.Context) ([]*domain.Board, error) {
	return r.selectBoards(ctx, backend.From(boardTable).OrderBy("created_at", true))
}

func (r *boardRepositoryImpl) FindByOwner(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error) {
	return r.selectBoards(ctx, backend.From(boardTable).Eq("user_id", userID).OrderBy("created_at", true))
}

func (r *boardRepositoryImpl) FindNotOwnedBy(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error) {
	return r.selectBoards(ctx, backend.From(boardTable).Neq("user_id", userID).OrderBy("created_at", true))
}

func (r *boardRepositoryImpl) Update(ctx context.Context, id uuid.UUID, values map[string]interface{}) (int64, error) {
	return r.client.Update(ctx, backend.From(boardTable).Eq("id", id), values)
}

func (r *boardRepositoryImpl) Count(ctx context.Context) (int64, error) {
	return r.client.Count(ctx, backend.From(boardTable))
}

func (r *boardRepositoryImpl) selectBoards(ctx context.Context, q *backend.Query) ([]*domain.Board, error) {
	var boards []*domain.Board
	if err := r.client.Select(ctx, q, &boards); err != nil {
		return nil, err
	}
	return boards, nil
}
