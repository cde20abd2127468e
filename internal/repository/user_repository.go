package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tanaka-0224/Iverse2/internal/backend"
	"github.com/tanaka-0224/Iverse2/internal/domain"
)

const usersTable = "users"

// UserRepository defines the interface for user/profile data access
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error)
	// Upsert inserts the user or refreshes email and name of an existing row
	Upsert(ctx context.Context, user *domain.User) error
	// Update writes only the given columns and returns the affected count
	Update(ctx context.Context, id uuid.UUID, values map[string]interface{}) (int64, error)
}

type userRepositoryImpl struct {
	client backend.Client
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(client backend.Client) UserRepository {
	return &userRepositoryImpl{client: client}
}

func (r *userRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	if err := r.client.First(ctx, backend.From(usersTable).Eq("id", id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepositoryImpl) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error) {
	if len(ids) == 0 {
		return []*domain.User{}, nil
	}
	var users []*domain.User
	if err := r.client.Select(ctx, backend.From(usersTable).In("id", backend.IDs(uniqueIDs(ids))...), &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepositoryImpl) Upsert(ctx context.Context, user *domain.User) error {
	user.Stamp(time.Now())
	values := map[string]interface{}{
		"id":         user.ID,
		"email":      user.Email,
		"name":       user.Name,
		"created_at": user.CreatedAt,
		"updated_at": user.UpdatedAt,
	}
	return r.client.Upsert(ctx, usersTable, values, "id", []string{"email", "name", "updated_at"})
}

func (r *userRepositoryImpl) Update(ctx context.Context, id uuid.UUID, values map[string]interface{}) (int64, error) {
	return r.client.Update(ctx, backend.From(usersTable).Eq("id", id), values)
}

// uniqueIDs removes duplicate ids, keeping the first occurrence
func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	result := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			result = append(result, id)
		}
	}
	return result
}
