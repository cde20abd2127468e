package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tanaka-0224/Iverse2/internal/backend"
	"github.com/tanaka-0224/Iverse2/internal/domain"
)

const participantsTable = "board_participants"

// ParticipantRepository defines the interface for board membership data access
type ParticipantRepository interface {
	// Create inserts a membership; an existing (board, user) pair yields backend.ErrDuplicate
	Create(ctx context.Context, participant *domain.Participant) error
	FindByBoardAndUser(ctx context.Context, boardID, userID uuid.UUID) (*domain.Participant, error)
	// FindAcceptedByUser returns the memberships that grant userID chat access
	FindAcceptedByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Participant, error)
	FindAcceptedByBoards(ctx context.Context, boardIDs []uuid.UUID) ([]*domain.Participant, error)
	// CountMembers counts accepted participants of boardID other than ownerID
	CountMembers(ctx context.Context, boardID, ownerID uuid.UUID) (int64, error)
	// SetStatus inserts the membership or updates the status of an existing one
	SetStatus(ctx context.Context, boardID, userID uuid.UUID, status domain.ParticipantStatus) error
}

type participantRepositoryImpl struct {
	client backend.Client
}

// NewParticipantRepository creates a new instance of ParticipantRepository
func NewParticipantRepository(client backend.Client) ParticipantRepository {
	return &participantRepositoryImpl{client: client}
}

func (r *participantRepositoryImpl) Create(ctx context.Context, participant *domain.Participant) error {
	return r.client.Insert(ctx, participant)
}

func (r *participantRepositoryImpl) FindByBoardAndUser(ctx context.Context, boardID, userID uuid.UUID) (*domain.Participant, error) {
	var participant domain.Participant
	q := backend.From(participantsTable).Eq("board_id", boardID).Eq("user_id", userID)
	if err := r.client.First(ctx, q, &participant); err != nil {
		return nil, err
	}
	return &participant, nil
}

func (r *participantRepositoryImpl) FindAcceptedByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Participant, error) {
	var participants []*domain.Participant
	q := backend.From(participantsTable).
		Eq("user_id", userID).
		Eq("status", domain.ParticipantStatusAccepted).
		OrderBy("created_at", true)
	if err := r.client.Select(ctx, q, &participants); err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *participantRepositoryImpl) FindAcceptedByBoards(ctx context.Context, boardIDs []uuid.UUID) ([]*domain.Participant, error) {
	if len(boardIDs) == 0 {
		return []*domain.Participant{}, nil
	}
	var participants []*domain.Participant
	q := backend.From(participantsTable).
		In("board_id", backend.IDs(uniqueIDs(boardIDs))...).
		Eq("status", domain.ParticipantStatusAccepted)
	if err := r.client.Select(ctx, q, &participants); err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *participantRepositoryImpl) CountMembers(ctx context.Context, boardID, ownerID uuid.UUID) (int64, error) {
	q := backend.From(participantsTable).
		Eq("board_id", boardID).
		Eq("status", domain.ParticipantStatusAccepted).
		Neq("user_id", ownerID)
	return r.client.Count(ctx, q)
}

func (r *participantRepositoryImpl) SetStatus(ctx context.Context, boardID, userID uuid.UUID, status domain.ParticipantStatus) error {
	values := map[string]interface{}{"status": status, "updated_at": time.Now().UTC()}
	q := func() *backend.Query {
		return backend.From(participantsTable).Eq("board_id", boardID).Eq("user_id", userID)
	}

	n, err := r.client.Update(ctx, q(), values)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	participant := &domain.Participant{BoardID: boardID, UserID: userID, Status: status}
	participant.Stamp(time.Now())
	err = r.client.Insert(ctx, participant)
	if errors.Is(err, backend.ErrDuplicate) {
		// inserted concurrently; apply the status to that row instead
		_, err = r.client.Update(ctx, q(), values)
	}
	return err
}
