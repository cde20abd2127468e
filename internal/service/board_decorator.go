package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tanaka-0224/Iverse2/internal/domain"
	"github.com/tanaka-0224/Iverse2/internal/dto"
	"github.com/tanaka-0224/Iverse2/internal/repository"
)

// boardDecorator attaches owner cards and the viewer's relation to boards
type boardDecorator struct {
	userRepo        repository.UserRepository
	likeRepo        repository.LikeRepository
	participantRepo repository.ParticipantRepository
	logger          *zap.Logger
}

func (d *boardDecorator) decorate(ctx context.Context, viewer uuid.UUID, boards []*domain.Board) ([]*dto.BoardResponse, error) {
	result := make([]*dto.BoardResponse, 0, len(boards))
	if len(boards) == 0 {
		return result, nil
	}

	boardIDs := make([]uuid.UUID, 0, len(boards))
	ownerIDs := make([]uuid.UUID, 0, len(boards))
	for _, b := range boards {
		boardIDs = append(boardIDs, b.ID)
		ownerIDs = append(ownerIDs, b.UserID)
	}

	likes, err := d.likeRepo.FindByUserAndBoards(ctx, viewer, boardIDs)
	if err != nil {
		return nil, err
	}
	liked := make(map[uuid.UUID]bool, len(likes))
	for _, l := range likes {
		liked[l.BoardID] = true
	}

	accepted, err := d.participantRepo.FindAcceptedByBoards(ctx, boardIDs)
	if err != nil {
		return nil, err
	}
	counts := make(map[uuid.UUID]int, len(boardIDs))
	joined := make(map[uuid.UUID]bool)
	for _, p := range accepted {
		counts[p.BoardID]++
		if p.UserID == viewer {
			joined[p.BoardID] = true
		}
	}

	owners := userSummaries(ctx, d.userRepo, ownerIDs, d.logger)
	for _, b := range boards {
		resp := dto.BoardFromDomain(b)
		resp.Owner = summaryFor(owners, b.UserID)
		resp.Liked = liked[b.ID]
		resp.Joined = joined[b.ID]
		resp.ParticipantCount = counts[b.ID]
		result = append(result, resp)
	}
	return result, nil
}

func demoBoardResponses(boards []domain.DemoBoard) []*dto.BoardResponse {
	result := make([]*dto.BoardResponse, 0, len(boards))
	for i := range boards {
		resp := dto.BoardFromDemo(&boards[i])
		if resp.Owner.Name == "" {
			resp.Owner.Name = demoUserName
		}
		result = append(result, resp)
	}
	return result
}
