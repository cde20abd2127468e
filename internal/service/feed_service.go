package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tanaka-0224/Iverse2/internal/backend"
	"github.com/tanaka-0224/Iverse2/internal/domain"
	"github.com/tanaka-0224/Iverse2/internal/dto"
	"github.com/tanaka-0224/Iverse2/internal/metrics"
	"github.com/tanaka-0224/Iverse2/internal/repository"
	"github.com/tanaka-0224/Iverse2/internal/response"
)

// FeedService defines the interface for the recommendation feed
type FeedService interface {
	FetchRecommendations(ctx context.Context, identity domain.Identity) ([]*dto.BoardResponse, error)
	FetchUserLikes(ctx context.Context, identity domain.Identity) (*dto.LikesResponse, error)
	// HandleLike toggles the caller's like on a board
	HandleLike(ctx context.Context, identity domain.Identity, boardID string) (*dto.LikeResponse, error)
	// CheckForMatch reports whether the board's owner liked any of the caller's boards
	CheckForMatch(ctx context.Context, userID uuid.UUID, board *domain.Board) (bool, error)
	Skip(req dto.SkipRequest) *dto.SkipResponse
}

type feedServiceImpl struct {
	boardRepo     repository.BoardRepository
	likeRepo      repository.LikeRepository
	userRepo      repository.UserRepository
	demoBoards    repository.DemoBoardRepository
	notifications NotificationService
	decorator     *boardDecorator
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

// NewFeedService creates a new instance of FeedService
func NewFeedService(
	boardRepo repository.BoardRepository,
	likeRepo repository.LikeRepository,
	participantRepo repository.ParticipantRepository,
	userRepo repository.UserRepository,
	demoBoards repository.DemoBoardRepository,
	notifications NotificationService,
	m *metrics.Metrics,
	logger *zap.Logger,
) FeedService {
	return &feedServiceImpl{
		boardRepo:     boardRepo,
		likeRepo:      likeRepo,
		userRepo:      userRepo,
		demoBoards:    demoBoards,
		notifications: notifications,
		decorator: &boardDecorator{
			userRepo:        userRepo,
			likeRepo:        likeRepo,
			participantRepo: participantRepo,
			logger:          logger,
		},
		metrics: m,
		logger:  logger,
	}
}

func (s *feedServiceImpl) FetchRecommendations(ctx context.Context, identity domain.Identity) ([]*dto.BoardResponse, error) {
	if identity.IsDemo() {
		return s.demoRecommendations(identity)
	}
	userID, err := backendUserID(identity)
	if err != nil {
		return nil, err
	}

	boards, err := s.boardRepo.FindNotOwnedBy(ctx, userID)
	if err != nil {
		return nil, internalError("Failed to load recommendations", err)
	}
	result, err := s.decorator.decorate(ctx, userID, boards)
	if err != nil {
		return nil, internalError("Failed to load recommendations", err)
	}
	return result, nil
}

func (s *feedServiceImpl) demoRecommendations(identity domain.Identity) ([]*dto.BoardResponse, error) {
	if s.demoBoards == nil {
		return []*dto.BoardResponse{}, nil
	}
	boards, err := s.demoBoards.List()
	if err != nil {
		return nil, internalError("Failed to load demo boards", err)
	}
	others := make([]domain.DemoBoard, 0, len(boards))
	for _, b := range boards {
		if b.UserID != identity.ID {
			others = append(others, b)
		}
	}
	return demoBoardResponses(others), nil
}

func (s *feedServiceImpl) FetchUserLikes(ctx context.Context, identity domain.Identity) (*dto.LikesResponse, error) {
	if identity.IsDemo() {
		return &dto.LikesResponse{BoardIDs: []string{}}, nil
	}
	userID, err := backendUserID(identity)
	if err != nil {
		return nil, err
	}

	likes, err := s.likeRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, internalError("Failed to load likes", err)
	}
	ids := make([]string, 0, len(likes))
	for _, l := range likes {
		ids = append(ids, l.BoardID.String())
	}
	return &dto.LikesResponse{BoardIDs: ids}, nil
}

func (s *feedServiceImpl) HandleLike(ctx context.Context, identity domain.Identity, rawBoardID string) (*dto.LikeResponse, error) {
	userID, err := backendUserID(identity)
	if err != nil {
		return nil, err
	}
	boardID, err := parseID(rawBoardID, "board")
	if err != nil {
		return nil, err
	}

	board, err := s.boardRepo.FindByID(ctx, boardID)
	if err != nil {
		return nil, notFoundOr(err, "Board not found", "Failed to load board")
	}
	if board.IsOwnedBy(userID) {
		return nil, response.NewAppError(response.ErrCodeValidation, "自分の投稿にはいいねできません", "")
	}

	_, err = s.likeRepo.Find(ctx, userID, boardID)
	switch {
	case err == nil:
		if _, err := s.likeRepo.Delete(ctx, userID, boardID); err != nil {
			return nil, internalError("Failed to remove like", err)
		}
		s.notifications.WithdrawRequest(ctx, board.UserID, boardID, userID)
		s.metrics.RecordLike(false)
		return &dto.LikeResponse{BoardID: boardID.String()}, nil
	case !errors.Is(err, backend.ErrNotFound):
		return nil, internalError("Failed to load like", err)
	}

	like := &domain.Like{ID: uuid.New(), UserID: userID, BoardID: boardID, CreatedAt: timeNow()}
	created := true
	if err := s.likeRepo.Create(ctx, like); err != nil {
		if !errors.Is(err, backend.ErrDuplicate) {
			return nil, internalError("Failed to like board", err)
		}
		// a concurrent request already stored the like and sent the notification
		created = false
	}

	result := &dto.LikeResponse{BoardID: boardID.String(), Liked: true}
	if created {
		s.metrics.RecordLike(true)
		name := s.likerName(ctx, identity, userID)
		s.notifications.Notify(ctx, &domain.Notification{
			UserID:     board.UserID,
			FromUserID: userID,
			BoardID:    boardID,
			Type:       domain.NotificationTypeLike,
			Status:     domain.NotificationStatusPending,
			Message:    fmt.Sprintf("%sさんが「%s」に参加を希望しています", name, board.Title),
			Metadata:   likeMetadata(board.Title, name),
		})
	}

	matched, err := s.CheckForMatch(ctx, userID, board)
	if err != nil {
		s.logger.Warn("Match check failed", zap.String("board_id", boardID.String()), zap.Error(err))
	}
	if matched {
		result.Matched = true
		result.Navigate = dto.NavigateChat
		s.metrics.IncrementMatch()
		s.logger.Info("Match found",
			zap.String("user_id", userID.String()),
			zap.String("owner_id", board.UserID.String()),
			zap.String("board_id", boardID.String()),
		)
	}
	return result, nil
}

func (s *feedServiceImpl) CheckForMatch(ctx context.Context, userID uuid.UUID, board *domain.Board) (bool, error) {
	mine, err := s.boardRepo.FindByOwner(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load own boards: %w", err)
	}
	if len(mine) == 0 {
		return false, nil
	}

	myBoardIDs := make([]uuid.UUID, 0, len(mine))
	for _, b := range mine {
		myBoardIDs = append(myBoardIDs, b.ID)
	}
	likes, err := s.likeRepo.FindByUserAndBoards(ctx, board.UserID, myBoardIDs)
	if err != nil {
		return false, fmt.Errorf("failed to load owner likes: %w", err)
	}
	return len(likes) > 0, nil
}

func (s *feedServiceImpl) likerName(ctx context.Context, identity domain.Identity, userID uuid.UUID) string {
	if user, err := s.userRepo.FindByID(ctx, userID); err == nil && user.Name != "" {
		return user.Name
	}
	return firstNonEmpty(identity.Name, emailLocalPart(identity.Email), domain.DefaultUserName)
}

// Skip advances the card cursor, wrapping to the first card after the last
func (s *feedServiceImpl) Skip(req dto.SkipRequest) *dto.SkipResponse {
	if req.Total <= 0 {
		return &dto.SkipResponse{NextIndex: 0}
	}
	return &dto.SkipResponse{NextIndex: (req.Index + 1) % req.Total}
}
