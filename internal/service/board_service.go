package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tanaka-0224/Iverse2/internal/domain"
	"github.com/tanaka-0224/Iverse2/internal/dto"
	"github.com/tanaka-0224/Iverse2/internal/metrics"
	"github.com/tanaka-0224/Iverse2/internal/repository"
	"github.com/tanaka-0224/Iverse2/internal/response"
)

// BoardService defines the interface for board business logic
type BoardService interface {
	ListBoards(ctx context.Context, identity domain.Identity, filter string) ([]*dto.BoardResponse, error)
	GetBoard(ctx context.Context, identity domain.Identity, boardID string) (*dto.BoardResponse, error)
	CreateBoard(ctx context.Context, identity domain.Identity, req *dto.CreateBoardRequest) (*dto.BoardResponse, error)
	UpdateBoard(ctx context.Context, identity domain.Identity, boardID string, req *dto.UpdateBoardRequest) (*dto.BoardResponse, error)
}

type boardServiceImpl struct {
	boardRepo       repository.BoardRepository
	likeRepo        repository.LikeRepository
	participantRepo repository.ParticipantRepository
	demoBoards      repository.DemoBoardRepository
	decorator       *boardDecorator
	createTimeout   time.Duration
	defaultLimit    int
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

// NewBoardService creates a new instance of BoardService
func NewBoardService(
	boardRepo repository.BoardRepository,
	likeRepo repository.LikeRepository,
	participantRepo repository.ParticipantRepository,
	userRepo repository.UserRepository,
	demoBoards repository.DemoBoardRepository,
	createTimeout time.Duration,
	defaultLimit int,
	m *metrics.Metrics,
	logger *zap.Logger,
) BoardService {
	if defaultLimit < 1 {
		defaultLimit = 10
	}
	return &boardServiceImpl{
		boardRepo:       boardRepo,
		likeRepo:        likeRepo,
		participantRepo: participantRepo,
		demoBoards:      demoBoards,
		decorator: &boardDecorator{
			userRepo:        userRepo,
			likeRepo:        likeRepo,
			participantRepo: participantRepo,
			logger:          logger,
		},
		createTimeout: createTimeout,
		defaultLimit:  defaultLimit,
		metrics:       m,
		logger:        logger,
	}
}

func (s *boardServiceImpl) ListBoards(ctx context.Context, identity domain.Identity, filter string) ([]*dto.BoardResponse, error) {
	if filter == "" {
		filter = dto.BoardFilterAll
	}
	if filter != dto.BoardFilterAll && filter != dto.BoardFilterMyPosts && filter != dto.BoardFilterLikedPosts {
		return nil, response.NewAppError(response.ErrCodeValidation, "Unknown board filter", filter)
	}

	if identity.IsDemo() {
		return s.listDemoBoards(identity, filter)
	}
	userID, err := backendUserID(identity)
	if err != nil {
		return nil, err
	}

	var boards []*domain.Board
	switch filter {
	case dto.BoardFilterMyPosts:
		boards, err = s.boardRepo.FindByOwner(ctx, userID)
	case dto.BoardFilterLikedPosts:
		boards, err = s.likedBoards(ctx, userID)
	default:
		boards, err = s.boardRepo.FindAll(ctx)
	}
	if err != nil {
		return nil, internalError("Failed to load boards", err)
	}

	result, err := s.decorator.decorate(ctx, userID, boards)
	if err != nil {
		return nil, internalError("Failed to load boards", err)
	}
	return result, nil
}

func (s *boardServiceImpl) likedBoards(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error) {
	likes, err := s.likeRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(likes) == 0 {
		return []*domain.Board{}, nil
	}
	ids := make([]uuid.UUID, 0, len(likes))
	for _, l := range likes {
		ids = append(ids, l.BoardID)
	}
	return s.boardRepo.FindByIDs(ctx, ids)
}

func (s *boardServiceImpl) listDemoBoards(identity domain.Identity, filter string) ([]*dto.BoardResponse, error) {
	boards, err := s.demoBoards.List()
	if err != nil {
		return nil, internalError("Failed to load demo boards", err)
	}
	switch filter {
	case dto.BoardFilterMyPosts:
		mine := make([]domain.DemoBoard, 0, len(boards))
		for _, b := range boards {
			if b.UserID == identity.ID {
				mine = append(mine, b)
			}
		}
		boards = mine
	case dto.BoardFilterLikedPosts:
		// demo identities cannot like
		boards = nil
	}
	return demoBoardResponses(boards), nil
}

func (s *boardServiceImpl) GetBoard(ctx context.Context, identity domain.Identity, rawBoardID string) (*dto.BoardResponse, error) {
	if identity.IsDemo() {
		board, err := s.demoBoards.Find(rawBoardID)
		if err != nil {
			return nil, s.demoError(err)
		}
		return demoBoardResponses([]domain.DemoBoard{*board})[0], nil
	}
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
	result, err := s.decorator.decorate(ctx, userID, []*domain.Board{board})
	if err != nil {
		return nil, internalError("Failed to load board", err)
	}
	return result[0], nil
}

func (s *boardServiceImpl) CreateBoard(ctx context.Context, identity domain.Identity, req *dto.CreateBoardRequest) (*dto.BoardResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, response.NewAppError(response.ErrCodeValidation, "タイトルを入力してください", "")
	}
	limit := s.defaultLimit
	if req.LimitCount != nil {
		limit = *req.LimitCount
	}
	if limit < 1 {
		return nil, response.NewAppError(response.ErrCodeValidation, "募集人数は1以上で指定してください", "")
	}

	if identity.IsDemo() {
		board, err := s.demoBoards.Create(domain.DemoBoard{
			UserID:     identity.ID,
			Title:      title,
			Purpose:    req.Purpose,
			LimitCount: limit,
			OwnerName:  firstNonEmpty(identity.Name, demoUserName),
		})
		if err != nil {
			return nil, internalError("Failed to create board", err)
		}
		s.metrics.IncrementBoardCreated()
		return demoBoardResponses([]domain.DemoBoard{*board})[0], nil
	}

	userID, err := backendUserID(identity)
	if err != nil {
		return nil, err
	}

	board := &domain.Board{UserID: userID, Title: title, Purpose: req.Purpose, LimitCount: limit}
	board.Stamp(timeNow())

	createCtx := ctx
	if s.createTimeout > 0 {
		var cancel context.CancelFunc
		createCtx, cancel = context.WithTimeout(ctx, s.createTimeout)
		defer cancel()
	}
	if err := s.boardRepo.Create(createCtx, board); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || createCtx.Err() != nil {
			s.logger.Warn("Board creation timed out",
				zap.String("user_id", userID.String()),
				zap.Duration("timeout", s.createTimeout),
			)
			return nil, response.NewAppError(response.ErrCodeTimeout, "投稿の作成がタイムアウトしました。もう一度お試しください", "")
		}
		return nil, internalError("Failed to create board", err)
	}

	if err := s.participantRepo.SetStatus(ctx, board.ID, userID, domain.ParticipantStatusAccepted); err != nil {
		s.logger.Error("Failed to add owner as participant", zap.String("board_id", board.ID.String()), zap.Error(err))
	}
	s.metrics.IncrementBoardCreated()

	s.logger.Info("Board created",
		zap.String("board_id", board.ID.String()),
		zap.String("user_id", userID.String()),
	)

	result, err := s.decorator.decorate(ctx, userID, []*domain.Board{board})
	if err != nil {
		resp := dto.BoardFromDomain(board)
		resp.Owner = &dto.OwnerSummary{ID: userID.String(), Name: firstNonEmpty(identity.Name, domain.DefaultUserName)}
		return resp, nil
	}
	return result[0], nil
}

func (s *boardServiceImpl) UpdateBoard(ctx context.Context, identity domain.Identity, rawBoardID string, req *dto.UpdateBoardRequest) (*dto.BoardResponse, error) {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, response.NewAppError(response.ErrCodeValidation, "タイトルを入力してください", "")
	}
	if req.LimitCount != nil && *req.LimitCount < 1 {
		return nil, response.NewAppError(response.ErrCodeValidation, "募集人数は1以上で指定してください", "")
	}

	if identity.IsDemo() {
		return s.updateDemoBoard(identity, rawBoardID, req)
	}
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
	if !board.IsOwnedBy(userID) {
		s.logger.Warn("Board update by non-owner",
			zap.String("board_id", boardID.String()),
			zap.String("user_id", userID.String()),
		)
		return nil, response.NewAppError(response.ErrCodeForbidden, "この投稿を編集する権限がありません", "")
	}

	values := map[string]interface{}{"updated_at": timeNow()}
	if req.Title != nil {
		board.Title = strings.TrimSpace(*req.Title)
		values["title"] = board.Title
	}
	if req.Purpose != nil {
		board.Purpose = req.Purpose
		values["purpose"] = *req.Purpose
	}
	if req.LimitCount != nil {
		board.LimitCount = *req.LimitCount
		values["limit_count"] = *req.LimitCount
	}
	board.UpdatedAt = values["updated_at"].(time.Time)

	if _, err := s.boardRepo.Update(ctx, boardID, values); err != nil {
		return nil, internalError("Failed to update board", err)
	}

	result, err := s.decorator.decorate(ctx, userID, []*domain.Board{board})
	if err != nil {
		return nil, internalError("Failed to load board", err)
	}
	return result[0], nil
}

func (s *boardServiceImpl) updateDemoBoard(identity domain.Identity, id string, req *dto.UpdateBoardRequest) (*dto.BoardResponse, error) {
	existing, err := s.demoBoards.Find(id)
	if err != nil {
		return nil, s.demoError(err)
	}
	if existing.UserID != identity.ID {
		return nil, response.NewAppError(response.ErrCodeForbidden, "この投稿を編集する権限がありません", "")
	}

	var title *string
	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		title = &trimmed
	}
	updated, err := s.demoBoards.Update(id, title, req.Purpose, req.LimitCount)
	if err != nil {
		return nil, s.demoError(err)
	}
	return demoBoardResponses([]domain.DemoBoard{*updated})[0], nil
}

func (s *boardServiceImpl) demoError(err error) error {
	if errors.Is(err, repository.ErrDemoBoardNotFound) {
		return response.NewAppError(response.ErrCodeNotFound, "Board not found", "")
	}
	return internalError("Failed to access demo boards", err)
}
