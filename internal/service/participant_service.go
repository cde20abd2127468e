package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/tanaka-0224/Iverse2/internal/backend"
	"github.com/tanaka-0224/Iverse2/internal/domain"
	"github.com/tanaka-0224/Iverse2/internal/dto"
	"github.com/tanaka-0224/Iverse2/internal/metrics"
	"github.com/tanaka-0224/Iverse2/internal/repository"
	"github.com/tanaka-0224/Iverse2/internal/response"
)

// ParticipantService defines the interface for the join/approve/reject workflow
type ParticipantService interface {
	JoinBoard(ctx context.Context, identity domain.Identity, boardID string) (*dto.JoinResponse, error)
	HandleApprove(ctx context.Context, identity domain.Identity, notificationID uuid.UUID) (*dto.DecisionResponse, error)
	HandleReject(ctx context.Context, identity domain.Identity, notificationID uuid.UUID) (*dto.DecisionResponse, error)
	// ListPendingRequests returns like requests waiting for the owner's decision, newest first
	ListPendingRequests(ctx context.Context, identity domain.Identity) ([]*dto.NotificationResponse, error)
}

type participantServiceImpl struct {
	boardRepo        repository.BoardRepository
	participantRepo  repository.ParticipantRepository
	likeRepo         repository.LikeRepository
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	messages         MessageService
	notifications    NotificationService
	metrics          *metrics.Metrics
	logger           *zap.Logger
}

// NewParticipantService creates a new instance of ParticipantService
func NewParticipantService(
	boardRepo repository.BoardRepository,
	participantRepo repository.ParticipantRepository,
	likeRepo repository.LikeRepository,
	notificationRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	messages MessageService,
	notifications NotificationService,
	m *metrics.Metrics,
	logger *zap.Logger,
) ParticipantService {
	return &participantServiceImpl{
		boardRepo:        boardRepo,
		participantRepo:  participantRepo,
		likeRepo:         likeRepo,
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		messages:         messages,
		notifications:    notifications,
		metrics:          m,
		logger:           logger,
	}
}

func (s *participantServiceImpl) JoinBoard(ctx context.Context, identity domain.Identity, rawBoardID string) (*dto.JoinResponse, error) {
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

	alreadyJoined := &dto.JoinResponse{BoardID: boardID.String(), AlreadyJoined: true, Navigate: dto.NavigateChat}

	existing, err := s.participantRepo.FindByBoardAndUser(ctx, boardID, userID)
	switch {
	case err == nil && existing.IsAccepted():
		s.metrics.RecordJoin("already_joined")
		return alreadyJoined, nil
	case err == nil:
		// the owner rejected this user; a direct join must not override that
		return nil, response.NewAppError(response.ErrCodeForbidden, "参加リクエストが承認されませんでした", "")
	case !errors.Is(err, backend.ErrNotFound):
		return nil, internalError("Failed to check membership", err)
	}

	if err := s.ensureCapacity(ctx, board); err != nil {
		s.metrics.RecordJoin("full")
		return nil, err
	}

	participant := &domain.Participant{BoardID: boardID, UserID: userID, Status: domain.ParticipantStatusAccepted}
	participant.Stamp(timeNow())
	if err := s.participantRepo.Create(ctx, participant); err != nil {
		if errors.Is(err, backend.ErrDuplicate) {
			s.metrics.RecordJoin("already_joined")
			return alreadyJoined, nil
		}
		return nil, internalError("Failed to join board", err)
	}
	s.metrics.RecordJoin("joined")

	if err := s.messages.PostWelcome(ctx, boardID, userID); err != nil {
		s.logger.Warn("Failed to post welcome message", zap.String("board_id", boardID.String()), zap.Error(err))
	}

	if board.UserID != userID {
		s.notifications.Notify(ctx, &domain.Notification{
			UserID:     board.UserID,
			FromUserID: userID,
			BoardID:    boardID,
			Type:       domain.NotificationTypeJoined,
			Status:     domain.NotificationStatusInfo,
			Message:    fmt.Sprintf("%sさんが「%s」に参加しました", s.userName(ctx, userID), board.Title),
		})
	}

	s.logger.Info("User joined board",
		zap.String("board_id", boardID.String()),
		zap.String("user_id", userID.String()),
	)
	return &dto.JoinResponse{BoardID: boardID.String(), Joined: true, Navigate: dto.NavigateChat}, nil
}

func (s *participantServiceImpl) ensureCapacity(ctx context.Context, board *domain.Board) error {
	// limit_count is the number of recruits; the owner does not take a slot
	count, err := s.participantRepo.CountMembers(ctx, board.ID, board.UserID)
	if err != nil {
		return internalError("Failed to check board capacity", err)
	}
	if board.LimitCount > 0 && count >= int64(board.LimitCount) {
		return response.NewAppError(response.ErrCodeBoardFull, "この募集は定員に達しています", "")
	}
	return nil
}

func (s *participantServiceImpl) HandleApprove(ctx context.Context, identity domain.Identity, notificationID uuid.UUID) (*dto.DecisionResponse, error) {
	return s.decide(ctx, identity, notificationID, domain.NotificationStatusApproved)
}

func (s *participantServiceImpl) HandleReject(ctx context.Context, identity domain.Identity, notificationID uuid.UUID) (*dto.DecisionResponse, error) {
	return s.decide(ctx, identity, notificationID, domain.NotificationStatusRejected)
}

// decide resolves a pending like request. The conditional update on
// status=pending lets exactly one concurrent caller proceed.
func (s *participantServiceImpl) decide(ctx context.Context, identity domain.Identity, notificationID uuid.UUID, decision domain.NotificationStatus) (*dto.DecisionResponse, error) {
	ownerID, err := backendUserID(identity)
	if err != nil {
		return nil, err
	}

	request, err := s.notificationRepo.FindByID(ctx, notificationID)
	if err != nil {
		return nil, notFoundOr(err, "Request not found", "Failed to load request")
	}
	if request.UserID != ownerID {
		s.logger.Warn("Request decision by non-recipient",
			zap.String("notification_id", notificationID.String()),
			zap.String("user_id", ownerID.String()),
		)
		return nil, response.NewAppError(response.ErrCodeForbidden, "このリクエストを処理する権限がありません", "")
	}
	if request.Type != domain.NotificationTypeLike {
		return nil, response.NewAppError(response.ErrCodeValidation, "Only join requests can be approved or rejected", "")
	}
	if request.Status != domain.NotificationStatusPending {
		s.metrics.RecordRequestHandled("already_handled")
		return nil, response.NewAppError(response.ErrCodeAlreadyHandled, "このリクエストは処理済みです", "")
	}

	// the liker may have taken the like back since the request was sent
	if _, err := s.likeRepo.Find(ctx, request.FromUserID, request.BoardID); err != nil {
		if !errors.Is(err, backend.ErrNotFound) {
			return nil, internalError("Failed to load like", err)
		}
		s.notifications.WithdrawRequest(ctx, ownerID, request.BoardID, request.FromUserID)
		s.metrics.RecordRequestHandled("withdrawn")
		return nil, response.NewAppError(response.ErrCodeAlreadyHandled, "この参加希望は取り下げられました", "")
	}

	if decision == domain.NotificationStatusApproved {
		board, err := s.boardRepo.FindByID(ctx, request.BoardID)
		if err != nil {
			return nil, notFoundOr(err, "Board not found", "Failed to load board")
		}
		if err := s.ensureCapacity(ctx, board); err != nil {
			return nil, err
		}
	}

	affected, err := s.notificationRepo.ResolvePending(ctx, notificationID, ownerID, decision)
	if err != nil {
		return nil, internalError("Failed to update request", err)
	}
	if affected == 0 {
		s.metrics.RecordRequestHandled("already_handled")
		return nil, response.NewAppError(response.ErrCodeAlreadyHandled, "このリクエストは処理済みです", "")
	}
	s.notifications.InvalidateUnread(ctx, ownerID)

	likerID := request.FromUserID
	status := domain.ParticipantStatusRejected
	if decision == domain.NotificationStatusApproved {
		status = domain.ParticipantStatusAccepted
	}
	if err := s.participantRepo.SetStatus(ctx, request.BoardID, likerID, status); err != nil {
		return nil, internalError("Failed to update membership", err)
	}

	boardTitle := s.boardTitle(ctx, request)
	if decision == domain.NotificationStatusApproved {
		if err := s.messages.PostWelcome(ctx, request.BoardID, likerID); err != nil {
			s.logger.Warn("Failed to post welcome message", zap.String("board_id", request.BoardID.String()), zap.Error(err))
		}
		s.notifications.Notify(ctx, &domain.Notification{
			UserID:     likerID,
			FromUserID: ownerID,
			BoardID:    request.BoardID,
			Type:       domain.NotificationTypeAccepted,
			Message:    fmt.Sprintf("「%s」への参加が承認されました", boardTitle),
		})
		s.metrics.RecordRequestHandled("approved")
	} else {
		s.notifications.Notify(ctx, &domain.Notification{
			UserID:     likerID,
			FromUserID: ownerID,
			BoardID:    request.BoardID,
			Type:       domain.NotificationTypeRejected,
			Message:    fmt.Sprintf("「%s」への参加は見送られました", boardTitle),
		})
		s.metrics.RecordRequestHandled("rejected")
	}

	s.logger.Info("Join request handled",
		zap.String("notification_id", notificationID.String()),
		zap.String("board_id", request.BoardID.String()),
		zap.String("decision", string(decision)),
	)

	return &dto.DecisionResponse{
		NotificationID: notificationID.String(),
		BoardID:        request.BoardID.String(),
		UserID:         likerID.String(),
		Status:         decision,
	}, nil
}

func (s *participantServiceImpl) ListPendingRequests(ctx context.Context, identity domain.Identity) ([]*dto.NotificationResponse, error) {
	if identity.IsDemo() {
		return []*dto.NotificationResponse{}, nil
	}
	ownerID, err := backendUserID(identity)
	if err != nil {
		return nil, err
	}

	rows, err := s.notificationRepo.FindPending(ctx, ownerID)
	if err != nil {
		return nil, internalError("Failed to load requests", err)
	}

	result := make([]*dto.NotificationResponse, 0, len(rows))
	for _, n := range rows {
		result = append(result, dto.NotificationFromDomain(n))
	}
	return result, nil
}

func (s *participantServiceImpl) userName(ctx context.Context, userID uuid.UUID) string {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return domain.DefaultUserName
	}
	return user.DisplayName()
}

// boardTitle reads the title recorded on the request, falling back to the board row
func (s *participantServiceImpl) boardTitle(ctx context.Context, request *domain.Notification) string {
	var meta struct {
		BoardTitle string `json:"board_title"`
	}
	if len(request.Metadata) > 0 && json.Unmarshal(request.Metadata, &meta) == nil && meta.BoardTitle != "" {
		return meta.BoardTitle
	}
	if board, err := s.boardRepo.FindByID(ctx, request.BoardID); err == nil {
		return board.Title
	}
	return ""
}

// likeMetadata is stored on like requests so decisions can render the board title
func likeMetadata(boardTitle, fromName string) datatypes.JSON {
	data, err := json.Marshal(map[string]string{
		"board_title":    boardTitle,
		"from_user_name": fromName,
	})
	if err != nil {
		return datatypes.JSON(`{}`)
	}
	return datatypes.JSON(data)
}
