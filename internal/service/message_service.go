package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tanaka-0224/Iverse2/internal/backend"
	"github.com/tanaka-0224/Iverse2/internal/domain"
	"github.com/tanaka-0224/Iverse2/internal/dto"
	"github.com/tanaka-0224/Iverse2/internal/metrics"
	"github.com/tanaka-0224/Iverse2/internal/realtime"
	"github.com/tanaka-0224/Iverse2/internal/repository"
	"github.com/tanaka-0224/Iverse2/internal/response"
)

const (
	maxMessageLength    = 2000
	usernamePlaceholder = "[USERNAME]"

	notParticipantMessage = "このボードのメンバーではないため、メッセージを送信できません"
)

// MessageService defines the interface for chat business logic
type MessageService interface {
	ListChatBoards(ctx context.Context, identity domain.Identity) ([]*dto.ChatBoardResponse, error)
	FetchMessages(ctx context.Context, identity domain.Identity, boardID string) ([]*dto.MessageResponse, error)
	SendMessage(ctx context.Context, identity domain.Identity, boardID, content string) (*dto.MessageResponse, error)
	// CheckAccess returns NOT_PARTICIPANT unless the caller is an accepted participant
	CheckAccess(ctx context.Context, identity domain.Identity, boardID string) (uuid.UUID, error)
	// Subscribe opens a realtime subscription on the board's message channel
	Subscribe(ctx context.Context, boardID uuid.UUID) (realtime.Subscription, error)
	// PostWelcome posts the rendered welcome template as userID
	PostWelcome(ctx context.Context, boardID, userID uuid.UUID) error
}

type messageServiceImpl struct {
	boardRepo       repository.BoardRepository
	participantRepo repository.ParticipantRepository
	messageRepo     repository.MessageRepository
	userRepo        repository.UserRepository
	broker          realtime.Broker
	welcomeTemplate string
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

// NewMessageService creates a new instance of MessageService
func NewMessageService(
	boardRepo repository.BoardRepository,
	participantRepo repository.ParticipantRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	broker realtime.Broker,
	welcomeTemplate string,
	m *metrics.Metrics,
	logger *zap.Logger,
) MessageService {
	return &messageServiceImpl{
		boardRepo:       boardRepo,
		participantRepo: participantRepo,
		messageRepo:     messageRepo,
		userRepo:        userRepo,
		broker:          broker,
		welcomeTemplate: welcomeTemplate,
		metrics:         m,
		logger:          logger,
	}
}

func (s *messageServiceImpl) ListChatBoards(ctx context.Context, identity domain.Identity) ([]*dto.ChatBoardResponse, error) {
	if identity.IsDemo() {
		return []*dto.ChatBoardResponse{}, nil
	}
	userID, err := backendUserID(identity)
	if err != nil {
		return nil, err
	}

	memberships, err := s.participantRepo.FindAcceptedByUser(ctx, userID)
	if err != nil {
		return nil, internalError("Failed to load chats", err)
	}
	if len(memberships) == 0 {
		return []*dto.ChatBoardResponse{}, nil
	}

	boardIDs := make([]uuid.UUID, 0, len(memberships))
	joinedAt := make(map[uuid.UUID]time.Time, len(memberships))
	for _, p := range memberships {
		boardIDs = append(boardIDs, p.BoardID)
		joinedAt[p.BoardID] = p.CreatedAt
	}

	boards, err := s.boardRepo.FindByIDs(ctx, boardIDs)
	if err != nil {
		return nil, internalError("Failed to load chats", err)
	}
	counts, err := acceptedCounts(ctx, s.participantRepo, boardIDs)
	if err != nil {
		return nil, internalError("Failed to load chats", err)
	}

	result := make([]*dto.ChatBoardResponse, 0, len(boards))
	for _, b := range boards {
		result = append(result, &dto.ChatBoardResponse{
			ID:               b.ID.String(),
			Title:            b.Title,
			Purpose:          b.Purpose,
			OwnerID:          b.UserID.String(),
			ParticipantCount: counts[b.ID],
			JoinedAt:         joinedAt[b.ID],
		})
	}
	return result, nil
}

func (s *messageServiceImpl) CheckAccess(ctx context.Context, identity domain.Identity, rawBoardID string) (uuid.UUID, error) {
	userID, err := backendUserID(identity)
	if err != nil {
		return uuid.Nil, err
	}
	boardID, err := parseID(rawBoardID, "board")
	if err != nil {
		return uuid.Nil, err
	}

	participant, err := s.participantRepo.FindByBoardAndUser(ctx, boardID, userID)
	if err != nil && !errors.Is(err, backend.ErrNotFound) {
		return uuid.Nil, internalError("Failed to verify membership", err)
	}
	if !participant.IsAccepted() {
		s.logger.Info("Chat access denied",
			zap.String("board_id", boardID.String()),
			zap.String("user_id", userID.String()),
		)
		return uuid.Nil, response.NewAppError(response.ErrCodeNotParticipant, notParticipantMessage, "")
	}
	return boardID, nil
}

func (s *messageServiceImpl) FetchMessages(ctx context.Context, identity domain.Identity, rawBoardID string) ([]*dto.MessageResponse, error) {
	boardID, err := s.CheckAccess(ctx, identity, rawBoardID)
	if err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.FindByBoard(ctx, boardID)
	if err != nil {
		return nil, internalError("Failed to load messages", err)
	}

	authorIDs := make([]uuid.UUID, 0, len(messages))
	for _, m := range messages {
		authorIDs = append(authorIDs, m.UserID)
	}
	authors := userSummaries(ctx, s.userRepo, authorIDs, s.logger)

	result := make([]*dto.MessageResponse, 0, len(messages))
	for _, m := range messages {
		resp := dto.MessageFromDomain(m)
		resp.Author = summaryFor(authors, m.UserID)
		result = append(result, resp)
	}
	return result, nil
}

func (s *messageServiceImpl) SendMessage(ctx context.Context, identity domain.Identity, rawBoardID, content string) (*dto.MessageResponse, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, response.NewAppError(response.ErrCodeValidation, "Message content is required", "")
	}
	if len([]rune(content)) > maxMessageLength {
		return nil, response.NewAppError(response.ErrCodeValidation, "Message is too long", "")
	}

	boardID, err := s.CheckAccess(ctx, identity, rawBoardID)
	if err != nil {
		return nil, err
	}
	userID, _ := identity.UserID()

	resp, err := s.insert(ctx, boardID, userID, content)
	if err != nil {
		return nil, internalError("Failed to send message", err)
	}
	s.metrics.IncrementMessageSent()
	return resp, nil
}

func (s *messageServiceImpl) PostWelcome(ctx context.Context, boardID, userID uuid.UUID) error {
	name := domain.DefaultUserName
	if user, err := s.userRepo.FindByID(ctx, userID); err == nil {
		name = user.DisplayName()
	} else {
		s.logger.Warn("Failed to load user name for welcome message", zap.String("user_id", userID.String()), zap.Error(err))
	}

	content := strings.TrimSpace(strings.ReplaceAll(s.welcomeTemplate, usernamePlaceholder, name))
	if content == "" {
		s.logger.Warn("Skipping welcome message",
			zap.String("reason", "EMPTY_CONTENT"),
			zap.String("board_id", boardID.String()),
		)
		return nil
	}

	if _, err := s.insert(ctx, boardID, userID, content); err != nil {
		return err
	}
	s.metrics.IncrementMessageSent()
	return nil
}

func (s *messageServiceImpl) insert(ctx context.Context, boardID, userID uuid.UUID, content string) (*dto.MessageResponse, error) {
	msg := &domain.Message{
		ID:        uuid.New(),
		BoardID:   boardID,
		UserID:    userID,
		Content:   content,
		CreatedAt: timeNow(),
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	resp := dto.MessageFromDomain(msg)
	resp.Author = summaryFor(userSummaries(ctx, s.userRepo, []uuid.UUID{userID}, s.logger), userID)
	s.publish(ctx, resp)
	return resp, nil
}

func (s *messageServiceImpl) publish(ctx context.Context, msg *dto.MessageResponse) {
	if s.broker == nil {
		return
	}
	payload, err := realtime.NewMessageInsert(msg.BoardID, msg)
	if err == nil {
		err = s.broker.Publish(ctx, realtime.ChatChannel(msg.BoardID), payload)
	}
	if err != nil {
		s.metrics.IncrementRealtimePublishError()
		s.logger.Warn("Failed to publish message event",
			zap.String("board_id", msg.BoardID),
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
	}
}

func (s *messageServiceImpl) Subscribe(ctx context.Context, boardID uuid.UUID) (realtime.Subscription, error) {
	return s.broker.Subscribe(ctx, realtime.ChatChannel(boardID.String()))
}

// acceptedCounts returns the accepted participant count per board
func acceptedCounts(ctx context.Context, repo repository.ParticipantRepository, boardIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	participants, err := repo.FindAcceptedByBoards(ctx, boardIDs)
	if err != nil {
		return nil, err
	}
	counts := make(map[uuid.UUID]int, len(boardIDs))
	for _, p := range participants {
		counts[p.BoardID]++
	}
	return counts, nil
}
