package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tanaka-0224/Iverse2/internal/backend"
	"github.com/tanaka-0224/Iverse2/internal/client"
	"github.com/tanaka-0224/Iverse2/internal/domain"
	"github.com/tanaka-0224/Iverse2/internal/dto"
	"github.com/tanaka-0224/Iverse2/internal/realtime"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	FindByIDFunc  func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByIDsFunc func(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error)
	UpsertFunc    func(ctx context.Context, user *domain.User) error
	UpdateFunc    func(ctx context.Context, id uuid.UUID, values map[string]interface{}) (int64, error)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, backend.ErrNotFound
}

func (m *MockUserRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error) {
	if m.FindByIDsFunc != nil {
		return m.FindByIDsFunc(ctx, ids)
	}
	return []*domain.User{}, nil
}

func (m *MockUserRepository) Upsert(ctx context.Context, user *domain.User) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, user)
	}
	return nil
}

func (m *MockUserRepository) Update(ctx context.Context, id uuid.UUID, values map[string]interface{}) (int64, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, values)
	}
	return 1, nil
}

// MockBoardRepository is a mock implementation of BoardRepository
type MockBoardRepository struct {
	CreateFunc         func(ctx context.Context, board *domain.Board) error
	FindByIDFunc       func(ctx context.Context, id uuid.UUID) (*domain.Board, error)
	FindByIDsFunc      func(ctx context.Context, ids []uuid.UUID) ([]*domain.Board, error)
	FindAllFunc        func(ctx context.Context) ([]*domain.Board, error)
	FindByOwnerFunc    func(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error)
	FindNotOwnedByFunc func(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error)
	UpdateFunc         func(ctx context.Context, id uuid.UUID, values map[string]interface{}) (int64, error)
	CountFunc          func(ctx context.Context) (int64, error)
}

func (m *MockBoardRepository) Create(ctx context.Context, board *domain.Board) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, board)
	}
	return nil
}

func (m *MockBoardRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, backend.ErrNotFound
}

func (m *MockBoardRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Board, error) {
	if m.FindByIDsFunc != nil {
		return m.FindByIDsFunc(ctx, ids)
	}
	return []*domain.Board{}, nil
}

func (m *MockBoardRepository) FindAll(ctx context.Context) ([]*domain.Board, error) {
	if m.FindAllFunc != nil {
		return m.FindAllFunc(ctx)
	}
	return []*domain.Board{}, nil
}

func (m *MockBoardRepository) FindByOwner(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error) {
	if m.FindByOwnerFunc != nil {
		return m.FindByOwnerFunc(ctx, userID)
	}
	return []*domain.Board{}, nil
}

func (m *MockBoardRepository) FindNotOwnedBy(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error) {
	if m.FindNotOwnedByFunc != nil {
		return m.FindNotOwnedByFunc(ctx, userID)
	}
	return []*domain.Board{}, nil
}

func (m *MockBoardRepository) Update(ctx context.Context, id uuid.UUID, values map[string]interface{}) (int64, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, values)
	}
	return 1, nil
}

func (m *MockBoardRepository) Count(ctx context.Context) (int64, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx)
	}
	return 0, nil
}

// MockLikeRepository is a mock implementation of LikeRepository
type MockLikeRepository struct {
	CreateFunc              func(ctx context.Context, like *domain.Like) error
	FindFunc                func(ctx context.Context, userID, boardID uuid.UUID) (*domain.Like, error)
	DeleteFunc              func(ctx context.Context, userID, boardID uuid.UUID) (int64, error)
	FindByUserFunc          func(ctx context.Context, userID uuid.UUID) ([]*domain.Like, error)
	FindByUserAndBoardsFunc func(ctx context.Context, userID uuid.UUID, boardIDs []uuid.UUID) ([]*domain.Like, error)
}

func (m *MockLikeRepository) Create(ctx context.Context, like *domain.Like) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, like)
	}
	return nil
}

func (m *MockLikeRepository) Find(ctx context.Context, userID, boardID uuid.UUID) (*domain.Like, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, userID, boardID)
	}
	return nil, backend.ErrNotFound
}

func (m *MockLikeRepository) Delete(ctx context.Context, userID, boardID uuid.UUID) (int64, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID, boardID)
	}
	return 1, nil
}

func (m *MockLikeRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Like, error) {
	if m.FindByUserFunc != nil {
		return m.FindByUserFunc(ctx, userID)
	}
	return []*domain.Like{}, nil
}

func (m *MockLikeRepository) FindByUserAndBoards(ctx context.Context, userID uuid.UUID, boardIDs []uuid.UUID) ([]*domain.Like, error) {
	if m.FindByUserAndBoardsFunc != nil {
		return m.FindByUserAndBoardsFunc(ctx, userID, boardIDs)
	}
	return []*domain.Like{}, nil
}

// MockParticipantRepository is a mock implementation of ParticipantRepository
type MockParticipantRepository struct {
	CreateFunc               func(ctx context.Context, participant *domain.Participant) error
	FindByBoardAndUserFunc   func(ctx context.Context, boardID, userID uuid.UUID) (*domain.Participant, error)
	FindAcceptedByUserFunc   func(ctx context.Context, userID uuid.UUID) ([]*domain.Participant, error)
	FindAcceptedByBoardsFunc func(ctx context.Context, boardIDs []uuid.UUID) ([]*domain.Participant, error)
	CountMembersFunc         func(ctx context.Context, boardID, ownerID uuid.UUID) (int64, error)
	SetStatusFunc            func(ctx context.Context, boardID, userID uuid.UUID, status domain.ParticipantStatus) error
}

func (m *MockParticipantRepository) Create(ctx context.Context, participant *domain.Participant) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, participant)
	}
	return nil
}

func (m *MockParticipantRepository) FindByBoardAndUser(ctx context.Context, boardID, userID uuid.UUID) (*domain.Participant, error) {
	if m.FindByBoardAndUserFunc != nil {
		return m.FindByBoardAndUserFunc(ctx, boardID, userID)
	}
	return nil, backend.ErrNotFound
}

func (m *MockParticipantRepository) FindAcceptedByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Participant, error) {
	if m.FindAcceptedByUserFunc != nil {
		return m.FindAcceptedByUserFunc(ctx, userID)
	}
	return []*domain.Participant{}, nil
}

func (m *MockParticipantRepository) FindAcceptedByBoards(ctx context.Context, boardIDs []uuid.UUID) ([]*domain.Participant, error) {
	if m.FindAcceptedByBoardsFunc != nil {
		return m.FindAcceptedByBoardsFunc(ctx, boardIDs)
	}
	return []*domain.Participant{}, nil
}

func (m *MockParticipantRepository) CountMembers(ctx context.Context, boardID, ownerID uuid.UUID) (int64, error) {
	if m.CountMembersFunc != nil {
		return m.CountMembersFunc(ctx, boardID, ownerID)
	}
	return 0, nil
}

func (m *MockParticipantRepository) SetStatus(ctx context.Context, boardID, userID uuid.UUID, status domain.ParticipantStatus) error {
	if m.SetStatusFunc != nil {
		return m.SetStatusFunc(ctx, boardID, userID, status)
	}
	return nil
}

// MockMessageRepository is a mock implementation of MessageRepository
type MockMessageRepository struct {
	CreateFunc      func(ctx context.Context, message *domain.Message) error
	FindByBoardFunc func(ctx context.Context, boardID uuid.UUID) ([]*domain.Message, error)
}

func (m *MockMessageRepository) Create(ctx context.Context, message *domain.Message) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, message)
	}
	return nil
}

func (m *MockMessageRepository) FindByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Message, error) {
	if m.FindByBoardFunc != nil {
		return m.FindByBoardFunc(ctx, boardID)
	}
	return []*domain.Message{}, nil
}

// MockNotificationRepository is a mock implementation of NotificationRepository
type MockNotificationRepository struct {
	CreateFunc           func(ctx context.Context, notification *domain.Notification) error
	FindByIDFunc         func(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
	FindByUserFunc       func(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, error)
	FindPendingFunc      func(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error)
	CountUnreadFunc      func(ctx context.Context, userID uuid.UUID) (int64, error)
	ResolvePendingFunc   func(ctx context.Context, id, userID uuid.UUID, status domain.NotificationStatus) (int64, error)
	MarkAsReadFunc       func(ctx context.Context, id, userID uuid.UUID) (int64, error)
	MarkAllAsReadFunc    func(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteReadBeforeFunc func(ctx context.Context, cutoff time.Time) (int64, error)

	DeletePendingRequestsFunc func(ctx context.Context, boardID, fromUserID uuid.UUID) (int64, error)
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, notification)
	}
	return nil
}

func (m *MockNotificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, backend.ErrNotFound
}

func (m *MockNotificationRepository) FindByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	if m.FindByUserFunc != nil {
		return m.FindByUserFunc(ctx, userID, unreadOnly, limit)
	}
	return []*domain.Notification{}, nil
}

func (m *MockNotificationRepository) FindPending(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	if m.FindPendingFunc != nil {
		return m.FindPendingFunc(ctx, userID)
	}
	return []*domain.Notification{}, nil
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	if m.CountUnreadFunc != nil {
		return m.CountUnreadFunc(ctx, userID)
	}
	return 0, nil
}

func (m *MockNotificationRepository) ResolvePending(ctx context.Context, id, userID uuid.UUID, status domain.NotificationStatus) (int64, error) {
	if m.ResolvePendingFunc != nil {
		return m.ResolvePendingFunc(ctx, id, userID, status)
	}
	return 1, nil
}

func (m *MockNotificationRepository) MarkAsRead(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	if m.MarkAsReadFunc != nil {
		return m.MarkAsReadFunc(ctx, id, userID)
	}
	return 1, nil
}

func (m *MockNotificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if m.MarkAllAsReadFunc != nil {
		return m.MarkAllAsReadFunc(ctx, userID)
	}
	return 0, nil
}

func (m *MockNotificationRepository) DeletePendingRequests(ctx context.Context, boardID, fromUserID uuid.UUID) (int64, error) {
	if m.DeletePendingRequestsFunc != nil {
		return m.DeletePendingRequestsFunc(ctx, boardID, fromUserID)
	}
	return 0, nil
}

func (m *MockNotificationRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.DeleteReadBeforeFunc != nil {
		return m.DeleteReadBeforeFunc(ctx, cutoff)
	}
	return 0, nil
}

// MockAuthClient is a mock implementation of client.AuthClient
type MockAuthClient struct {
	SignInFunc  func(ctx context.Context, email, password string) (*client.AuthResult, error)
	SignUpFunc  func(ctx context.Context, email, password, name string) (*client.AuthResult, error)
	SignOutFunc func(ctx context.Context, accessToken string) error
}

func (m *MockAuthClient) SignIn(ctx context.Context, email, password string) (*client.AuthResult, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password)
	}
	return nil, errors.New("sign in not stubbed")
}

func (m *MockAuthClient) SignUp(ctx context.Context, email, password, name string) (*client.AuthResult, error) {
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, email, password, name)
	}
	return nil, errors.New("sign up not stubbed")
}

func (m *MockAuthClient) SignOut(ctx context.Context, accessToken string) error {
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, accessToken)
	}
	return nil
}

// MockStorageClient is a mock implementation of client.StorageClient
type MockStorageClient struct {
	UploadFunc    func(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	PublicURLFunc func(key string) string
}

func (m *MockStorageClient) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, key, body, contentType)
	}
	return "https://storage.example.com/" + key, nil
}

func (m *MockStorageClient) PublicURL(key string) string {
	if m.PublicURLFunc != nil {
		return m.PublicURLFunc(key)
	}
	return "https://storage.example.com/" + key
}

// MockNotificationService is a mock implementation of NotificationService.
// Notify records every notification when NotifyFunc is not set.
type MockNotificationService struct {
	NotifyFunc           func(ctx context.Context, n *domain.Notification)
	ListFunc             func(ctx context.Context, identity domain.Identity, unreadOnly bool) ([]*dto.NotificationResponse, error)
	UnreadCountFunc      func(ctx context.Context, identity domain.Identity) (*dto.UnreadCountResponse, error)
	MarkAsReadFunc       func(ctx context.Context, identity domain.Identity, id uuid.UUID) error
	MarkAllAsReadFunc    func(ctx context.Context, identity domain.Identity) (*dto.MarkAllReadResponse, error)
	InvalidateUnreadFunc func(ctx context.Context, userID uuid.UUID)
	CleanupOldFunc       func(ctx context.Context, days int) (int64, error)
	WithdrawRequestFunc  func(ctx context.Context, ownerID, boardID, likerID uuid.UUID)

	mu       sync.Mutex
	Notified []*domain.Notification
}

func (m *MockNotificationService) Notify(ctx context.Context, n *domain.Notification) {
	if m.NotifyFunc != nil {
		m.NotifyFunc(ctx, n)
		return
	}
	m.mu.Lock()
	m.Notified = append(m.Notified, n)
	m.mu.Unlock()
}

// Sent returns the recorded notifications
func (m *MockNotificationService) Sent() []*domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Notification, len(m.Notified))
	copy(out, m.Notified)
	return out
}

func (m *MockNotificationService) List(ctx context.Context, identity domain.Identity, unreadOnly bool) ([]*dto.NotificationResponse, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, identity, unreadOnly)
	}
	return []*dto.NotificationResponse{}, nil
}

func (m *MockNotificationService) UnreadCount(ctx context.Context, identity domain.Identity) (*dto.UnreadCountResponse, error) {
	if m.UnreadCountFunc != nil {
		return m.UnreadCountFunc(ctx, identity)
	}
	return &dto.UnreadCountResponse{}, nil
}

func (m *MockNotificationService) MarkAsRead(ctx context.Context, identity domain.Identity, id uuid.UUID) error {
	if m.MarkAsReadFunc != nil {
		return m.MarkAsReadFunc(ctx, identity, id)
	}
	return nil
}

func (m *MockNotificationService) MarkAllAsRead(ctx context.Context, identity domain.Identity) (*dto.MarkAllReadResponse, error) {
	if m.MarkAllAsReadFunc != nil {
		return m.MarkAllAsReadFunc(ctx, identity)
	}
	return &dto.MarkAllReadResponse{}, nil
}

func (m *MockNotificationService) InvalidateUnread(ctx context.Context, userID uuid.UUID) {
	if m.InvalidateUnreadFunc != nil {
		m.InvalidateUnreadFunc(ctx, userID)
	}
}

func (m *MockNotificationService) WithdrawRequest(ctx context.Context, ownerID, boardID, likerID uuid.UUID) {
	if m.WithdrawRequestFunc != nil {
		m.WithdrawRequestFunc(ctx, ownerID, boardID, likerID)
	}
}

func (m *MockNotificationService) CleanupOld(ctx context.Context, days int) (int64, error) {
	if m.CleanupOldFunc != nil {
		return m.CleanupOldFunc(ctx, days)
	}
	return 0, nil
}

// MockMessageService is a mock implementation of MessageService
type MockMessageService struct {
	ListChatBoardsFunc func(ctx context.Context, identity domain.Identity) ([]*dto.ChatBoardResponse, error)
	FetchMessagesFunc  func(ctx context.Context, identity domain.Identity, boardID string) ([]*dto.MessageResponse, error)
	SendMessageFunc    func(ctx context.Context, identity domain.Identity, boardID, content string) (*dto.MessageResponse, error)
	CheckAccessFunc    func(ctx context.Context, identity domain.Identity, boardID string) (uuid.UUID, error)
	SubscribeFunc      func(ctx context.Context, boardID uuid.UUID) (realtime.Subscription, error)
	PostWelcomeFunc    func(ctx context.Context, boardID, userID uuid.UUID) error
}

func (m *MockMessageService) ListChatBoards(ctx context.Context, identity domain.Identity) ([]*dto.ChatBoardResponse, error) {
	if m.ListChatBoardsFunc != nil {
		return m.ListChatBoardsFunc(ctx, identity)
	}
	return []*dto.ChatBoardResponse{}, nil
}

func (m *MockMessageService) FetchMessages(ctx context.Context, identity domain.Identity, boardID string) ([]*dto.MessageResponse, error) {
	if m.FetchMessagesFunc != nil {
		return m.FetchMessagesFunc(ctx, identity, boardID)
	}
	return []*dto.MessageResponse{}, nil
}

func (m *MockMessageService) SendMessage(ctx context.Context, identity domain.Identity, boardID, content string) (*dto.MessageResponse, error) {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, identity, boardID, content)
	}
	return nil, errors.New("send not stubbed")
}

func (m *MockMessageService) CheckAccess(ctx context.Context, identity domain.Identity, boardID string) (uuid.UUID, error) {
	if m.CheckAccessFunc != nil {
		return m.CheckAccessFunc(ctx, identity, boardID)
	}
	return uuid.Parse(boardID)
}

func (m *MockMessageService) Subscribe(ctx context.Context, boardID uuid.UUID) (realtime.Subscription, error) {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(ctx, boardID)
	}
	return nil, errors.New("subscribe not stubbed")
}

func (m *MockMessageService) PostWelcome(ctx context.Context, boardID, userID uuid.UUID) error {
	if m.PostWelcomeFunc != nil {
		return m.PostWelcomeFunc(ctx, boardID, userID)
	}
	return nil
}
