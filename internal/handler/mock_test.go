package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tanaka-0224/Iverse2/internal/domain"
	"github.com/tanaka-0224/Iverse2/internal/dto"
	"github.com/tanaka-0224/Iverse2/internal/middleware"
	"github.com/tanaka-0224/Iverse2/internal/realtime"
	"github.com/tanaka-0224/Iverse2/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testIdentity = domain.Identity{
	ID:    "11111111-1111-1111-1111-111111111111",
	Email: "taro@example.com",
	Name:  "Taro",
	Mode:  domain.AuthModeBackend,
}

// withIdentity stands in for the auth middleware
func withIdentity(identity domain.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.IdentityKey, identity)
		c.Set(middleware.UserIDKey, identity.ID)
		c.Next()
	}
}

func newTestRouter(identity *domain.Identity) *gin.Engine {
	r := gin.New()
	if identity != nil {
		r.Use(withIdentity(*identity))
	}
	return r
}

func serve(t *testing.T, r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// MockAuthService is a mock implementation of AuthService
type MockAuthService struct {
	SignInFunc         func(ctx context.Context, req *dto.SignInRequest) (*dto.AuthResponse, error)
	SignUpFunc         func(ctx context.Context, req *dto.SignUpRequest) (*dto.AuthResponse, error)
	SignOutFunc        func(ctx context.Context, identity domain.Identity, backendToken string)
	CurrentSessionFunc func(ctx context.Context, identity *domain.Identity) (*dto.SessionResponse, error)
}

func (m *MockAuthService) SignIn(ctx context.Context, req *dto.SignInRequest) (*dto.AuthResponse, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, req)
	}
	return &dto.AuthResponse{Mode: domain.AuthModeBackend}, nil
}

func (m *MockAuthService) SignUp(ctx context.Context, req *dto.SignUpRequest) (*dto.AuthResponse, error) {
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, req)
	}
	return &dto.AuthResponse{Mode: domain.AuthModeBackend}, nil
}

func (m *MockAuthService) SignOut(ctx context.Context, identity domain.Identity, backendToken string) {
	if m.SignOutFunc != nil {
		m.SignOutFunc(ctx, identity, backendToken)
	}
}

func (m *MockAuthService) CurrentSession(ctx context.Context, identity *domain.Identity) (*dto.SessionResponse, error) {
	if m.CurrentSessionFunc != nil {
		return m.CurrentSessionFunc(ctx, identity)
	}
	return &dto.SessionResponse{}, nil
}

// MockProfileService is a mock implementation of ProfileService
type MockProfileService struct {
	FetchProfileFunc  func(ctx context.Context, identity domain.Identity) (*dto.ProfileResponse, error)
	UpdateProfileFunc func(ctx context.Context, identity domain.Identity, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
	UploadAvatarFunc  func(ctx context.Context, identity domain.Identity, file service.AvatarFile) (*dto.AvatarResponse, error)
}

func (m *MockProfileService) FetchProfile(ctx context.Context, identity domain.Identity) (*dto.ProfileResponse, error) {
	if m.FetchProfileFunc != nil {
		return m.FetchProfileFunc(ctx, identity)
	}
	return &dto.ProfileResponse{ID: identity.ID}, nil
}

func (m *MockProfileService) UpdateProfile(ctx context.Context, identity domain.Identity, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, identity, req)
	}
	return &dto.ProfileResponse{ID: identity.ID}, nil
}

func (m *MockProfileService) UploadAvatar(ctx context.Context, identity domain.Identity, file service.AvatarFile) (*dto.AvatarResponse, error) {
	if m.UploadAvatarFunc != nil {
		return m.UploadAvatarFunc(ctx, identity, file)
	}
	return &dto.AvatarResponse{}, nil
}

// MockFeedService is a mock implementation of FeedService
type MockFeedService struct {
	FetchRecommendationsFunc func(ctx context.Context, identity domain.Identity) ([]*dto.BoardResponse, error)
	FetchUserLikesFunc       func(ctx context.Context, identity domain.Identity) (*dto.LikesResponse, error)
	HandleLikeFunc           func(ctx context.Context, identity domain.Identity, boardID string) (*dto.LikeResponse, error)
	CheckForMatchFunc        func(ctx context.Context, userID uuid.UUID, board *domain.Board) (bool, error)
	SkipFunc                 func(req dto.SkipRequest) *dto.SkipResponse
}

func (m *MockFeedService) FetchRecommendations(ctx context.Context, identity domain.Identity) ([]*dto.BoardResponse, error) {
	if m.FetchRecommendationsFunc != nil {
		return m.FetchRecommendationsFunc(ctx, identity)
	}
	return []*dto.BoardResponse{}, nil
}

func (m *MockFeedService) FetchUserLikes(ctx context.Context, identity domain.Identity) (*dto.LikesResponse, error) {
	if m.FetchUserLikesFunc != nil {
		return m.FetchUserLikesFunc(ctx, identity)
	}
	return &dto.LikesResponse{BoardIDs: []string{}}, nil
}

func (m *MockFeedService) HandleLike(ctx context.Context, identity domain.Identity, boardID string) (*dto.LikeResponse, error) {
	if m.HandleLikeFunc != nil {
		return m.HandleLikeFunc(ctx, identity, boardID)
	}
	return &dto.LikeResponse{BoardID: boardID, Liked: true}, nil
}

func (m *MockFeedService) CheckForMatch(ctx context.Context, userID uuid.UUID, board *domain.Board) (bool, error) {
	if m.CheckForMatchFunc != nil {
		return m.CheckForMatchFunc(ctx, userID, board)
	}
	return false, nil
}

func (m *MockFeedService) Skip(req dto.SkipRequest) *dto.SkipResponse {
	if m.SkipFunc != nil {
		return m.SkipFunc(req)
	}
	return &dto.SkipResponse{}
}

// MockBoardService is a mock implementation of BoardService
type MockBoardService struct {
	ListBoardsFunc  func(ctx context.Context, identity domain.Identity, filter string) ([]*dto.BoardResponse, error)
	GetBoardFunc    func(ctx context.Context, identity domain.Identity, boardID string) (*dto.BoardResponse, error)
	CreateBoardFunc func(ctx context.Context, identity domain.Identity, req *dto.CreateBoardRequest) (*dto.BoardResponse, error)
	UpdateBoardFunc func(ctx context.Context, identity domain.Identity, boardID string, req *dto.UpdateBoardRequest) (*dto.BoardResponse, error)
}

func (m *MockBoardService) ListBoards(ctx context.Context, identity domain.Identity, filter string) ([]*dto.BoardResponse, error) {
	if m.ListBoardsFunc != nil {
		return m.ListBoardsFunc(ctx, identity, filter)
	}
	return []*dto.BoardResponse{}, nil
}

func (m *MockBoardService) GetBoard(ctx context.Context, identity domain.Identity, boardID string) (*dto.BoardResponse, error) {
	if m.GetBoardFunc != nil {
		return m.GetBoardFunc(ctx, identity, boardID)
	}
	return &dto.BoardResponse{ID: boardID}, nil
}

func (m *MockBoardService) CreateBoard(ctx context.Context, identity domain.Identity, req *dto.CreateBoardRequest) (*dto.BoardResponse, error) {
	if m.CreateBoardFunc != nil {
		return m.CreateBoardFunc(ctx, identity, req)
	}
	return &dto.BoardResponse{ID: uuid.NewString(), Title: req.Title}, nil
}

func (m *MockBoardService) UpdateBoard(ctx context.Context, identity domain.Identity, boardID string, req *dto.UpdateBoardRequest) (*dto.BoardResponse, error) {
	if m.UpdateBoardFunc != nil {
		return m.UpdateBoardFunc(ctx, identity, boardID, req)
	}
	return &dto.BoardResponse{ID: boardID}, nil
}

// MockParticipantService is a mock implementation of ParticipantService
type MockParticipantService struct {
	JoinBoardFunc           func(ctx context.Context, identity domain.Identity, boardID string) (*dto.JoinResponse, error)
	HandleApproveFunc       func(ctx context.Context, identity domain.Identity, notificationID uuid.UUID) (*dto.DecisionResponse, error)
	HandleRejectFunc        func(ctx context.Context, identity domain.Identity, notificationID uuid.UUID) (*dto.DecisionResponse, error)
	ListPendingRequestsFunc func(ctx context.Context, identity domain.Identity) ([]*dto.NotificationResponse, error)
}

func (m *MockParticipantService) JoinBoard(ctx context.Context, identity domain.Identity, boardID string) (*dto.JoinResponse, error) {
	if m.JoinBoardFunc != nil {
		return m.JoinBoardFunc(ctx, identity, boardID)
	}
	return &dto.JoinResponse{}, nil
}

func (m *MockParticipantService) HandleApprove(ctx context.Context, identity domain.Identity, notificationID uuid.UUID) (*dto.DecisionResponse, error) {
	if m.HandleApproveFunc != nil {
		return m.HandleApproveFunc(ctx, identity, notificationID)
	}
	return &dto.DecisionResponse{NotificationID: notificationID.String(), Status: domain.NotificationStatusApproved}, nil
}

func (m *MockParticipantService) HandleReject(ctx context.Context, identity domain.Identity, notificationID uuid.UUID) (*dto.DecisionResponse, error) {
	if m.HandleRejectFunc != nil {
		return m.HandleRejectFunc(ctx, identity, notificationID)
	}
	return &dto.DecisionResponse{NotificationID: notificationID.String(), Status: domain.NotificationStatusRejected}, nil
}

func (m *MockParticipantService) ListPendingRequests(ctx context.Context, identity domain.Identity) ([]*dto.NotificationResponse, error) {
	if m.ListPendingRequestsFunc != nil {
		return m.ListPendingRequestsFunc(ctx, identity)
	}
	return []*dto.NotificationResponse{}, nil
}

// MockNotificationService is a mock implementation of NotificationService
type MockNotificationService struct {
	NotifyFunc           func(ctx context.Context, n *domain.Notification)
	ListFunc             func(ctx context.Context, identity domain.Identity, unreadOnly bool) ([]*dto.NotificationResponse, error)
	UnreadCountFunc      func(ctx context.Context, identity domain.Identity) (*dto.UnreadCountResponse, error)
	MarkAsReadFunc       func(ctx context.Context, identity domain.Identity, id uuid.UUID) error
	MarkAllAsReadFunc    func(ctx context.Context, identity domain.Identity) (*dto.MarkAllReadResponse, error)
	InvalidateUnreadFunc func(ctx context.Context, userID uuid.UUID)
	CleanupOldFunc       func(ctx context.Context, days int) (int64, error)
	WithdrawRequestFunc  func(ctx context.Context, ownerID, boardID, likerID uuid.UUID)
}

func (m *MockNotificationService) Notify(ctx context.Context, n *domain.Notification) {
	if m.NotifyFunc != nil {
		m.NotifyFunc(ctx, n)
	}
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
	return &dto.MessageResponse{ID: uuid.NewString(), BoardID: boardID, UserID: identity.ID, Content: content}, nil
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
	return realtime.NewMemoryBroker(zap.NewNop()).Subscribe(ctx, realtime.ChatChannel(boardID.String()))
}

func (m *MockMessageService) PostWelcome(ctx context.Context, boardID, userID uuid.UUID) error {
	if m.PostWelcomeFunc != nil {
		return m.PostWelcomeFunc(ctx, boardID, userID)
	}
	return nil
}
