package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tanaka-0224/Iverse2/internal/client"
	"github.com/tanaka-0224/Iverse2/internal/config"
	"github.com/tanaka-0224/Iverse2/internal/domain"
	"github.com/tanaka-0224/Iverse2/internal/dto"
	"github.com/tanaka-0224/Iverse2/internal/metrics"
	"github.com/tanaka-0224/Iverse2/internal/repository"
	"github.com/tanaka-0224/Iverse2/internal/response"
	"github.com/tanaka-0224/Iverse2/internal/session"
)

// AuthService defines the interface for sign-in, sign-up and the session lifecycle
type AuthService interface {
	SignIn(ctx context.Context, req *dto.SignInRequest) (*dto.AuthResponse, error)
	SignUp(ctx context.Context, req *dto.SignUpRequest) (*dto.AuthResponse, error)
	// SignOut clears the demo session and revokes backendToken when set. It never fails.
	SignOut(ctx context.Context, identity domain.Identity, backendToken string)
	// CurrentSession describes the caller. Without an identity it reports no
	// user and no session.
	CurrentSession(ctx context.Context, identity *domain.Identity) (*dto.SessionResponse, error)
}

type authServiceImpl struct {
	authClient client.AuthClient
	forcedOff  bool
	cfg        config.AuthConfig
	tokens     *session.TokenManager
	store      *session.Store
	userRepo   repository.UserRepository
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewAuthService creates a new instance of AuthService. authClient is nil when
// the hosted backend is unconfigured or forced off; every call is then served
// in demo mode.
func NewAuthService(
	authClient client.AuthClient,
	forcedOff bool,
	cfg config.AuthConfig,
	tokens *session.TokenManager,
	store *session.Store,
	userRepo repository.UserRepository,
	m *metrics.Metrics,
	logger *zap.Logger,
) AuthService {
	return &authServiceImpl{
		authClient: authClient,
		forcedOff:  forcedOff,
		cfg:        cfg,
		tokens:     tokens,
		store:      store,
		userRepo:   userRepo,
		metrics:    m,
		logger:     logger,
	}
}

func (s *authServiceImpl) unavailableReason() string {
	if s.forcedOff {
		return dto.FallbackBackendForcedOff
	}
	return dto.FallbackBackendUnconfigured
}

func (s *authServiceImpl) SignIn(ctx context.Context, req *dto.SignInRequest) (*dto.AuthResponse, error) {
	if s.authClient == nil {
		return s.demoSignIn(req.Email, "", s.unavailableReason())
	}

	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.authClient.SignIn(callCtx, req.Email, req.Password)
	if err != nil {
		if !s.cfg.DemoFallbackOnSignIn {
			return nil, s.authFailed("sign_in", err, "メールアドレスまたはパスワードが正しくありません")
		}
		s.logger.Warn("Sign-in failed, continuing in demo mode", zap.Error(err))
		return s.demoSignIn(req.Email, "", dto.FallbackBackendError)
	}
	return s.backendResponse(ctx, result, "")
}

func (s *authServiceImpl) SignUp(ctx context.Context, req *dto.SignUpRequest) (*dto.AuthResponse, error) {
	if s.authClient == nil {
		return s.demoSignIn(req.Email, req.Name, s.unavailableReason())
	}

	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.authClient.SignUp(callCtx, req.Email, req.Password, req.Name)
	if err != nil {
		if !s.cfg.DemoFallbackOnSignUp {
			return nil, s.authFailed("sign_up", err, "アカウントを作成できませんでした")
		}
		s.logger.Warn("Sign-up failed, continuing in demo mode", zap.Error(err))
		return s.demoSignIn(req.Email, req.Name, dto.FallbackBackendError)
	}
	return s.backendResponse(ctx, result, req.Name)
}

func (s *authServiceImpl) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.SessionTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.SessionTimeout)
}

func (s *authServiceImpl) authFailed(op string, err error, message string) error {
	s.logger.Info("Authentication failed", zap.String("op", op), zap.Error(err))

	var authErr *client.AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return response.NewAppError(response.ErrCodeAuthFailed, message, authErr.Message)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return response.NewAppError(response.ErrCodeAuthFailed, message, "auth request timed out")
	}
	return response.NewAppError(response.ErrCodeAuthFailed, message, "")
}

// backendResponse turns a hosted auth result into a session token and, when a
// session was issued, makes sure the users row exists.
func (s *authServiceImpl) backendResponse(ctx context.Context, result *client.AuthResult, requestedName string) (*dto.AuthResponse, error) {
	if result == nil || result.User == nil {
		return nil, response.NewAppError(response.ErrCodeAuthFailed, "認証に失敗しました", "empty auth response")
	}
	user := result.User
	name := firstNonEmpty(user.MetadataName(), requestedName, emailLocalPart(user.Email), domain.DefaultUserName)

	info := &dto.UserInfo{
		ID:           user.ID,
		Email:        user.Email,
		Name:         name,
		UserMetadata: map[string]string{"name": name},
	}
	resp := &dto.AuthResponse{User: info, Mode: domain.AuthModeBackend}
	if result.Session == nil {
		// email confirmation pending
		return resp, nil
	}

	s.ensureUserRow(ctx, user.ID, user.Email, name)

	identity := domain.Identity{ID: user.ID, Email: user.Email, Name: name, Mode: domain.AuthModeBackend}
	token, err := s.tokens.Issue(identity, result.Session.AccessToken)
	if err != nil {
		return nil, internalError("Failed to issue session", err)
	}
	resp.Session = sessionInfo(token)

	s.logger.Info("User signed in", zap.String("user_id", user.ID))
	return resp, nil
}

func (s *authServiceImpl) ensureUserRow(ctx context.Context, rawID, email, name string) {
	if s.userRepo == nil {
		return
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		s.logger.Warn("Auth user id is not a UUID", zap.String("user_id", rawID))
		return
	}
	row := &domain.User{BaseModel: domain.BaseModel{ID: id}, Email: email, Name: name}
	if err := s.userRepo.Upsert(ctx, row); err != nil {
		s.logger.Error("Failed to upsert user row", zap.String("user_id", rawID), zap.Error(err))
	}
}

// demoSignIn synthesizes a local pseudo-user and announces it through the session store
func (s *authServiceImpl) demoSignIn(email, displayName, reason string) (*dto.AuthResponse, error) {
	name := firstNonEmpty(displayName, emailLocalPart(email), demoUserName)
	user := &domain.DemoUser{
		ID:           domain.NewDemoID(),
		Email:        email,
		UserMetadata: map[string]string{"name": name},
		AppMetadata:  map[string]string{"provider": "demo"},
		CreatedAt:    timeNow(),
	}

	if err := s.store.SetDemoUser(user); err != nil {
		return nil, internalError("Failed to persist demo session", err)
	}

	token, err := s.tokens.Issue(demoIdentity(user), "")
	if err != nil {
		return nil, internalError("Failed to issue session", err)
	}

	s.metrics.RecordDemoFallback(reason)
	s.logger.Warn("Serving auth in demo mode",
		zap.String("reason", reason),
		zap.String("user_id", user.ID),
	)

	return &dto.AuthResponse{
		User:           dto.UserInfoFromDemo(user),
		Session:        sessionInfo(token),
		Mode:           domain.AuthModeDemo,
		FallbackReason: reason,
	}, nil
}

func (s *authServiceImpl) SignOut(ctx context.Context, identity domain.Identity, backendToken string) {
	if identity.IsDemo() {
		if err := s.store.Clear(identity.ID); err != nil {
			s.logger.Warn("Failed to clear demo session", zap.Error(err))
		}
	}

	if backendToken != "" && s.authClient != nil {
		callCtx, cancel := s.withTimeout(ctx)
		defer cancel()
		if err := s.authClient.SignOut(callCtx, backendToken); err != nil {
			s.logger.Warn("Backend sign-out failed", zap.String("user_id", identity.ID), zap.Error(err))
		}
	}

	s.logger.Info("User signed out", zap.String("user_id", identity.ID))
}

func (s *authServiceImpl) CurrentSession(_ context.Context, identity *domain.Identity) (*dto.SessionResponse, error) {
	resp := &dto.SessionResponse{Loading: s.store.Loading()}
	if identity == nil {
		return resp, nil
	}

	resp.User = &dto.UserInfo{ID: identity.ID, Email: identity.Email, Name: identity.Name}
	resp.Mode = identity.Mode
	if identity.IsDemo() {
		resp.Mode = domain.AuthModeDemo
		if current := s.store.Get(identity.ID); current != nil {
			resp.User = dto.UserInfoFromDemo(current)
		}
	}
	return resp, nil
}

func demoIdentity(user *domain.DemoUser) domain.Identity {
	return domain.Identity{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.UserMetadata["name"],
		Mode:  domain.AuthModeDemo,
	}
}

func sessionInfo(token *session.Token) *dto.SessionInfo {
	return &dto.SessionInfo{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresAt:   token.ExpiresAt.UTC().Truncate(time.Second),
	}
}
