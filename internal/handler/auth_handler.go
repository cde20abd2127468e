package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tanaka-0224/Iverse2/internal/domain"
	"github.com/tanaka-0224/Iverse2/internal/dto"
	"github.com/tanaka-0224/Iverse2/internal/middleware"
	"github.com/tanaka-0224/Iverse2/internal/response"
	"github.com/tanaka-0224/Iverse2/internal/service"
)

type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// SignIn godoc
// @Summary      メールアドレスでサインイン
// @Description  ホスト型認証でサインインします。バックエンド未設定時はデモモードで応答します
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body dto.SignInRequest true "サインイン要求"
// @Success      200 {object} response.SuccessResponse{data=dto.AuthResponse}
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Router       /auth/sign-in [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req dto.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "メールアドレスとパスワードを入力してください")
		return
	}

	resp, err := h.authService.SignIn(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	setAuthMode(c, resp.Mode)
	response.SendSuccess(c, http.StatusOK, resp)
}

// SignUp godoc
// @Summary      アカウント登録
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body dto.SignUpRequest true "登録要求"
// @Success      201 {object} response.SuccessResponse{data=dto.AuthResponse}
// @Failure      400 {object} response.ErrorResponse
// @Router       /auth/sign-up [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req dto.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "入力内容を確認してください")
		return
	}

	resp, err := h.authService.SignUp(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	setAuthMode(c, resp.Mode)
	response.SendSuccess(c, http.StatusCreated, resp)
}

// SignOut godoc
// @Summary      サインアウト
// @Tags         auth
// @Produce      json
// @Success      200 {object} response.SuccessResponse
// @Router       /auth/sign-out [post]
func (h *AuthHandler) SignOut(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	h.authService.SignOut(c.Request.Context(), identity, middleware.GetBackendToken(c))
	response.SendSuccess(c, http.StatusOK, nil)
}

// Session godoc
// @Summary      現在のセッション
// @Description  トークンがなければユーザーもセッションも返しません
// @Tags         auth
// @Produce      json
// @Success      200 {object} response.SuccessResponse{data=dto.SessionResponse}
// @Router       /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	var identity *domain.Identity
	if current, ok := middleware.GetIdentity(c); ok {
		identity = &current
	}

	resp, err := h.authService.CurrentSession(c.Request.Context(), identity)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	setAuthMode(c, resp.Mode)
	response.SendSuccess(c, http.StatusOK, resp)
}
