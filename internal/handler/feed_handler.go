package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tanaka-0224/Iverse2/internal/dto"
	"github.com/tanaka-0224/Iverse2/internal/response"
	"github.com/tanaka-0224/Iverse2/internal/service"
)

type FeedHandler struct {
	feedService service.FeedService
	logger      *zap.Logger
}

func NewFeedHandler(feedService service.FeedService, logger *zap.Logger) *FeedHandler {
	return &FeedHandler{
		feedService: feedService,
		logger:      logger,
	}
}

// GetRecommendations godoc
// @Summary      おすすめの募集
// @Description  自分以外の募集を新しい順に返します
// @Tags         recommendations
// @Produce      json
// @Success      200 {object} response.SuccessResponse{data=[]dto.BoardResponse}
// @Router       /recommendations [get]
func (h *FeedHandler) GetRecommendations(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	boards, err := h.feedService.FetchRecommendations(c.Request.Context(), identity)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, boards)
}

// GetLikes godoc
// @Summary      いいねした募集のID一覧
// @Tags         recommendations
// @Produce      json
// @Success      200 {object} response.SuccessResponse{data=dto.LikesResponse}
// @Router       /recommendations/likes [get]
func (h *FeedHandler) GetLikes(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	likes, err := h.feedService.FetchUserLikes(c.Request.Context(), identity)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, likes)
}

// ToggleLike godoc
// @Summary      いいねの切り替え
// @Description  いいね済みなら取り消し、未いいねなら参加希望を送ります。マッチ時は navigate=chat を返します
// @Tags         recommendations
// @Produce      json
// @Param        boardId path string true "Board ID"
// @Success      200 {object} response.SuccessResponse{data=dto.LikeResponse}
// @Router       /recommendations/{boardId}/like [post]
func (h *FeedHandler) ToggleLike(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	resp, err := h.feedService.HandleLike(c.Request.Context(), identity, c.Param("boardId"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, resp)
}

// Skip godoc
// @Summary      次のカードへ
// @Tags         recommendations
// @Accept       json
// @Produce      json
// @Param        request body dto.SkipRequest true "現在位置と件数"
// @Success      200 {object} response.SuccessResponse{data=dto.SkipResponse}
// @Router       /recommendations/skip [post]
func (h *FeedHandler) Skip(c *gin.Context) {
	var req dto.SkipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}
	response.SendSuccess(c, http.StatusOK, h.feedService.Skip(req))
}
