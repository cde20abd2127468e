package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tanaka-0224/Iverse2/internal/dto"
	"github.com/tanaka-0224/Iverse2/internal/response"
	"github.com/tanaka-0224/Iverse2/internal/service"
)

type BoardHandler struct {
	boardService       service.BoardService
	participantService service.ParticipantService
	logger             *zap.Logger
}

func NewBoardHandler(boardService service.BoardService, participantService service.ParticipantService, logger *zap.Logger) *BoardHandler {
	return &BoardHandler{
		boardService:       boardService,
		participantService: participantService,
		logger:             logger,
	}
}

// ListBoards godoc
// @Summary      募集一覧
// @Tags         boards
// @Produce      json
// @Param        filter query string false "all | my_posts | liked_posts"
// @Success      200 {object} response.SuccessResponse{data=[]dto.BoardResponse}
// @Failure      400 {object} response.ErrorResponse
// @Router       /boards [get]
func (h *BoardHandler) ListBoards(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	boards, err := h.boardService.ListBoards(c.Request.Context(), identity, c.Query("filter"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, boards)
}

// CreateBoard godoc
// @Summary      募集を作成
// @Description  作成者は自動的に参加者になります
// @Tags         boards
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateBoardRequest true "募集内容"
// @Success      201 {object} response.SuccessResponse{data=dto.BoardResponse}
// @Failure      400 {object} response.ErrorResponse
// @Failure      504 {object} response.ErrorResponse
// @Router       /boards [post]
func (h *BoardHandler) CreateBoard(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req dto.CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "タイトルを入力してください")
		return
	}

	board, err := h.boardService.CreateBoard(c.Request.Context(), identity, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusCreated, board)
}

// GetBoard godoc
// @Summary      募集の詳細
// @Tags         boards
// @Produce      json
// @Param        boardId path string true "Board ID"
// @Success      200 {object} response.SuccessResponse{data=dto.BoardResponse}
// @Failure      404 {object} response.ErrorResponse
// @Router       /boards/{boardId} [get]
func (h *BoardHandler) GetBoard(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	board, err := h.boardService.GetBoard(c.Request.Context(), identity, c.Param("boardId"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, board)
}

// UpdateBoard godoc
// @Summary      募集を編集
// @Tags         boards
// @Accept       json
// @Produce      json
// @Param        boardId path string true "Board ID"
// @Param        request body dto.UpdateBoardRequest true "変更するフィールドのみ"
// @Success      200 {object} response.SuccessResponse{data=dto.BoardResponse}
// @Failure      403 {object} response.ErrorResponse
// @Router       /boards/{boardId} [patch]
func (h *BoardHandler) UpdateBoard(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req dto.UpdateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	board, err := h.boardService.UpdateBoard(c.Request.Context(), identity, c.Param("boardId"), &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, board)
}

// JoinBoard godoc
// @Summary      募集に参加
// @Tags         boards
// @Produce      json
// @Param        boardId path string true "Board ID"
// @Success      200 {object} response.SuccessResponse{data=dto.JoinResponse}
// @Failure      409 {object} response.ErrorResponse "定員に達しています"
// @Router       /boards/{boardId}/join [post]
func (h *BoardHandler) JoinBoard(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	resp, err := h.participantService.JoinBoard(c.Request.Context(), identity, c.Param("boardId"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, resp)
}
