package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tanaka-0224/Iverse2/internal/dto"
	"github.com/tanaka-0224/Iverse2/internal/response"
	"github.com/tanaka-0224/Iverse2/internal/service"
)

type ChatHandler struct {
	messageService service.MessageService
	logger         *zap.Logger
}

func NewChatHandler(messageService service.MessageService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		messageService: messageService,
		logger:         logger,
	}
}

// ListChats godoc
// @Summary      参加中のトーク一覧
// @Tags         chats
// @Produce      json
// @Success      200 {object} response.SuccessResponse{data=[]dto.ChatBoardResponse}
// @Router       /chats [get]
func (h *ChatHandler) ListChats(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	chats, err := h.messageService.ListChatBoards(c.Request.Context(), identity)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, chats)
}

// GetMessages godoc
// @Summary      メッセージ履歴
// @Description  古い順に返します。参加者以外は403です
// @Tags         chats
// @Produce      json
// @Param        boardId path string true "Board ID"
// @Success      200 {object} response.SuccessResponse{data=[]dto.MessageResponse}
// @Failure      403 {object} response.ErrorResponse
// @Router       /chats/{boardId}/messages [get]
func (h *ChatHandler) GetMessages(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	messages, err := h.messageService.FetchMessages(c.Request.Context(), identity, c.Param("boardId"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, messages)
}

// SendMessage godoc
// @Summary      メッセージ送信
// @Tags         chats
// @Accept       json
// @Produce      json
// @Param        boardId path string true "Board ID"
// @Param        request body dto.SendMessageRequest true "本文"
// @Success      201 {object} response.SuccessResponse{data=dto.MessageResponse}
// @Failure      403 {object} response.ErrorResponse
// @Router       /chats/{boardId}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "メッセージを入力してください")
		return
	}

	message, err := h.messageService.SendMessage(c.Request.Context(), identity, c.Param("boardId"), req.Content)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusCreated, message)
}
