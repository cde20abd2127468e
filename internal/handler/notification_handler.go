package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tanaka-0224/Iverse2/internal/domain"
	"github.com/tanaka-0224/Iverse2/internal/dto"
	"github.com/tanaka-0224/Iverse2/internal/response"
	"github.com/tanaka-0224/Iverse2/internal/service"
)

type NotificationHandler struct {
	notificationService service.NotificationService
	participantService  service.ParticipantService
	logger              *zap.Logger
}

func NewNotificationHandler(notificationService service.NotificationService, participantService service.ParticipantService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		participantService:  participantService,
		logger:              logger,
	}
}

// GetNotifications godoc
// @Summary      通知一覧
// @Tags         notifications
// @Produce      json
// @Param        unread_only query bool false "未読のみ"
// @Success      200 {object} response.SuccessResponse{data=[]dto.NotificationResponse}
// @Router       /notifications [get]
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unread_only", "false"))
	list, err := h.notificationService.List(c.Request.Context(), identity, unreadOnly)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, list)
}

// GetPending godoc
// @Summary      承認待ちの参加希望
// @Tags         notifications
// @Produce      json
// @Success      200 {object} response.SuccessResponse{data=[]dto.NotificationResponse}
// @Router       /notifications/pending [get]
func (h *NotificationHandler) GetPending(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	list, err := h.participantService.ListPendingRequests(c.Request.Context(), identity)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, list)
}

// GetUnreadCount godoc
// @Summary      未読件数
// @Tags         notifications
// @Produce      json
// @Success      200 {object} response.SuccessResponse{data=dto.UnreadCountResponse}
// @Router       /notifications/unread-count [get]
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	count, err := h.notificationService.UnreadCount(c.Request.Context(), identity)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, count)
}

// Approve godoc
// @Summary      参加希望を承認
// @Tags         notifications
// @Produce      json
// @Param        id path string true "Notification ID"
// @Success      200 {object} response.SuccessResponse{data=dto.DecisionResponse}
// @Failure      409 {object} response.ErrorResponse "処理済み / 定員超過"
// @Router       /notifications/{id}/approve [post]
func (h *NotificationHandler) Approve(c *gin.Context) {
	h.decide(c, domain.NotificationStatusApproved)
}

// Reject godoc
// @Summary      参加希望を拒否
// @Tags         notifications
// @Produce      json
// @Param        id path string true "Notification ID"
// @Success      200 {object} response.SuccessResponse{data=dto.DecisionResponse}
// @Failure      409 {object} response.ErrorResponse "処理済み"
// @Router       /notifications/{id}/reject [post]
func (h *NotificationHandler) Reject(c *gin.Context) {
	h.decide(c, domain.NotificationStatusRejected)
}

func (h *NotificationHandler) decide(c *gin.Context, decision domain.NotificationStatus) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var (
		resp *dto.DecisionResponse
		err  error
	)
	if decision == domain.NotificationStatusApproved {
		resp, err = h.participantService.HandleApprove(c.Request.Context(), identity, id)
	} else {
		resp, err = h.participantService.HandleReject(c.Request.Context(), identity, id)
	}
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, resp)
}

// MarkAsRead godoc
// @Summary      既読にする
// @Tags         notifications
// @Param        id path string true "Notification ID"
// @Success      200 {object} response.SuccessResponse
// @Router       /notifications/{id}/read [post]
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkAsRead(c.Request.Context(), identity, id); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, gin.H{"id": id.String(), "is_read": true})
}

// MarkAllAsRead godoc
// @Summary      すべて既読にする
// @Tags         notifications
// @Success      200 {object} response.SuccessResponse{data=dto.MarkAllReadResponse}
// @Router       /notifications/read-all [post]
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	resp, err := h.notificationService.MarkAllAsRead(c.Request.Context(), identity)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, resp)
}
