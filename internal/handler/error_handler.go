package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tanaka-0224/Iverse2/internal/backend"
	"github.com/tanaka-0224/Iverse2/internal/response"
)

// handleServiceError maps service layer errors to HTTP responses. Details
// are logged only; the client sees the user-facing message.
func handleServiceError(c *gin.Context, logger *zap.Logger, err error) {
	if errors.Is(err, backend.ErrNotFound) {
		response.SendError(c, http.StatusNotFound, response.ErrCodeNotFound, "Resource not found")
		return
	}

	var appErr *response.AppError
	if errors.As(err, &appErr) {
		status := mapErrorCodeToHTTPStatus(appErr.Code)
		if status >= http.StatusInternalServerError {
			logger.Error("Service error",
				zap.String("code", appErr.Code),
				zap.String("path", c.FullPath()),
				zap.String("details", appErr.Details),
			)
		} else if appErr.Details != "" {
			logger.Debug("Request rejected",
				zap.String("code", appErr.Code),
				zap.String("details", appErr.Details),
			)
		}
		response.SendError(c, status, appErr.Code, appErr.Message)
		return
	}

	logger.Error("Unhandled service error", zap.String("path", c.FullPath()), zap.Error(err))
	response.SendError(c, http.StatusInternalServerError, response.ErrCodeInternal, "Internal server error")
}

func mapErrorCodeToHTTPStatus(code string) int {
	switch code {
	case response.ErrCodeNotFound:
		return http.StatusNotFound
	case response.ErrCodeValidation:
		return http.StatusBadRequest
	case response.ErrCodeUnauthorized, response.ErrCodeAuthFailed:
		return http.StatusUnauthorized
	case response.ErrCodeForbidden, response.ErrCodeNotParticipant:
		return http.StatusForbidden
	case response.ErrCodeAlreadyExists, response.ErrCodeBoardFull, response.ErrCodeAlreadyHandled, response.ErrCodeDemoMode:
		return http.StatusConflict
	case response.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
