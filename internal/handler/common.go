package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tanaka-0224/Iverse2/internal/domain"
	"github.com/tanaka-0224/Iverse2/internal/middleware"
	"github.com/tanaka-0224/Iverse2/internal/response"
)

// HeaderAuthMode tells the client whether the session is served by the
// hosted backend or in demo mode.
const HeaderAuthMode = "X-Auth-Mode"

// requireIdentity returns the caller or writes 401
func requireIdentity(c *gin.Context) (domain.Identity, bool) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "ログインが必要です")
		return domain.Identity{}, false
	}
	return identity, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func setAuthMode(c *gin.Context, mode domain.AuthMode) {
	if mode != "" {
		c.Header(HeaderAuthMode, string(mode))
	}
}
