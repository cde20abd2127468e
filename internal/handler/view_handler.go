package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tanaka-0224/Iverse2/internal/response"
	"github.com/tanaka-0224/Iverse2/internal/service"
)

type ViewHandler struct {
	navigation service.NavigationService
}

func NewViewHandler(navigation service.NavigationService) *ViewHandler {
	return &ViewHandler{navigation: navigation}
}

// GetView godoc
// @Summary      画面の解決
// @Description  未知のタグはおすすめ画面になります
// @Tags         views
// @Produce      json
// @Param        screen path string true "recommendations | post | board | createpost | chat | account"
// @Success      200 {object} response.SuccessResponse{data=dto.ViewResponse}
// @Router       /views/{screen} [get]
func (h *ViewHandler) GetView(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	response.SendSuccess(c, http.StatusOK, h.navigation.View(identity, c.Param("screen")))
}
