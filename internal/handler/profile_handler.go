package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tanaka-0224/Iverse2/internal/dto"
	"github.com/tanaka-0224/Iverse2/internal/response"
	"github.com/tanaka-0224/Iverse2/internal/service"
)

// multipart overhead allowed on top of the avatar itself
const avatarFormOverhead = 1 << 20

type ProfileHandler struct {
	profileService service.ProfileService
	logger         *zap.Logger
}

func NewProfileHandler(profileService service.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		logger:         logger,
	}
}

// GetProfile godoc
// @Summary      自分のプロフィール
// @Description  初回アクセス時はプロフィールを作成します
// @Tags         profile
// @Produce      json
// @Success      200 {object} response.SuccessResponse{data=dto.ProfileResponse}
// @Router       /profile [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	profile, err := h.profileService.FetchProfile(c.Request.Context(), identity)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, profile)
}

// UpdateProfile godoc
// @Summary      プロフィール更新
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        request body dto.UpdateProfileRequest true "変更するフィールドのみ"
// @Success      200 {object} response.SuccessResponse{data=dto.ProfileResponse}
// @Router       /profile [patch]
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	profile, err := h.profileService.UpdateProfile(c.Request.Context(), identity, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, profile)
}

// UploadAvatar godoc
// @Summary      アバター画像アップロード
// @Tags         profile
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "JPEG/PNG/GIF/WebP, 5MB以下"
// @Success      200 {object} response.SuccessResponse{data=dto.AvatarResponse}
// @Router       /profile/avatar [post]
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, service.MaxAvatarSize+avatarFormOverhead)
	header, err := c.FormFile("file")
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "画像ファイルを選択してください")
		return
	}

	file, err := header.Open()
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "画像ファイルを読み込めませんでした")
		return
	}
	defer file.Close()

	resp, err := h.profileService.UploadAvatar(c.Request.Context(), identity, service.AvatarFile{
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, resp)
}
