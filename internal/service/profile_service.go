package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/tanaka-0224/Iverse2/internal/backend"
	"github.com/tanaka-0224/Iverse2/internal/client"
	"github.com/tanaka-0224/Iverse2/internal/domain"
	"github.com/tanaka-0224/Iverse2/internal/dto"
	"github.com/tanaka-0224/Iverse2/internal/repository"
	"github.com/tanaka-0224/Iverse2/internal/response"
)

// MaxAvatarSize is the largest accepted avatar upload in bytes
const MaxAvatarSize = 5 << 20

var avatarExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// AvatarFile is an uploaded image as received from the client
type AvatarFile struct {
	ContentType string
	Size        int64
	Body        io.Reader
}

// ProfileService defines the interface for profile business logic
type ProfileService interface {
	// FetchProfile returns the caller's profile, creating it on first access
	FetchProfile(ctx context.Context, identity domain.Identity) (*dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, identity domain.Identity, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
	UploadAvatar(ctx context.Context, identity domain.Identity, file AvatarFile) (*dto.AvatarResponse, error)
}

type profileServiceImpl struct {
	userRepo     repository.UserRepository
	demoProfiles repository.DemoProfileRepository
	storage      client.StorageClient
	logger       *zap.Logger
}

// NewProfileService creates a new instance of ProfileService. storage may be
// nil, in which case avatars are stored inline as data URLs.
func NewProfileService(
	userRepo repository.UserRepository,
	demoProfiles repository.DemoProfileRepository,
	storage client.StorageClient,
	logger *zap.Logger,
) ProfileService {
	return &profileServiceImpl{
		userRepo:     userRepo,
		demoProfiles: demoProfiles,
		storage:      storage,
		logger:       logger,
	}
}

func (s *profileServiceImpl) FetchProfile(ctx context.Context, identity domain.Identity) (*dto.ProfileResponse, error) {
	if identity.IsDemo() {
		profile, err := s.demoProfile(identity)
		if err != nil {
			return nil, err
		}
		return dto.ProfileFromDemo(profile), nil
	}

	user, err := s.backendProfile(ctx, identity)
	if err != nil {
		return nil, err
	}
	return dto.ProfileFromUser(user), nil
}

// demoProfile loads the local profile or creates the default one
func (s *profileServiceImpl) demoProfile(identity domain.Identity) (*domain.DemoProfile, error) {
	profile, found, err := s.demoProfiles.Get(identity.ID)
	if err != nil {
		return nil, internalError("Failed to load profile", err)
	}
	if found {
		return profile, nil
	}

	now := timeNow()
	profile = &domain.DemoProfile{
		ID:        identity.ID,
		Email:     firstNonEmpty(identity.Email, identity.ID+"@demo.local"),
		Name:      firstNonEmpty(identity.Name, demoUserName),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.demoProfiles.Save(profile); err != nil {
		return nil, internalError("Failed to save profile", err)
	}
	return profile, nil
}

func (s *profileServiceImpl) backendProfile(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	userID, err := backendUserID(identity)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, backend.ErrNotFound) {
		return nil, internalError("Failed to load profile", err)
	}
	if identity.Email == "" {
		return nil, response.NewAppError(response.ErrCodeNotFound, "Profile not found", "")
	}

	user = &domain.User{
		BaseModel: domain.BaseModel{ID: userID},
		Email:     identity.Email,
		Name:      firstNonEmpty(identity.Name, emailLocalPart(identity.Email), domain.DefaultUserName),
	}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return nil, internalError("Failed to create profile", err)
	}
	s.logger.Info("Created missing profile", zap.String("user_id", userID.String()))
	return user, nil
}

func (s *profileServiceImpl) UpdateProfile(ctx context.Context, identity domain.Identity, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	if identity.IsDemo() {
		return s.updateDemoProfile(identity, req)
	}
	if req.IsEmpty() {
		return s.FetchProfile(ctx, identity)
	}

	current, err := s.backendProfile(ctx, identity)
	if err != nil {
		return nil, err
	}

	values := map[string]interface{}{"updated_at": timeNow()}
	if req.Name != nil {
		values["name"] = firstNonEmpty(strings.TrimSpace(*req.Name), current.Name, emailLocalPart(current.Email), domain.DefaultUserName)
	}
	if req.Skill != nil {
		values["skill"] = *req.Skill
	}
	if req.Purpose != nil {
		values["purpose"] = *req.Purpose
	}
	if req.Photo != nil {
		values["photo"] = *req.Photo
	}

	if _, err := s.userRepo.Update(ctx, current.ID, values); err != nil {
		return nil, internalError("Failed to update profile", err)
	}

	updated, err := s.userRepo.FindByID(ctx, current.ID)
	if err != nil {
		return nil, internalError("Failed to load profile", err)
	}
	return dto.ProfileFromUser(updated), nil
}

func (s *profileServiceImpl) updateDemoProfile(identity domain.Identity, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	profile, err := s.demoProfile(identity)
	if err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		return dto.ProfileFromDemo(profile), nil
	}

	if req.Name != nil {
		profile.Name = firstNonEmpty(strings.TrimSpace(*req.Name), profile.Name, demoUserName)
	}
	if req.Skill != nil {
		profile.Skill = req.Skill
	}
	if req.Purpose != nil {
		profile.Purpose = req.Purpose
	}
	if req.Photo != nil {
		profile.Photo = req.Photo
	}
	profile.UpdatedAt = timeNow()

	if err := s.demoProfiles.Save(profile); err != nil {
		return nil, internalError("Failed to save profile", err)
	}
	return dto.ProfileFromDemo(profile), nil
}

func (s *profileServiceImpl) UploadAvatar(ctx context.Context, identity domain.Identity, file AvatarFile) (*dto.AvatarResponse, error) {
	declared := mediaType(file.ContentType)
	if _, ok := avatarExtensions[declared]; !ok {
		return nil, response.NewAppError(response.ErrCodeValidation, "JPEG、PNG、GIF、WebP形式の画像を選択してください", declared)
	}
	if file.Size > MaxAvatarSize {
		return nil, response.NewAppError(response.ErrCodeValidation, "画像サイズは5MB以下にしてください", "")
	}

	data, err := io.ReadAll(io.LimitReader(file.Body, MaxAvatarSize+1))
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeValidation, "Failed to read upload", err.Error())
	}
	if len(data) > MaxAvatarSize {
		return nil, response.NewAppError(response.ErrCodeValidation, "画像サイズは5MB以下にしてください", "")
	}
	if len(data) == 0 {
		return nil, response.NewAppError(response.ErrCodeValidation, "Empty upload", "")
	}

	// The stored type comes from the bytes; the client header is only a hint.
	contentType := mediaType(http.DetectContentType(data))
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return nil, response.NewAppError(response.ErrCodeValidation, "JPEG、PNG、GIF、WebP形式の画像を選択してください", contentType)
	}

	url, storage := "", dto.AvatarStorageInline
	if !identity.IsDemo() && s.storage != nil {
		key := fmt.Sprintf("avatars/%s-%d.%s", identity.ID, timeNow().UnixMilli(), ext)
		uploaded, err := s.storage.Upload(ctx, key, bytes.NewReader(data), contentType)
		if err != nil {
			s.logger.Warn("Avatar upload failed, storing inline",
				zap.String("user_id", identity.ID),
				zap.Error(err),
			)
		} else {
			url, storage = uploaded, dto.AvatarStorageObject
		}
	}
	if url == "" {
		url = dataURL(contentType, data)
	}

	profile, err := s.UpdateProfile(ctx, identity, &dto.UpdateProfileRequest{Photo: &url})
	if err != nil {
		return nil, err
	}
	return &dto.AvatarResponse{PhotoURL: url, Storage: storage, Profile: profile}, nil
}

func mediaType(header string) string {
	return strings.ToLower(strings.TrimSpace(strings.SplitN(header, ";", 2)[0]))
}

func dataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
