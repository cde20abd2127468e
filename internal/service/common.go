package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tanaka-0224/Iverse2/internal/backend"
	"github.com/tanaka-0224/Iverse2/internal/domain"
	"github.com/tanaka-0224/Iverse2/internal/dto"
	"github.com/tanaka-0224/Iverse2/internal/repository"
	"github.com/tanaka-0224/Iverse2/internal/response"
)

const demoUserName = "Demo User"

// timeNow is swapped in tests that need a fixed clock
var timeNow = func() time.Time { return time.Now().UTC() }

// backendUserID returns the caller's backend id. Demo identities get
// DEMO_MODE_UNSUPPORTED since they never reach the network backend.
func backendUserID(identity domain.Identity) (uuid.UUID, error) {
	if identity.IsDemo() {
		return uuid.Nil, response.NewAppError(response.ErrCodeDemoMode, "This feature is not available in demo mode", "")
	}
	id, ok := identity.UserID()
	if !ok {
		return uuid.Nil, response.NewAppError(response.ErrCodeUnauthorized, "Invalid session", "")
	}
	return id, nil
}

func parseID(raw, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, response.NewAppError(response.ErrCodeValidation, "Invalid "+what+" ID", err.Error())
	}
	return id, nil
}

func internalError(message string, err error) error {
	return response.NewAppError(response.ErrCodeInternal, message, err.Error())
}

// notFoundOr maps backend.ErrNotFound to NOT_FOUND and anything else to INTERNAL_ERROR
func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, backend.ErrNotFound) {
		return response.NewAppError(response.ErrCodeNotFound, notFound, "")
	}
	return internalError(internal, err)
}

func emailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return ""
}

// firstNonEmpty returns the first value that is not blank
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// userSummaries loads the owner/author cards for ids. A lookup failure only
// costs the names, so it is logged and an empty map is returned.
func userSummaries(ctx context.Context, users repository.UserRepository, ids []uuid.UUID, logger *zap.Logger) map[uuid.UUID]*dto.OwnerSummary {
	result := make(map[uuid.UUID]*dto.OwnerSummary, len(ids))
	if users == nil || len(ids) == 0 {
		return result
	}

	rows, err := users.FindByIDs(ctx, ids)
	if err != nil {
		logger.Warn("Failed to load user summaries", zap.Int("count", len(ids)), zap.Error(err))
		return result
	}
	for _, u := range rows {
		result[u.ID] = &dto.OwnerSummary{ID: u.ID.String(), Name: u.DisplayName(), Photo: u.Photo}
	}
	return result
}

// summaryFor returns the card for id or a placeholder with the default name
func summaryFor(summaries map[uuid.UUID]*dto.OwnerSummary, id uuid.UUID) *dto.OwnerSummary {
	if s, ok := summaries[id]; ok {
		return s
	}
	return &dto.OwnerSummary{ID: id.String(), Name: domain.DefaultUserName}
}
