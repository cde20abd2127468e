package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/tanaka-0224/Iverse2/internal/backend"
	"github.com/tanaka-0224/Iverse2/internal/database"
	"github.com/tanaka-0224/Iverse2/internal/domain"
	"github.com/tanaka-0224/Iverse2/internal/dto"
	"github.com/tanaka-0224/Iverse2/internal/localstore"
	"github.com/tanaka-0224/Iverse2/internal/metrics"
	"github.com/tanaka-0224/Iverse2/internal/realtime"
	"github.com/tanaka-0224/Iverse2/internal/repository"
)

const testWelcomeTemplate = "[USERNAME]さんが参加しました！よろしくお願いします。"

// harness wires the services over an in-memory SQLite backend
type harness struct {
	users         repository.UserRepository
	boards        repository.BoardRepository
	likes         repository.LikeRepository
	participants  repository.ParticipantRepository
	messages      repository.MessageRepository
	notifications repository.NotificationRepository
	demoBoards    repository.DemoBoardRepository
	demoProfiles  repository.DemoProfileRepository
	local         *localstore.Store
	broker        *realtime.MemoryBroker
	metrics       *metrics.Metrics

	notificationSvc NotificationService
	messageSvc      MessageService
	feedSvc         FeedService
	boardSvc        BoardService
	participantSvc  ParticipantService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := database.New(database.Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	client := backend.NewGormClient(db)

	local, err := localstore.New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	logger := zap.NewNop()
	h := &harness{
		users:         repository.NewUserRepository(client),
		boards:        repository.NewBoardRepository(client),
		likes:         repository.NewLikeRepository(client),
		participants:  repository.NewParticipantRepository(client),
		messages:      repository.NewMessageRepository(client),
		notifications: repository.NewNotificationRepository(client),
		demoBoards:    repository.NewDemoBoardRepository(local),
		demoProfiles:  repository.NewDemoProfileRepository(local),
		local:         local,
		broker:        realtime.NewMemoryBroker(logger),
		metrics:       metrics.NewWithRegistry(prometheus.NewRegistry(), logger),
	}

	h.notificationSvc = NewNotificationService(h.notifications, nil, time.Minute, h.metrics, logger)
	h.messageSvc = NewMessageService(h.boards, h.participants, h.messages, h.users, h.broker, testWelcomeTemplate, h.metrics, logger)
	h.feedSvc = NewFeedService(h.boards, h.likes, h.participants, h.users, h.demoBoards, h.notificationSvc, h.metrics, logger)
	h.boardSvc = NewBoardService(h.boards, h.likes, h.participants, h.users, h.demoBoards, time.Second, 10, h.metrics, logger)
	h.participantSvc = NewParticipantService(h.boards, h.participants, h.likes, h.notifications, h.users, h.messageSvc, h.notificationSvc, h.metrics, logger)
	return h
}

// user inserts a users row and returns its identity
func (h *harness) user(t *testing.T, name string) domain.Identity {
	t.Helper()
	u := &domain.User{Email: name + "@example.com", Name: name}
	u.ID = uuid.New()
	require.NoError(t, h.users.Upsert(context.Background(), u))
	return domain.Identity{ID: u.ID.String(), Email: u.Email, Name: name, Mode: domain.AuthModeBackend}
}

// board creates a board through the board service so the owner joins it
func (h *harness) board(t *testing.T, owner domain.Identity, title string, limit int) uuid.UUID {
	t.Helper()
	resp, err := h.boardSvc.CreateBoard(context.Background(), owner, &dto.CreateBoardRequest{Title: title, LimitCount: &limit})
	require.NoError(t, err)
	return uuid.MustParse(resp.ID)
}

// pendingRequest returns the newest pending like request addressed to owner
func (h *harness) pendingRequest(t *testing.T, owner domain.Identity) *domain.Notification {
	t.Helper()
	id, _ := owner.UserID()
	rows, err := h.notifications.FindPending(context.Background(), id)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	return rows[0]
}

func mustUserID(t *testing.T, identity domain.Identity) uuid.UUID {
	t.Helper()
	id, ok := identity.UserID()
	require.True(t, ok)
	return id
}

func demoIdentityFor(name string) domain.Identity {
	return domain.Identity{ID: domain.NewDemoID(), Email: name + "@example.com", Name: name, Mode: domain.AuthModeDemo}
}

func emptyMetadata() datatypes.JSON {
	return datatypes.JSON(`{}`)
}
