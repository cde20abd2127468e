package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tanaka-0224/Iverse2/internal/backend"
	"github.com/tanaka-0224/Iverse2/internal/config"
	"github.com/tanaka-0224/Iverse2/internal/database"
	"github.com/tanaka-0224/Iverse2/internal/domain"
	"github.com/tanaka-0224/Iverse2/internal/localstore"
	"github.com/tanaka-0224/Iverse2/internal/metrics"
	"github.com/tanaka-0224/Iverse2/internal/realtime"
	"github.com/tanaka-0224/Iverse2/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	engine *gin.Engine
	tokens *session.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()

	app, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	app.Backend.ForceDemo = false

	db, err := database.New(database.Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	local, err := localstore.New(t.TempDir(), logger)
	require.NoError(t, err)

	store := session.NewStore(local, logger)
	require.NoError(t, store.Restore())

	reg := prometheus.NewRegistry()
	tokens := session.NewTokenManager("router-test-secret", time.Hour)

	engine := Setup(Config{
		App:      app,
		Logger:   logger,
		Metrics:  metrics.NewWithRegistry(reg, logger),
		Gatherer: reg,
		Backend:  backend.NewGormClient(db),
		Local:    local,
		Broker:   realtime.NewMemoryBroker(logger),
		Tokens:   tokens,
		Session:  store,
		DB:       db,
	})
	return &testServer{engine: engine, tokens: tokens}
}

// backendUser issues a session token for a fresh backend identity
func (s *testServer) backendUser(t *testing.T, name string) (string, string) {
	t.Helper()
	id := uuid.NewString()
	token, err := s.tokens.Issue(domain.Identity{
		ID:    id,
		Email: name + "@example.com",
		Name:  name,
		Mode:  domain.AuthModeBackend,
	}, "")
	require.NoError(t, err)
	return id, token.AccessToken
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.True(t, env.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health", "/ready", "/api/health", "/api/ready"} {
		w := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_")
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/profile"},
		{http.MethodGet, "/api/recommendations"},
		{http.MethodGet, "/api/boards"},
		{http.MethodPost, "/api/boards"},
		{http.MethodGet, "/api/notifications"},
		{http.MethodGet, "/api/chats"},
		{http.MethodGet, "/api/views/chat"},
		{http.MethodGet, "/api/ws/chat"},
		{http.MethodPost, "/api/auth/sign-out"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			w := s.do(t, p.method, p.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	w := s.do(t, http.MethodGet, "/api/boards", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_DemoSignInFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/auth/sign-in", "", map[string]string{"email": "demo.user@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "demo", w.Header().Get("X-Auth-Mode"))

	var auth struct {
		User    struct{ ID, Name string } `json:"user"`
		Session struct {
			AccessToken string `json:"access_token"`
		} `json:"session"`
		FallbackReason string `json:"fallback_reason"`
	}
	decodeData(t, w, &auth)
	require.NotEmpty(t, auth.Session.AccessToken)
	assert.Equal(t, "backend_unconfigured", auth.FallbackReason)
	assert.Equal(t, "demo.user", auth.User.Name)
	token := auth.Session.AccessToken

	w = s.do(t, http.MethodGet, "/api/auth/session", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "demo", w.Header().Get("X-Auth-Mode"))

	w = s.do(t, http.MethodPost, "/api/boards", token, map[string]interface{}{"title": "Demo board"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/boards?filter=my_posts", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var boards []struct{ ID, Title string }
	decodeData(t, w, &boards)
	require.Len(t, boards, 1)
	assert.Equal(t, "Demo board", boards[0].Title)

	w = s.do(t, http.MethodPost, "/api/recommendations/"+boards[0].ID+"/like", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/views/createpost", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/sign-out", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// a signed-out demo token is no longer accepted
	w = s.do(t, http.MethodGet, "/api/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_AnonymousSessionIsEmpty(t *testing.T) {
	s := newTestServer(t)

	signUp := func(email, name string) string {
		w := s.do(t, http.MethodPost, "/api/auth/sign-up", "", map[string]string{"email": email, "password": "secret123", "name": name})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var auth struct {
			Session struct {
				AccessToken string `json:"access_token"`
			} `json:"session"`
		}
		decodeData(t, w, &auth)
		require.NotEmpty(t, auth.Session.AccessToken)
		return auth.Session.AccessToken
	}
	aliceToken := signUp("alice@example.com", "alice")
	bobToken := signUp("bob@example.com", "bob")

	w := s.do(t, http.MethodGet, "/api/auth/session", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var anonymous struct {
		User    *struct{ ID string } `json:"user"`
		Session *struct {
			AccessToken string `json:"access_token"`
		} `json:"session"`
	}
	decodeData(t, w, &anonymous)
	assert.Nil(t, anonymous.User)
	assert.Nil(t, anonymous.Session)
	assert.Empty(t, w.Header().Get("X-Auth-Mode"))

	// bob signing out leaves alice signed in
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/auth/sign-out", bobToken, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/profile", bobToken, nil).Code)

	w = s.do(t, http.MethodGet, "/api/auth/session", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var current struct {
		User struct{ Name string } `json:"user"`
	}
	decodeData(t, w, &current)
	assert.Equal(t, "alice", current.User.Name)
}

func TestRouter_MatchApproveChatFlow(t *testing.T) {
	s := newTestServer(t)

	_, ownerToken := s.backendUser(t, "owner")
	_, memberToken := s.backendUser(t, "member")

	// first access creates both profiles
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/profile", ownerToken, nil).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/profile", memberToken, nil).Code)

	w := s.do(t, http.MethodPost, "/api/boards", ownerToken, map[string]interface{}{"title": "Go study", "limit_count": 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var board struct{ ID string }
	decodeData(t, w, &board)

	w = s.do(t, http.MethodGet, "/api/recommendations", memberToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var feed []struct{ ID string }
	decodeData(t, w, &feed)
	require.Len(t, feed, 1)
	assert.Equal(t, board.ID, feed[0].ID)

	w = s.do(t, http.MethodPost, "/api/recommendations/"+board.ID+"/like", memberToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var like struct {
		Liked   bool `json:"liked"`
		Matched bool `json:"matched"`
	}
	decodeData(t, w, &like)
	assert.True(t, like.Liked)
	assert.False(t, like.Matched)

	// not a participant yet
	w = s.do(t, http.MethodGet, "/api/chats/"+board.ID+"/messages", memberToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/notifications/unread-count", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var unread struct {
		Count int64 `json:"count"`
	}
	decodeData(t, w, &unread)
	assert.Equal(t, int64(1), unread.Count)

	w = s.do(t, http.MethodGet, "/api/notifications/pending", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pending []struct {
		ID      string `json:"id"`
		BoardID string `json:"board_id"`
	}
	decodeData(t, w, &pending)
	require.Len(t, pending, 1)
	assert.Equal(t, board.ID, pending[0].BoardID)

	// only the owner can decide
	w = s.do(t, http.MethodPost, "/api/notifications/"+pending[0].ID+"/approve", memberToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/notifications/"+pending[0].ID+"/approve", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/notifications/"+pending[0].ID+"/reject", ownerToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/chats", memberToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var chats []struct{ ID string }
	decodeData(t, w, &chats)
	require.Len(t, chats, 1)
	assert.Equal(t, board.ID, chats[0].ID)

	w = s.do(t, http.MethodPost, "/api/chats/"+board.ID+"/messages", memberToken, map[string]string{"content": "よろしくお願いします"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/chats/"+board.ID+"/messages", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var messages []struct {
		Content string `json:"content"`
	}
	decodeData(t, w, &messages)
	require.NotEmpty(t, messages)
	assert.Equal(t, "よろしくお願いします", messages[len(messages)-1].Content)
}

func TestRouter_CORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/boards", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
