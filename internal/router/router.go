package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tanaka-0224/Iverse2/internal/backend"
	"github.com/tanaka-0224/Iverse2/internal/client"
	"github.com/tanaka-0224/Iverse2/internal/config"
	"github.com/tanaka-0224/Iverse2/internal/handler"
	"github.com/tanaka-0224/Iverse2/internal/localstore"
	"github.com/tanaka-0224/Iverse2/internal/metrics"
	"github.com/tanaka-0224/Iverse2/internal/middleware"
	"github.com/tanaka-0224/Iverse2/internal/realtime"
	"github.com/tanaka-0224/Iverse2/internal/repository"
	"github.com/tanaka-0224/Iverse2/internal/service"
	"github.com/tanaka-0224/Iverse2/internal/session"
)

// Config holds router configuration
type Config struct {
	App     *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Gatherer serves /metrics; nil means the default registry
	Gatherer prometheus.Gatherer

	Backend backend.Client
	Local   *localstore.Store
	Broker  realtime.Broker
	Tokens  *session.TokenManager
	Session *session.Store

	// optional collaborators, nil when not configured
	DB         *gorm.DB
	CacheRedis *redis.Client
	AuthClient client.AuthClient
	Storage    client.StorageClient
}

// Setup sets up the router with all routes
func Setup(cfg Config) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.CORS(cfg.App.Server.CORSOrigins))
	r.Use(middleware.Metrics(cfg.Metrics))

	healthHandler := handler.NewHealthHandler(cfg.DB, cfg.CacheRedis)
	metricsHandler := gin.WrapH(promhttp.Handler())
	if cfg.Gatherer != nil {
		metricsHandler = gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", metricsHandler)

	// Initialize repositories
	userRepo := repository.NewUserRepository(cfg.Backend)
	boardRepo := repository.NewBoardRepository(cfg.Backend)
	likeRepo := repository.NewLikeRepository(cfg.Backend)
	participantRepo := repository.NewParticipantRepository(cfg.Backend)
	messageRepo := repository.NewMessageRepository(cfg.Backend)
	notificationRepo := repository.NewNotificationRepository(cfg.Backend)
	demoBoards := repository.NewDemoBoardRepository(cfg.Local)
	demoProfiles := repository.NewDemoProfileRepository(cfg.Local)

	// Initialize services
	app := cfg.App
	notificationService := service.NewNotificationService(notificationRepo, cfg.CacheRedis, app.Notification.UnreadCacheTTL, cfg.Metrics, cfg.Logger)
	messageService := service.NewMessageService(boardRepo, participantRepo, messageRepo, userRepo, cfg.Broker, app.Board.WelcomeTemplate, cfg.Metrics, cfg.Logger)
	feedService := service.NewFeedService(boardRepo, likeRepo, participantRepo, userRepo, demoBoards, notificationService, cfg.Metrics, cfg.Logger)
	boardService := service.NewBoardService(boardRepo, likeRepo, participantRepo, userRepo, demoBoards, app.Board.CreateTimeout, app.Board.DefaultLimit, cfg.Metrics, cfg.Logger)
	participantService := service.NewParticipantService(boardRepo, participantRepo, likeRepo, notificationRepo, userRepo, messageService, notificationService, cfg.Metrics, cfg.Logger)
	profileService := service.NewProfileService(userRepo, demoProfiles, cfg.Storage, cfg.Logger)
	authService := service.NewAuthService(cfg.AuthClient, app.Backend.ForceDemo, app.Auth, cfg.Tokens, cfg.Session, userRepo, cfg.Metrics, cfg.Logger)
	navigationService := service.NewNavigationService()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, cfg.Logger)
	profileHandler := handler.NewProfileHandler(profileService, cfg.Logger)
	feedHandler := handler.NewFeedHandler(feedService, cfg.Logger)
	boardHandler := handler.NewBoardHandler(boardService, participantService, cfg.Logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, participantService, cfg.Logger)
	chatHandler := handler.NewChatHandler(messageService, cfg.Logger)
	viewHandler := handler.NewViewHandler(navigationService)
	wsHandler := handler.NewWSHandler(messageService, cfg.Metrics, cfg.Logger)

	api := r.Group(app.Server.BasePath)
	api.GET("/health", healthHandler.Health)
	api.GET("/ready", healthHandler.Ready)

	guard := session.NewGuard(cfg.Tokens, cfg.Session)
	authMiddleware := middleware.Auth(guard)

	auth := api.Group("/auth")
	{
		auth.POST("/sign-in", authHandler.SignIn)
		auth.POST("/sign-up", authHandler.SignUp)
		auth.GET("/session", middleware.OptionalAuth(guard), authHandler.Session)
		auth.POST("/sign-out", authMiddleware, authHandler.SignOut)
	}

	api.GET("/ws/chat", middleware.QueryAuth(guard), wsHandler.HandleChat)

	authenticated := api.Group("")
	authenticated.Use(authMiddleware)
	{
		authenticated.GET("/profile", profileHandler.GetProfile)
		authenticated.PATCH("/profile", profileHandler.UpdateProfile)
		authenticated.POST("/profile/avatar", profileHandler.UploadAvatar)

		authenticated.GET("/recommendations", feedHandler.GetRecommendations)
		authenticated.GET("/recommendations/likes", feedHandler.GetLikes)
		authenticated.POST("/recommendations/skip", feedHandler.Skip)
		authenticated.POST("/recommendations/:boardId/like", feedHandler.ToggleLike)

		authenticated.GET("/boards", boardHandler.ListBoards)
		authenticated.POST("/boards", boardHandler.CreateBoard)
		authenticated.GET("/boards/:boardId", boardHandler.GetBoard)
		authenticated.PATCH("/boards/:boardId", boardHandler.UpdateBoard)
		authenticated.POST("/boards/:boardId/join", boardHandler.JoinBoard)

		authenticated.GET("/notifications", notificationHandler.GetNotifications)
		authenticated.GET("/notifications/pending", notificationHandler.GetPending)
		authenticated.GET("/notifications/unread-count", notificationHandler.GetUnreadCount)
		authenticated.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)
		authenticated.POST("/notifications/:id/approve", notificationHandler.Approve)
		authenticated.POST("/notifications/:id/reject", notificationHandler.Reject)
		authenticated.POST("/notifications/:id/read", notificationHandler.MarkAsRead)

		authenticated.GET("/chats", chatHandler.ListChats)
		authenticated.GET("/chats/:boardId/messages", chatHandler.GetMessages)
		authenticated.POST("/chats/:boardId/messages", chatHandler.SendMessage)

		authenticated.GET("/views/:screen", viewHandler.GetView)
	}

	return r
}
