package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"github.com/tanaka-0224/Iverse2/internal/backend"
	"github.com/tanaka-0224/Iverse2/internal/client"
	"github.com/tanaka-0224/Iverse2/internal/config"
	"github.com/tanaka-0224/Iverse2/internal/database"
	"github.com/tanaka-0224/Iverse2/internal/job"
	"github.com/tanaka-0224/Iverse2/internal/localstore"
	"github.com/tanaka-0224/Iverse2/internal/metrics"
	"github.com/tanaka-0224/Iverse2/internal/realtime"
	"github.com/tanaka-0224/Iverse2/internal/repository"
	"github.com/tanaka-0224/Iverse2/internal/router"
	"github.com/tanaka-0224/Iverse2/internal/service"
	"github.com/tanaka-0224/Iverse2/internal/session"
)

const (
	dbConnectTimeout  = 30 * time.Second
	dbRetryInterval   = 5 * time.Second
	dbStatsInterval   = 15 * time.Second
	migrationAttempts = 3
	localDBFile       = "iverse.db"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logger.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("Starting Iverse API",
		zap.String("port", cfg.Server.Port),
		zap.String("mode", cfg.Server.Mode),
		zap.String("base_path", cfg.Server.BasePath),
		zap.Bool("backend_configured", cfg.Backend.Configured()),
		zap.Bool("force_demo", cfg.Backend.ForceDemo),
	)

	m := metrics.NewWithLogger(logger)

	local, err := localstore.New(cfg.Demo.DataDir, logger)
	if err != nil {
		logger.Fatal("Failed to open local demo storage", zap.String("dir", cfg.Demo.DataDir), zap.Error(err))
	}

	tables, db, err := initBackend(cfg, local, m, logger)
	if err != nil {
		logger.Fatal("Failed to initialize data backend", zap.Error(err))
	}
	if db != nil {
		stopStats := database.StartDBStatsCollector(db, m, dbStatsInterval)
		defer close(stopStats)
		defer database.Close(db)
	}

	var broker realtime.Broker = realtime.NewMemoryBroker(logger)
	realtimeRedis, err := database.NewRealtimeRedis(cfg.Redis, logger)
	if err != nil {
		logger.Warn("Realtime redis unavailable, chat fan-out stays in-process", zap.Error(err))
	} else if realtimeRedis != nil {
		defer realtimeRedis.Close()
		broker = realtime.NewRedisBroker(realtimeRedis, logger)
	}

	cacheRedis, err := database.NewCacheRedis(cfg.Redis, logger)
	if err != nil {
		logger.Warn("Cache redis unavailable, unread counts are not cached", zap.Error(err))
		cacheRedis = nil
	} else if cacheRedis != nil {
		defer cacheRedis.Close()
	}

	var authClient client.AuthClient
	if cfg.Backend.Configured() {
		authClient = client.NewGoTrueClient(cfg.Backend.URL, cfg.Backend.AnonKey, cfg.Backend.Timeout, m, logger)
		logger.Info("Hosted auth enabled", zap.String("url", cfg.Backend.URL))
	} else {
		logger.Warn("Hosted auth not configured, sign-in is served in demo mode")
	}

	var storage client.StorageClient
	if cfg.Storage.Bucket != "" && (cfg.Storage.Region != "" || cfg.Storage.Endpoint != "") {
		s3Client, err := client.NewS3Client(cfg.Storage, m, logger)
		if err != nil {
			logger.Warn("Failed to initialize object storage, avatars are stored inline", zap.Error(err))
		} else {
			storage = s3Client
			logger.Info("Object storage initialized",
				zap.String("bucket", cfg.Storage.Bucket),
				zap.String("region", cfg.Storage.Region),
				zap.String("endpoint", cfg.Storage.Endpoint),
			)
		}
	} else {
		logger.Warn("Object storage not configured, avatars are stored inline")
	}

	sessionStore := session.NewStore(local, logger)
	if err := sessionStore.Restore(); err != nil {
		logger.Warn("Failed to restore demo sessions", zap.Error(err))
	}
	tokens := session.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	scheduler := job.NewScheduler(logger)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(tables), cacheRedis, cfg.Notification.UnreadCacheTTL, m, logger)
	if err := scheduler.Register("notification_cleanup", cfg.Notification.CleanupSchedule,
		job.NewNotificationCleanupJob(notifications, cfg.Notification.CleanupDays, logger)); err != nil {
		logger.Warn("Notification cleanup disabled", zap.Error(err))
	}
	boardStats := job.NewBoardStatsJob(repository.NewBoardRepository(tables), m, logger)
	if err := scheduler.Register("board_stats", cfg.Notification.StatsSchedule, boardStats); err != nil {
		logger.Warn("Board stats disabled", zap.Error(err))
	}
	boardStats.Run()
	scheduler.Start()

	r := router.Setup(router.Config{
		App:        cfg,
		Logger:     logger,
		Metrics:    m,
		Backend:    tables,
		Local:      local,
		Broker:     broker,
		Tokens:     tokens,
		Session:    sessionStore,
		DB:         db,
		CacheRedis: cacheRedis,
		AuthClient: authClient,
		Storage:    storage,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Iverse API started", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	scheduler.Stop(ctx)
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}

// initBackend picks where table rows live: a direct database when a DSN is
// set, the hosted REST gateway when configured, otherwise a SQLite file next
// to the demo data. db is nil for the REST gateway.
func initBackend(cfg *config.Config, local *localstore.Store, m *metrics.Metrics, logger *zap.Logger) (backend.Client, *gorm.DB, error) {
	if cfg.Database.DSN == "" && cfg.Backend.Configured() {
		logger.Info("Using hosted REST gateway for table access", zap.String("url", cfg.Backend.URL))
		return backend.NewPostgRESTClient(cfg.Backend.URL, cfg.Backend.TableKey(), cfg.Backend.Timeout, m, logger), nil, nil
	}

	dbCfg := database.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	if dbCfg.DSN == "" {
		dbCfg.Driver = "sqlite"
		dbCfg.DSN = filepath.Join(local.Dir(), localDBFile)
		logger.Warn("No database configured, using local SQLite", zap.String("path", dbCfg.DSN))
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbConnectTimeout)
	defer cancel()
	db, err := database.Connect(ctx, dbCfg, dbRetryInterval, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Database connected", zap.String("driver", dbCfg.Driver))

	if err := database.SafeAutoMigrateWithRetry(db, logger, migrationAttempts); err != nil {
		return nil, nil, fmt.Errorf("database migration failed: %w", err)
	}
	if err := database.RegisterMetricsCallbacks(db, m); err != nil {
		logger.Warn("Failed to register database metrics callbacks", zap.Error(err))
	}
	return backend.NewGormClient(db), db, nil
}

// initLogger initializes the zap logger with the specified level
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      zapLevel == zapcore.DebugLevel,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapConfig.Build()
}
