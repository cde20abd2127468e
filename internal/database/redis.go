package database

import (
	"context"
	"fmt"
	"time"

	redisv8 "github.com/go-redis/redis/v8"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tanaka-0224/Iverse2/internal/config"
)

const redisPingTimeout = 3 * time.Second

// NewRealtimeRedis connects the pub/sub client used for chat fan-out.
// It returns nil, nil when no Redis URL is configured.
func NewRealtimeRedis(cfg config.RedisConfig, log *zap.Logger) (*redisv8.Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redisv8.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	client := redisv8.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Info("Realtime redis connection established", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return client, nil
}

// NewCacheRedis connects the client used for notification publish and the
// unread-count cache. It returns nil, nil when no Redis URL is configured.
func NewCacheRedis(cfg config.RedisConfig, log *zap.Logger) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Info("Cache redis connection established", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return client, nil
}
