package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Logger       LoggerConfig       `yaml:"logger"`
	Database     DatabaseConfig     `yaml:"database"`
	Backend      BackendConfig      `yaml:"backend"`
	Auth         AuthConfig         `yaml:"auth"`
	Redis        RedisConfig        `yaml:"redis"`
	Storage      StorageConfig      `yaml:"storage"`
	Board        BoardConfig        `yaml:"board"`
	Notification NotificationConfig `yaml:"notification"`
	Demo         DemoConfig         `yaml:"demo"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Mode            string        `yaml:"mode"`
	BasePath        string        `yaml:"base_path"`
	CORSOrigins     string        `yaml:"cors_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig configures direct database access. Driver is "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// BackendConfig points at the hosted backend (REST gateway, auth, storage).
type BackendConfig struct {
	URL        string        `yaml:"url"`
	AnonKey    string        `yaml:"anon_key"`
	ServiceKey string        `yaml:"service_key"`
	ForceDemo  bool          `yaml:"force_demo"`
	Timeout    time.Duration `yaml:"timeout"`
}

type AuthConfig struct {
	JWTSecret            string        `yaml:"jwt_secret"`
	TokenTTL             time.Duration `yaml:"token_ttl"`
	SessionTimeout       time.Duration `yaml:"session_timeout"`
	DemoFallbackOnSignIn bool          `yaml:"demo_fallback_on_sign_in"`
	DemoFallbackOnSignUp bool          `yaml:"demo_fallback_on_sign_up"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type StorageConfig struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PublicURL string `yaml:"public_url"`
}

type BoardConfig struct {
	CreateTimeout   time.Duration `yaml:"create_timeout"`
	DefaultLimit    int           `yaml:"default_limit"`
	WelcomeTemplate string        `yaml:"welcome_template"`
}

type NotificationConfig struct {
	UnreadCacheTTL  time.Duration `yaml:"unread_cache_ttl"`
	CleanupDays     int           `yaml:"cleanup_days"`
	CleanupSchedule string        `yaml:"cleanup_schedule"`
	StatsSchedule   string        `yaml:"stats_schedule"`
}

type DemoConfig struct {
	DataDir string `yaml:"data_dir"`
}

// Configured reports whether the hosted backend can be used at all.
func (b BackendConfig) Configured() bool {
	return !b.ForceDemo && b.URL != "" && b.AnonKey != ""
}

// TableKey returns the key used for table access: the service key when set.
func (b BackendConfig) TableKey() string {
	if b.ServiceKey != "" {
		return b.ServiceKey
	}
	return b.AnonKey
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Mode:            "debug",
			BasePath:        "/api",
			CORSOrigins:     "*",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logger: LoggerConfig{Level: "info"},
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		},
		Backend: BackendConfig{Timeout: 30 * time.Second},
		Auth: AuthConfig{
			JWTSecret:            "change-me",
			TokenTTL:             24 * time.Hour,
			SessionTimeout:       5 * time.Second,
			DemoFallbackOnSignIn: false,
			DemoFallbackOnSignUp: true,
		},
		Storage: StorageConfig{Bucket: "avatars"},
		Board: BoardConfig{
			CreateTimeout:   10 * time.Second,
			DefaultLimit:    10,
			WelcomeTemplate: "[USERNAME]さんが参加しました！よろしくお願いします。",
		},
		Notification: NotificationConfig{
			UnreadCacheTTL:  5 * time.Minute,
			CleanupDays:     30,
			CleanupSchedule: "0 3 * * *",
			StatsSchedule:   "*/5 * * * *",
		},
		Demo: DemoConfig{DataDir: "./data"},
	}
}

// Load reads the yaml file at path (if present) over the defaults and applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		cfg.Server.Mode = mode
	}
	if basePath := os.Getenv("SERVER_BASE_PATH"); basePath != "" {
		cfg.Server.BasePath = basePath
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = origins
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.Logger.Level = logLevel
	}
	if driver := os.Getenv("DATABASE_DRIVER"); driver != "" {
		cfg.Database.Driver = driver
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if url := os.Getenv("SUPABASE_URL"); url != "" {
		cfg.Backend.URL = url
	}
	if key := os.Getenv("SUPABASE_ANON_KEY"); key != "" {
		cfg.Backend.AnonKey = key
	}
	if key := os.Getenv("SUPABASE_SERVICE_KEY"); key != "" {
		cfg.Backend.ServiceKey = key
	}
	if force := os.Getenv("FORCE_DEMO_MODE"); force != "" {
		cfg.Backend.ForceDemo = parseBool(force)
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if v := os.Getenv("DEMO_FALLBACK_ON_SIGN_IN"); v != "" {
		cfg.Auth.DemoFallbackOnSignIn = parseBool(v)
	}
	if v := os.Getenv("DEMO_FALLBACK_ON_SIGN_UP"); v != "" {
		cfg.Auth.DemoFallbackOnSignUp = parseBool(v)
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		cfg.Redis.Password = redisPassword
	}
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		cfg.Storage.Bucket = bucket
	}
	if region := os.Getenv("S3_REGION"); region != "" {
		cfg.Storage.Region = region
	}
	if endpoint := os.Getenv("S3_ENDPOINT"); endpoint != "" {
		cfg.Storage.Endpoint = endpoint
	}
	if accessKey := os.Getenv("S3_ACCESS_KEY"); accessKey != "" {
		cfg.Storage.AccessKey = accessKey
	}
	if secretKey := os.Getenv("S3_SECRET_KEY"); secretKey != "" {
		cfg.Storage.SecretKey = secretKey
	}
	if publicURL := os.Getenv("S3_PUBLIC_URL"); publicURL != "" {
		cfg.Storage.PublicURL = publicURL
	}
	if timeout := os.Getenv("BOARD_CREATE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.Board.CreateTimeout = d
		}
	}
	if days := os.Getenv("NOTIFICATION_CLEANUP_DAYS"); days != "" {
		if n, err := strconv.Atoi(days); err == nil {
			cfg.Notification.CleanupDays = n
		}
	}
	if dir := os.Getenv("DEMO_DATA_DIR"); dir != "" {
		cfg.Demo.DataDir = dir
	}
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Board.DefaultLimit < 1 {
		return fmt.Errorf("board.default_limit must be at least 1")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	return nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
