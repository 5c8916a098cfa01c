package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Storage      StorageConfig
	Ticket       TicketConfig
	Notification NotificationConfig
	Project      ProjectConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	BodyLimitBytes        int
}

// PostgresConfig holds DB connection values. An empty DSN selects the
// in-memory store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	AllowedEmailDomains   []string
}

// StorageConfig configures attachment storage.
type StorageConfig struct {
	Root             string
	MaxUploadBytes   int64
	DeniedExtensions []string
}

// TicketConfig selects ticket lifecycle behavior.
type TicketConfig struct {
	TransitionPolicy string
}

// NotificationConfig tunes the derived notification feed.
type NotificationConfig struct {
	NewTicketWindowDays int
	Limit               int
	CacheTTLSeconds     int
}

// ProjectConfig lists project names that cannot be deleted.
type ProjectConfig struct {
	ProtectedNames []string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "servicedesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			BodyLimitBytes:        getEnvAsInt("HTTP_BODY_LIMIT_BYTES", 26*1024*1024),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AllowedEmailDomains:   getEnvAsList("AUTH_ALLOWED_EMAIL_DOMAINS", nil),
		},
		Storage: StorageConfig{
			Root:             getEnv("STORAGE_ROOT", "./data/uploads"),
			MaxUploadBytes:   int64(getEnvAsInt("STORAGE_MAX_UPLOAD_BYTES", 25*1024*1024)),
			DeniedExtensions: getEnvAsList("STORAGE_DENIED_EXTENSIONS", []string{".exe", ".bat", ".cmd", ".ps1", ".sh", ".js"}),
		},
		Ticket: TicketConfig{
			TransitionPolicy: getEnv("TICKET_TRANSITION_POLICY", "permissive"),
		},
		Notification: NotificationConfig{
			NewTicketWindowDays: getEnvAsInt("NOTIFY_NEW_TICKET_WINDOW_DAYS", 30),
			Limit:               getEnvAsInt("NOTIFY_LIMIT", 50),
			CacheTTLSeconds:     getEnvAsInt("NOTIFY_CACHE_TTL_SECONDS", 30),
		},
		Project: ProjectConfig{
			ProtectedNames: getEnvAsList("PROJECT_PROTECTED_NAMES", []string{"None"}),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// NewTicketWindow is the lookback for new-ticket notifications.
func (n NotificationConfig) NewTicketWindow() time.Duration {
	return time.Duration(n.NewTicketWindowDays) * 24 * time.Hour
}

// CacheTTL returns zero when feed caching is disabled.
func (n NotificationConfig) CacheTTL() time.Duration {
	if n.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(n.CacheTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
