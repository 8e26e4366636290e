package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the bot.
type Config struct {
	App     AppConfig
	Gateway GatewayConfig
	Ticket  TicketConfig
	Storage StorageConfig
	Logger  LoggerConfig
}

// AppConfig controls the webhook listener.
type AppConfig struct {
	Name    string
	Env     string
	Host    string
	Port    string
	Version string
}

// GatewayConfig holds chat-platform gateway connection values.
type GatewayConfig struct {
	BaseURL       string
	BotToken      string
	BotUserID     string
	GuildID       string
	WebhookSecret string
}

// TicketConfig holds the guild resources the ticket workflow operates on.
type TicketConfig struct {
	PanelChannelID      string
	LogChannelID        string
	StaffRoleID         string
	ParentChannelID     string
	MemberPromptSeconds int
}

// StorageBackend selects the snapshot store implementation.
type StorageBackend string

const (
	StorageBackendFile     StorageBackend = "file"
	StorageBackendRedis    StorageBackend = "redis"
	StorageBackendPostgres StorageBackend = "postgres"
)

// StorageConfig holds snapshot persistence values.
type StorageConfig struct {
	Backend  StorageBackend
	DataFile string
	Redis    RedisConfig
	Postgres PostgresConfig
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// LoggerConfig configures logging behavior. Env mirrors APP_ENV and
// selects the encoder.
type LoggerConfig struct {
	Level string
	Env   string
}

// Load reads configuration from environment variables, applying defaults
// where possible. A missing bot token is the only fatal condition.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "support-ticket-bot"),
			Env:     getEnv("APP_ENV", "development"),
			Host:    getEnv("APP_HOST", "0.0.0.0"),
			Port:    getEnv("APP_PORT", "8080"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Gateway: GatewayConfig{
			BaseURL:       getEnv("GATEWAY_BASE_URL", "http://127.0.0.1:8081/api"),
			BotToken:      os.Getenv("GATEWAY_BOT_TOKEN"),
			BotUserID:     os.Getenv("GATEWAY_BOT_USER_ID"),
			GuildID:       os.Getenv("GATEWAY_GUILD_ID"),
			WebhookSecret: getEnv("GATEWAY_WEBHOOK_SECRET", "dev-secret"),
		},
		Ticket: TicketConfig{
			PanelChannelID:      os.Getenv("TICKET_PANEL_CHANNEL_ID"),
			LogChannelID:        os.Getenv("TICKET_LOG_CHANNEL_ID"),
			StaffRoleID:         os.Getenv("TICKET_STAFF_ROLE_ID"),
			ParentChannelID:     os.Getenv("TICKET_PARENT_CHANNEL_ID"),
			MemberPromptSeconds: getEnvAsInt("TICKET_MEMBER_PROMPT_TIMEOUT_SECONDS", 30),
		},
		Storage: StorageConfig{
			Backend:  StorageBackend(getEnv("STORAGE_BACKEND", string(StorageBackendFile))),
			DataFile: getEnv("STORAGE_DATA_FILE", "data.json"),
			Redis: RedisConfig{
				Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
				Password: os.Getenv("REDIS_PASSWORD"),
				DB:       redisDB,
				Key:      getEnv("REDIS_SNAPSHOT_KEY", "ticketbot:snapshot"),
			},
			Postgres: PostgresConfig{
				DSN:            os.Getenv("POSTGRES_DSN"),
				MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
				MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
				ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
				ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			},
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			Env:   getEnv("APP_ENV", "development"),
		},
	}

	if cfg.Gateway.BotToken == "" {
		return nil, errors.New("GATEWAY_BOT_TOKEN is required")
	}
	switch cfg.Storage.Backend {
	case StorageBackendFile, StorageBackendRedis, StorageBackendPostgres:
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND: %s", cfg.Storage.Backend)
	}

	return cfg, nil
}

// Addr returns the webhook bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// MemberPromptTimeout returns the bounded wait for membership prompts.
func (t TicketConfig) MemberPromptTimeout() time.Duration {
	if t.MemberPromptSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(t.MemberPromptSeconds) * time.Second
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
