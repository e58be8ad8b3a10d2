package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
)

// EnvPrefix is prepended to every variable name, e.g. BHAVCOPY_LISTEN_ADDR.
// The unprefixed name is accepted as a fallback.
const EnvPrefix = "BHAVCOPY"

// Marker backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Empty means the built-in table.
	HolidayFile string `envconfig:"HOLIDAY_FILE"`

	// Where the last-downloaded marker lives
	MarkerBackend string `envconfig:"MARKER_BACKEND" default:"memory"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"data/bhavcopy.db"`

	// Base32 TOTP secret guarding admin endpoints; empty disables them.
	AdminTOTPSecret string `envconfig:"ADMIN_TOTP_SECRET"`

	// Notifications
	WebhookURL       string `envconfig:"WEBHOOK_URL"`
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `envconfig:"TELEGRAM_CHAT_ID"`

	// Five-field cron expression, evaluated in IST
	PublishSchedule string `envconfig:"PUBLISH_SCHEDULE" default:"30 17 * * 1-5"`
}

// Load reads a .env file if present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.MarkerBackend = strings.ToLower(strings.TrimSpace(cfg.MarkerBackend))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that envconfig cannot.
func (c *Config) Validate() error {
	switch c.MarkerBackend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("config: MARKER_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("config: unknown MARKER_BACKEND %q", c.MarkerBackend)
	}
	if c.MarkerBackend == BackendSQLite && c.SQLitePath == "" {
		return fmt.Errorf("config: MARKER_BACKEND=sqlite requires SQLITE_PATH")
	}
	if _, err := cron.ParseStandard(c.PublishSchedule); err != nil {
		return fmt.Errorf("config: PUBLISH_SCHEDULE: %w", err)
	}
	if (c.TelegramBotToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("config: TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	return nil
}

// Usage prints the recognised variables.
func Usage() error {
	return envconfig.Usage(EnvPrefix, &Config{})
}
