// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingConfig is wrapped with the variable name when a required value is unset.
var ErrMissingConfig = errors.New("missing required configuration")

const (
	DefaultHost                = "0.0.0.0"
	DefaultPort                = "8000"
	DefaultNotificationTimeout = 10 * time.Second
	DefaultSessionTTL          = 30 * time.Minute
)

type Config struct {
	DatabaseURL         string
	NotificationURL     string
	TelegramBotToken    string
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	Host                string
	Port                string
	NotificationTimeout time.Duration
	SessionTTL          time.Duration
	LogLevel            slog.Level
}

// Addr is the listen address of the HTTP server.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

// LoadEnvFiles loads .env style files into the environment without
// overriding variables that are already set. A missing file is only logged.
func LoadEnvFiles(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		slog.Warn("config: no .env file loaded", "error", err)
	}
}

// Load reads the full service configuration.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		NotificationURL:  os.Getenv("NOTIFICATION_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		Host:             getString("HOST", DefaultHost),
		Port:             getString("PORT", DefaultPort),
	}

	for _, req := range []struct{ name, value string }{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"NOTIFICATION_URL", cfg.NotificationURL},
		{"TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken},
	} {
		if req.value == "" {
			return Config{}, fmt.Errorf("%w: %s", ErrMissingConfig, req.name)
		}
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.NotificationTimeout, err = getDuration("NOTIFICATION_TIMEOUT", DefaultNotificationTimeout); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", DefaultSessionTTL); err != nil {
		return Config{}, err
	}
	if cfg.LogLevel, err = getLevel("LOG_LEVEL"); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadStore reads only what is needed to open the complaint store.
func LoadStore() (string, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return "", fmt.Errorf("%w: DATABASE_URL", ErrMissingConfig)
	}
	return dsn, nil
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, v)
	}
	return d, nil
}

func getLevel(key string) (slog.Level, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return level, nil
}
