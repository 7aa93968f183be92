package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	EventSourceWebSocket = "websocket"
	EventSourceRedis     = "redis"

	ChatProfileVertical   = "vertical"
	ChatProfileFullscreen = "fullscreen"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	AppURL    string `env:"APP_URL" default:"http://localhost:8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
	ShowID    string `env:"SHOW_ID" default:"main"`

	EventSource  string `env:"EVENT_SOURCE" default:"redis"`
	EventWSURL   string `env:"EVENT_WS_URL"`
	EventChannel string `env:"EVENT_CHANNEL" default:"liveshop:events"`
	RedisURL     string `env:"REDIS_URL"`
	DatabaseURL  string `env:"DATABASE_URL"`

	ReconnectInitialBackoff time.Duration `env:"RECONNECT_INITIAL_BACKOFF" default:"500ms"`
	ReconnectMaxBackoff     time.Duration `env:"RECONNECT_MAX_BACKOFF" default:"30s"`
	EventWSPongWait         time.Duration `env:"EVENT_WS_PONG_WAIT" default:"60s"`

	ChatProfile     string        `env:"CHAT_PROFILE" default:"vertical"`
	ChatMinInterval time.Duration `env:"CHAT_MIN_INTERVAL"`
	ChatMaxInterval time.Duration `env:"CHAT_MAX_INTERVAL"`
	ViewerFloor     int           `env:"VIEWER_FLOOR"`

	MaxActiveReactions int `env:"MAX_ACTIVE_REACTIONS" default:"50"`

	LookupTimeout  time.Duration `env:"LOOKUP_TIMEOUT" default:"3s"`
	LookupCacheTTL time.Duration `env:"LOOKUP_CACHE_TTL" default:"1m"`
	RedisCacheTTL  time.Duration `env:"REDIS_CACHE_TTL" default:"10m"`

	PublishInterval time.Duration `env:"PUBLISH_INTERVAL" default:"250ms"`

	InputRatePerSecond float64 `env:"INPUT_RATE_PER_SECOND" default:"5"`
	InputBurst         int     `env:"INPUT_BURST" default:"10"`
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.EventSource {
	case EventSourceRedis:
		if cfg.RedisURL == "" {
			return errors.New("REDIS_URL is required when EVENT_SOURCE=redis")
		}
	case EventSourceWebSocket:
		if cfg.EventWSURL == "" {
			return errors.New("EVENT_WS_URL is required when EVENT_SOURCE=websocket")
		}
		if err := validateWSURL(cfg.EventWSURL); err != nil {
			return err
		}
	default:
		return fmt.Errorf("EVENT_SOURCE must be %q or %q, got %q", EventSourceRedis, EventSourceWebSocket, cfg.EventSource)
	}

	if cfg.ChatProfile != ChatProfileVertical && cfg.ChatProfile != ChatProfileFullscreen {
		return fmt.Errorf("CHAT_PROFILE must be %q or %q, got %q", ChatProfileVertical, ChatProfileFullscreen, cfg.ChatProfile)
	}

	if cfg.ChatMinInterval < 0 || cfg.ChatMaxInterval < 0 {
		return errors.New("CHAT_MIN_INTERVAL and CHAT_MAX_INTERVAL must not be negative")
	}
	if cfg.ChatMinInterval > 0 && cfg.ChatMaxInterval > 0 && cfg.ChatMinInterval > cfg.ChatMaxInterval {
		return errors.New("CHAT_MIN_INTERVAL must not exceed CHAT_MAX_INTERVAL")
	}

	if cfg.ReconnectInitialBackoff <= 0 || cfg.ReconnectMaxBackoff < cfg.ReconnectInitialBackoff {
		return errors.New("RECONNECT_MAX_BACKOFF must be >= RECONNECT_INITIAL_BACKOFF > 0")
	}

	if cfg.MaxActiveReactions < 1 {
		return errors.New("MAX_ACTIVE_REACTIONS must be at least 1")
	}

	if cfg.PublishInterval <= 0 {
		return errors.New("PUBLISH_INTERVAL must be positive")
	}

	if cfg.IsProduction() && cfg.DatabaseURL != "" {
		if mode := sslMode(cfg.DatabaseURL); mode == "disable" || mode == "allow" {
			return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
		}
	}

	return nil
}

func validateWSURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("EVENT_WS_URL is not a valid URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("EVENT_WS_URL must use ws:// or wss://, got %q", u.Scheme)
	}
	return nil
}

func sslMode(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Query().Get("sslmode"))
}
