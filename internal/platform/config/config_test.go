package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("EVENT_SOURCE", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "main", cfg.ShowID)
	assert.Equal(t, "liveshop:events", cfg.EventChannel)
	assert.Equal(t, 500*time.Millisecond, cfg.ReconnectInitialBackoff)
	assert.Equal(t, 30*time.Second, cfg.ReconnectMaxBackoff)
	assert.Equal(t, ChatProfileVertical, cfg.ChatProfile)
	assert.Equal(t, 50, cfg.MaxActiveReactions)
	assert.Equal(t, time.Minute, cfg.LookupCacheTTL)
	assert.Equal(t, 10*time.Minute, cfg.RedisCacheTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.PublishInterval)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_WebSocketSource(t *testing.T) {
	t.Setenv("EVENT_SOURCE", "websocket")
	t.Setenv("EVENT_WS_URL", "wss://events.example.com/live")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EventSourceWebSocket, cfg.EventSource)
	assert.Equal(t, time.Minute, cfg.EventWSPongWait)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"redis source without url", map[string]string{"REDIS_URL": ""}, "REDIS_URL is required"},
		{"websocket source without url", map[string]string{"EVENT_SOURCE": "websocket"}, "EVENT_WS_URL is required"},
		{"websocket source with http url", map[string]string{"EVENT_SOURCE": "websocket", "EVENT_WS_URL": "http://x"}, "must use ws:// or wss://"},
		{"unknown source", map[string]string{"EVENT_SOURCE": "kafka"}, "EVENT_SOURCE must be"},
		{"unknown chat profile", map[string]string{"CHAT_PROFILE": "square"}, "CHAT_PROFILE must be"},
		{"inverted chat interval", map[string]string{"CHAT_MIN_INTERVAL": "5s", "CHAT_MAX_INTERVAL": "2s"}, "must not exceed"},
		{"inverted backoff", map[string]string{"RECONNECT_INITIAL_BACKOFF": "10s", "RECONNECT_MAX_BACKOFF": "1s"}, "RECONNECT_MAX_BACKOFF"},
		{"zero reaction cap", map[string]string{"MAX_ACTIVE_REACTIONS": "0"}, "MAX_ACTIVE_REACTIONS"},
		{"production insecure db", map[string]string{"APP_ENV": "production", "DATABASE_URL": "postgres://u:p@h/db?sslmode=DISABLE"}, "sslmode=disable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ProductionAllowsSecureDB(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://u:p@h:5432/db?sslmode=verify-full")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}
