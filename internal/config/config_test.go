package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.lumastream.tv", cfg.API.BaseURL)
	assert.Equal(t, 100, cfg.Session.HistoryMax)
	assert.True(t, cfg.Session.RejoinOnDisconnect)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, 60*time.Second, cfg.WebSocket.PongWait)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://localhost:8080")
	t.Setenv("CHAT_ROOM", "myroom")
	t.Setenv("CHAT_HISTORY_MAX", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	assert.Equal(t, "myroom", cfg.Session.Room)
	assert.Equal(t, 25, cfg.Session.HistoryMax)
}
