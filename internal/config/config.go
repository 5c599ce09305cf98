package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/lumastream/chat-client/internal/transport"
	pkgconfig "github.com/lumastream/chat-client/pkg/config"
)

type Config struct {
	API       APIConfig
	Session   SessionConfig
	WebSocket transport.Config
	Log       LogConfig
}

type APIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type SessionConfig struct {
	Room               string
	Token              string
	HistoryMax         int  `mapstructure:"history_max"`
	RejoinOnDisconnect bool `mapstructure:"rejoin_on_disconnect"`
}

type LogConfig struct {
	Level  string
	Pretty bool
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("api.base_url", "https://api.lumastream.tv")
	v.SetDefault("api.request_timeout", "10s")
	v.SetDefault("session.room", "")
	v.SetDefault("session.token", "")
	v.SetDefault("session.history_max", 100)
	v.SetDefault("session.rejoin_on_disconnect", true)
	v.SetDefault("websocket.handshake_timeout", "10s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.max_message_size", 65536)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Override from environment
	v.BindEnv("api.base_url", "API_BASE_URL")
	v.BindEnv("session.room", "CHAT_ROOM")
	v.BindEnv("session.token", "CHAT_TOKEN")
	v.BindEnv("session.history_max", "CHAT_HISTORY_MAX")
	v.BindEnv("session.rejoin_on_disconnect", "CHAT_REJOIN")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.API.RequestTimeout = parseDuration(v, "api.request_timeout", 10*time.Second)
	cfg.WebSocket.HandshakeTimeout = parseDuration(v, "websocket.handshake_timeout", 10*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
