// Package transport provides the socket layer: connect, send, close, with
// connected/error/message/closed callbacks. Callbacks fire from transport
// goroutines; the session serializes them onto its event loop.
package transport

import "time"

// Callbacks are the socket lifecycle hooks. OnError fires when the
// connection could not be established; OnClosed when an established
// connection ends. No callbacks fire after a local Close.
type Callbacks struct {
	OnConnected func()
	OnError     func(err error)
	OnMessage   func(data []byte)
	OnClosed    func(code int, reason string, clean bool)
}

// Socket is a single-use connection: Connect once, then Send until it
// closes. Close is idempotent and suppresses further callbacks.
type Socket interface {
	Connect()
	Send(data []byte) error
	Close()
}

// Dialer creates sockets for chat endpoints.
type Dialer interface {
	Dial(endpoint string, cb Callbacks) Socket
}

// Config mirrors the server's websocket keepalive contract.
type Config struct {
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	WriteWait        time.Duration `mapstructure:"write_wait"`
	PongWait         time.Duration `mapstructure:"pong_wait"`
	PingInterval     time.Duration `mapstructure:"ping_interval"`
	MaxMessageSize   int64         `mapstructure:"max_message_size"`
}

// DefaultConfig returns the keepalive settings used when none are
// configured. PingInterval must be shorter than PongWait.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		WriteWait:        10 * time.Second,
		PongWait:         60 * time.Second,
		PingInterval:     30 * time.Second,
		MaxMessageSize:   64 * 1024,
	}
}
