package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lumastream/chat-client/pkg/log"
)

var (
	ErrNotConnected = errors.New("socket not connected")
	ErrSendBuffer   = errors.New("socket send buffer full")
)

// WebsocketDialer creates gorilla/websocket backed sockets.
type WebsocketDialer struct {
	cfg    Config
	logger zerolog.Logger
}

func NewWebsocketDialer(cfg Config, logger zerolog.Logger) *WebsocketDialer {
	return &WebsocketDialer{cfg: cfg, logger: logger}
}

func (d *WebsocketDialer) Dial(endpoint string, cb Callbacks) Socket {
	return &wsSocket{
		endpoint: endpoint,
		cfg:      d.cfg,
		cb:       cb,
		logger:   d.logger.With().Str(log.FieldEndpoint, endpoint).Logger(),
		outbound: make(chan []byte, 64),
		done:     make(chan struct{}),
	}
}

type wsSocket struct {
	endpoint string
	cfg      Config
	cb       Callbacks
	logger   zerolog.Logger
	outbound chan []byte
	done     chan struct{}

	mu        sync.Mutex
	conn      *websocket.Conn
	closed    bool
	closeOnce sync.Once
}

func (s *wsSocket) Connect() {
	go s.run()
}

func (s *wsSocket) run() {
	dialer := websocket.Dialer{HandshakeTimeout: s.cfg.HandshakeTimeout}
	conn, _, err := dialer.Dial(s.endpoint, nil)
	if err != nil {
		if !s.isClosed() && s.cb.OnError != nil {
			s.cb.OnError(err)
		}
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	s.mu.Unlock()

	go s.writePump(conn)

	if s.cb.OnConnected != nil {
		s.cb.OnConnected()
	}

	s.readPump(conn)
}

func (s *wsSocket) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(s.cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			s.reportClosed(err)
			return
		}
		if s.isClosed() {
			return
		}
		if s.cb.OnMessage != nil {
			s.cb.OnMessage(message)
		}
	}
}

func (s *wsSocket) writePump(conn *websocket.Conn) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case message := <-s.outbound:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			return
		}
	}
}

func (s *wsSocket) Send(data []byte) error {
	s.mu.Lock()
	connected := s.conn != nil && !s.closed
	s.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}

	select {
	case s.outbound <- data:
		return nil
	default:
		return ErrSendBuffer
	}
}

// Close tears the socket down and suppresses all further callbacks.
func (s *wsSocket) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		conn := s.conn
		s.mu.Unlock()

		close(s.done)
		if conn != nil {
			conn.Close()
		}
	})
}

func (s *wsSocket) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *wsSocket) reportClosed(err error) {
	if s.isClosed() || s.cb.OnClosed == nil {
		return
	}

	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		s.cb.OnClosed(ce.Code, ce.Text, ce.Code == websocket.CloseNormalClosure)
		return
	}
	s.cb.OnClosed(websocket.CloseAbnormalClosure, err.Error(), false)
}
