// Package session owns a single chat-room connection: the discovery
// handshake, socket lifecycle, authentication, reconnect policy, and the
// outward notifications to the owning application.
//
// All connection state is owned by one event-loop goroutine. Socket and
// HTTP completions are posted onto the loop as closures and run to
// completion one at a time, so the history cache, roster and pending-reply
// table need no internal locking. Frames are handled strictly in the
// order the transport delivers them.
package session

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/lumastream/chat-client/internal/auth"
	"github.com/lumastream/chat-client/internal/discovery"
	"github.com/lumastream/chat-client/internal/domain"
	"github.com/lumastream/chat-client/internal/history"
	"github.com/lumastream/chat-client/internal/roster"
	"github.com/lumastream/chat-client/internal/router"
	"github.com/lumastream/chat-client/internal/transport"
	"github.com/lumastream/chat-client/pkg/log"
)

// The server caps history requests regardless of the configured cache
// size.
const historyRequestMax = 100

// State is the connection lifecycle position.
type State int

const (
	StateIdle State = iota
	StateDiscoveringChannel
	StateDiscoveringEndpoints
	StateConnecting
	StateAuthenticating
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscoveringChannel:
		return "discovering_channel"
	case StateDiscoveringEndpoints:
		return "discovering_endpoints"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Discoverer resolves a room's backing channel and socket endpoints.
// *discovery.Client is the production implementation.
type Discoverer interface {
	ChannelForRoom(ctx context.Context, roomID string) (int64, error)
	ChatConnectionInfo(ctx context.Context, channelID int64, bearer string) (*discovery.ConnectionInfo, error)
}

// Notifications are the outward callbacks. They run on the session event
// loop; the owner may call Close from inside any of them (including
// destroying the session right after), so reporting code paths return
// immediately once a notification has fired.
type Notifications struct {
	// ConnectAttemptFinished reports the outcome of a connection attempt:
	// success after the auth reply, or failure at whatever stage broke.
	ConnectAttemptFinished func(success bool, reason string)
	MemberJoined           func(user *domain.User)
	MemberLeft             func(user *domain.User)
	MessageReceived        func(msg *domain.Message)
	PrivateMessageReceived func(msg *domain.Message)
	// RoomExited reports a remote close of a previously ready session
	// when automatic rejoin is disabled.
	RoomExited func(clean bool, reason string)
}

// Options configure a session.
type Options struct {
	// HistoryMax bounds the in-memory history cache. Zero disables
	// retention (and the post-auth history request).
	HistoryMax int
	// RejoinOnDisconnect re-runs endpoint selection and reopens the
	// socket after an unexpected remote close.
	RejoinOnDisconnect bool
	// Credential is the local user's identity; nil means an anonymous
	// session with sending disabled.
	Credential *auth.Credential
	// PickEndpoint chooses among n endpoints. Defaults to the global
	// math/rand source; injected for deterministic tests.
	PickEndpoint func(n int) int
	Logger       zerolog.Logger
}

// Session is a single chat-room connection.
type Session struct {
	opts   Options
	disc   Discoverer
	dialer transport.Dialer
	notif  Notifications
	logger zerolog.Logger

	tasks    chan func()
	quit     chan struct{}
	quitOnce sync.Once
	opened   atomic.Bool
	ready    atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc

	// historyMu covers the cache for RecentMessages snapshots taken off
	// the loop; all mutations happen on the loop.
	historyMu sync.Mutex
	history   *history.Cache

	// Loop-owned state below; never touched off the event loop.
	state          State
	roomID         string
	channelID      int64
	endpoints      []string
	authKey        string
	sock           transport.Socket
	router         *router.Router
	roster         *roster.Roster
	retry          *backoff.ExponentialBackOff
	reconnectTimer *time.Timer
}

// New creates a session for one room connection. Open starts it.
func New(disc Discoverer, dialer transport.Dialer, opts Options, notif Notifications) *Session {
	if opts.PickEndpoint == nil {
		opts.PickEndpoint = rand.Intn
	}

	ctx, cancel := context.WithCancel(context.Background())
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 500 * time.Millisecond
	retry.MaxInterval = 10 * time.Second
	retry.MaxElapsedTime = 0

	s := &Session{
		opts:    opts,
		disc:    disc,
		dialer:  dialer,
		notif:   notif,
		logger:  opts.Logger,
		tasks:   make(chan func(), 64),
		quit:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		history: history.New(opts.HistoryMax),
		roster:  roster.New(),
		retry:   retry,
	}
	s.router = router.New(s.transmit, s.eventTable(), opts.Logger)
	return s
}

// Open starts the connection attempt for the given room. The outcome is
// reported through Notifications.ConnectAttemptFinished.
func (s *Session) Open(roomID string) error {
	if !s.opened.CompareAndSwap(false, true) {
		return ErrAlreadyOpen
	}
	s.roomID = roomID
	s.logger = s.logger.With().Str(log.FieldRoomID, roomID).Logger()

	go s.run()
	s.post(s.discoverChannel)
	return nil
}

// Close tears the session down without notifications. Idempotent, and
// safe to call from inside a notification.
func (s *Session) Close() {
	s.quitOnce.Do(func() {
		s.cancel()
		s.post(func() {
			if s.reconnectTimer != nil {
				s.reconnectTimer.Stop()
			}
			s.teardownSocket()
			s.state = StateClosed
		})
		close(s.quit)
	})
}

// Ready reports whether the session has authenticated and may interact
// with the room.
func (s *Session) Ready() bool {
	return s.ready.Load()
}

// SendChatMessage sends text to the room. It returns false, with no
// network traffic, unless the session is ready and not anonymous.
func (s *Session) SendChatMessage(text string) bool {
	if !s.canSend("chat message") {
		return false
	}
	s.post(func() {
		if s.state != StateReady {
			return
		}
		if err := s.router.SendMethod(domain.MethodMsg, []any{text}, nil); err != nil {
			s.logger.Error().Err(err).Msg("failed to send chat message")
		}
	})
	return true
}

// SendWhisper sends a private message to the named user. Same capability
// rules as SendChatMessage.
func (s *Session) SendWhisper(target, text string) bool {
	if !s.canSend("whisper") {
		return false
	}
	s.post(func() {
		if s.state != StateReady {
			return
		}
		if err := s.router.SendMethod(domain.MethodWhisper, []any{target, text}, nil); err != nil {
			s.logger.Error().Err(err).Msg("failed to send whisper")
		}
	})
	return true
}

// RecentMessages returns up to n retained messages, newest first. A
// negative n returns the whole window.
func (s *Session) RecentMessages(n int) []*domain.Message {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	return s.history.Recent(n)
}

func (s *Session) canSend(what string) bool {
	if !s.ready.Load() {
		s.logger.Warn().Msgf("attempt to send %s before the room connection is ready", what)
		return false
	}
	if s.anonymous() {
		s.logger.Warn().Msgf("attempt to send %s on an anonymous connection", what)
		return false
	}
	return true
}

func (s *Session) anonymous() bool {
	return s.opts.Credential == nil
}

// run is the event loop. Posted closures execute one at a time; after
// quit it drains whatever is already queued (teardown included) and
// stops.
func (s *Session) run() {
	for {
		select {
		case fn := <-s.tasks:
			fn()
		case <-s.quit:
			for {
				select {
				case fn := <-s.tasks:
					fn()
				default:
					return
				}
			}
		}
	}
}

// post queues fn onto the event loop.
func (s *Session) post(fn func()) {
	select {
	case s.tasks <- fn:
	case <-s.quit:
		// Late completions after Close are discarded unless the buffer
		// still has room; either way the loop drains at most once more.
		select {
		case s.tasks <- fn:
		default:
		}
	}
}

func (s *Session) transmit(data []byte) error {
	if s.sock == nil {
		return transport.ErrNotConnected
	}
	return s.sock.Send(data)
}
