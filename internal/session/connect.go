package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/lumastream/chat-client/internal/codec"
	"github.com/lumastream/chat-client/internal/domain"
	"github.com/lumastream/chat-client/internal/roster"
	"github.com/lumastream/chat-client/internal/router"
	"github.com/lumastream/chat-client/internal/transport"
	"github.com/lumastream/chat-client/pkg/log"
)

var ErrAlreadyOpen = errors.New("session already opened")

// discoverChannel resolves the room to its numeric channel id. Runs on the
// loop; the HTTP call itself runs on its own goroutine and posts the
// completion back.
func (s *Session) discoverChannel() {
	s.state = StateDiscoveringChannel
	s.logger.Info().Str(log.FieldState, s.state.String()).Msg("resolving room channel")

	go func() {
		id, err := s.disc.ChannelForRoom(s.ctx, s.roomID)
		s.post(func() {
			if s.state != StateDiscoveringChannel {
				return
			}
			if err != nil {
				s.failConnect(fmt.Errorf("resolve channel for room %q: %w", s.roomID, err))
				return
			}
			s.channelID = id
			s.discoverEndpoints()
		})
	}()
}

// discoverEndpoints fetches the socket endpoints and per-session auth key
// for the resolved channel.
func (s *Session) discoverEndpoints() {
	s.state = StateDiscoveringEndpoints
	s.logger.Info().
		Int64(log.FieldChannelID, s.channelID).
		Str(log.FieldState, s.state.String()).
		Msg("fetching chat endpoints")

	bearer := ""
	if !s.anonymous() {
		bearer = s.opts.Credential.Token
	}

	go func() {
		info, err := s.disc.ChatConnectionInfo(s.ctx, s.channelID, bearer)
		s.post(func() {
			if s.state != StateDiscoveringEndpoints {
				return
			}
			if err != nil {
				s.failConnect(fmt.Errorf("fetch chat endpoints: %w", err))
				return
			}
			s.endpoints = info.Endpoints
			s.authKey = info.AuthKey
			s.connectSocket()
		})
	}()
}

// connectSocket picks an endpoint and opens the socket. Each attempt gets
// a fresh router: correlation ids restart at zero and replies pending on
// the previous socket are abandoned with it.
func (s *Session) connectSocket() {
	if len(s.endpoints) == 0 {
		s.failConnect(errors.New("no chat endpoints available"))
		return
	}

	endpoint := s.endpoints[s.opts.PickEndpoint(len(s.endpoints))]
	s.state = StateConnecting
	s.logger.Info().
		Str(log.FieldEndpoint, endpoint).
		Str(log.FieldState, s.state.String()).
		Msg("connecting chat socket")

	s.router = router.New(s.transmit, s.eventTable(), s.logger)

	var sock transport.Socket
	sock = s.dialer.Dial(endpoint, transport.Callbacks{
		OnConnected: func() {
			s.post(func() {
				if s.sock != sock {
					return
				}
				s.onSocketConnected()
			})
		},
		OnError: func(err error) {
			s.post(func() {
				if s.sock != sock {
					return
				}
				s.onSocketError(err)
			})
		},
		OnMessage: func(data []byte) {
			s.post(func() {
				if s.sock != sock {
					return
				}
				s.router.HandleFrame(data)
			})
		},
		OnClosed: func(code int, reason string, clean bool) {
			s.post(func() {
				if s.sock != sock {
					return
				}
				s.onSocketClosed(code, reason, clean)
			})
		},
	})
	s.sock = sock
	sock.Connect()
}

// onSocketConnected sends the auth handshake. Anonymous sessions identify
// by channel alone and may read but not send.
func (s *Session) onSocketConnected() {
	s.state = StateAuthenticating
	s.logger.Info().Str(log.FieldState, s.state.String()).Msg("socket connected, authenticating")

	args := []any{s.channelID}
	if !s.anonymous() {
		args = append(args, s.opts.Credential.UserID, s.authKey)
	}
	if err := s.router.SendMethod(domain.MethodAuth, args, s.handleAuthReply); err != nil {
		s.failConnect(fmt.Errorf("send auth: %w", err))
	}
}

func (s *Session) handleAuthReply(reply codec.Object) {
	if s.state != StateAuthenticating {
		return
	}

	if errObj, ok := reply.OptionalObject(domain.FieldError); ok && errObj != nil {
		reason, _ := errObj.OptionalString(domain.FieldMessage)
		if reason == "" {
			reason = "authentication rejected"
		}
		s.failConnect(errors.New(reason))
		return
	}

	s.state = StateReady
	s.ready.Store(true)
	s.retry.Reset()
	s.logger.Info().Str(log.FieldState, s.state.String()).Msg("chat session ready")

	if n := s.history.Max(); n > 0 {
		if n > historyRequestMax {
			n = historyRequestMax
		}
		if err := s.router.SendMethod(domain.MethodHistory, []any{n}, s.handleHistoryReply); err != nil {
			s.logger.Error().Err(err).Msg("failed to request message history")
		}
	}

	if s.notif.ConnectAttemptFinished != nil {
		s.notif.ConnectAttemptFinished(true, "")
	}
}

// handleHistoryReply merges the server's backlog into whatever live
// messages arrived while the request was in flight. Malformed entries are
// skipped individually; the reply never fails as a whole.
func (s *Session) handleHistoryReply(reply codec.Object) {
	if s.state != StateReady {
		return
	}

	entries, err := reply.Array(domain.FieldData)
	if err != nil {
		s.logger.Error().Err(err).Msg("dropping malformed history reply")
		return
	}

	// The server reports history oldest first (index 0 is the oldest
	// entry), which is exactly the order the merge consumes.
	backlog := make([]*domain.Message, 0, len(entries))
	for _, entry := range entries {
		obj, ok := codec.AsObject(entry)
		if !ok {
			s.logger.Error().Msg("skipping non-object history entry")
			continue
		}
		msg, err := s.parseChatMessage(obj)
		if err != nil {
			s.logger.Error().Err(err).Msg("skipping malformed history entry")
			continue
		}
		backlog = append(backlog, msg)
	}

	s.historyMu.Lock()
	s.history.Merge(backlog)
	s.historyMu.Unlock()
	s.logger.Debug().Int("merged", len(backlog)).Msg("merged message history")
}

// onSocketError fires when the socket never came up.
func (s *Session) onSocketError(err error) {
	s.failConnect(fmt.Errorf("socket connect: %w", err))
}

// onSocketClosed fires when an established socket ends remotely. With the
// rejoin flag set the session re-runs endpoint selection, deliberately
// re-randomizing in case the closed endpoint is degraded. Otherwise a
// ready session reports the room exit and a close during the handshake is
// a failed connection attempt.
func (s *Session) onSocketClosed(code int, reason string, clean bool) {
	wasReady := s.state == StateReady
	s.teardownSocket()
	s.logger.Warn().
		Int("close_code", code).
		Str("reason", reason).
		Bool("clean", clean).
		Msg("chat socket closed remotely")

	if s.opts.RejoinOnDisconnect {
		s.scheduleReconnect()
		return
	}
	if wasReady {
		s.state = StateClosed
		if s.notif.RoomExited != nil {
			s.notif.RoomExited(clean, reason)
		}
		return
	}
	s.failConnect(fmt.Errorf("socket closed during handshake: %s (%d)", reason, code))
}

// scheduleReconnect re-runs endpoint selection after a backoff pause. The
// endpoint list and auth key from discovery stay valid across rejoins.
func (s *Session) scheduleReconnect() {
	wait := s.retry.NextBackOff()
	s.logger.Info().Dur("backoff", wait).Msg("scheduling chat reconnect")
	s.reconnectTimer = time.AfterFunc(wait, func() {
		s.post(func() {
			if s.state == StateClosed {
				return
			}
			s.connectSocket()
		})
	})
}

// teardownSocket discards the socket and everything scoped to it: the
// pending-reply table, the participant roster, and the ready flag.
// Retained history survives; the post-rejoin history request reconciles
// it.
func (s *Session) teardownSocket() {
	s.ready.Store(false)
	if s.sock != nil {
		s.sock.Close()
		s.sock = nil
	}
	s.roster = roster.New()
}

// failConnect reports a failed connection attempt and returns control to
// the owner. The notification may call Close or discard the session, so
// nothing runs after it.
func (s *Session) failConnect(err error) {
	s.teardownSocket()
	s.state = StateClosed
	s.logger.Error().Err(err).Msg("chat connection attempt failed")
	if s.notif.ConnectAttemptFinished != nil {
		s.notif.ConnectAttemptFinished(false, err.Error())
	}
}
