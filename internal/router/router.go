// Package router demultiplexes inbound frames into correlated method
// replies and typed broadcast events, and owns the correlation-id counter
// for outbound method calls.
package router

import (
	"github.com/rs/zerolog"

	"github.com/lumastream/chat-client/internal/codec"
	"github.com/lumastream/chat-client/internal/domain"
	"github.com/lumastream/chat-client/pkg/log"
)

// ReplyHandler consumes the full reply payload for a method call.
type ReplyHandler func(reply codec.Object)

// EventHandler consumes the data object of a broadcast event. A returned
// error means the payload was malformed; the frame is logged and dropped.
type EventHandler func(data codec.Object) error

// SendFunc transmits an encoded frame on the current socket.
type SendFunc func(data []byte) error

// Router is not safe for concurrent use; the session event loop owns it.
type Router struct {
	send    SendFunc
	events  map[string]EventHandler
	pending map[int64]ReplyHandler
	nextID  int64
	logger  zerolog.Logger
}

// New creates a router. The event table is built once by the caller and
// treated as read-only from here on.
func New(send SendFunc, events map[string]EventHandler, logger zerolog.Logger) *Router {
	return &Router{
		send:    send,
		events:  events,
		pending: make(map[int64]ReplyHandler),
		logger:  logger,
	}
}

// SendMethod encodes and transmits a method call under the next
// correlation id. A nil onReply is fire-and-forget but still consumes the
// id. Issued ids are strictly increasing and never reused while pending;
// replies that never arrive leave their id pending until the whole
// connection is discarded.
func (r *Router) SendMethod(method string, args []any, onReply ReplyHandler) error {
	data, err := codec.EncodeMethod(method, args, r.nextID)
	if err != nil {
		return err
	}

	r.pending[r.nextID] = onReply
	r.nextID++

	return r.send(data)
}

// HandleFrame decodes one inbound frame and dispatches it. Every failure
// mode here is a logged drop; inbound traffic never terminates the
// connection.
func (r *Router) HandleFrame(raw []byte) {
	frame, err := codec.DecodeFrame(raw)
	if err != nil {
		r.logger.Error().Err(err).Msg("dropping undecodable frame")
		return
	}

	switch frame.Type {
	case domain.FrameReply:
		handler, ok := r.pending[frame.ID]
		if !ok {
			r.logger.Error().Int64(log.FieldReplyID, frame.ID).Msg("unexpected reply for unknown correlation id")
			return
		}
		delete(r.pending, frame.ID)
		if handler != nil {
			handler(frame.Reply)
		}

	case domain.FrameEvent:
		handler, ok := r.events[frame.Event]
		if !ok {
			// Forward compatible: new event types are not fatal.
			r.logger.Debug().Str(log.FieldEvent, frame.Event).Msg("unhandled event type")
			return
		}
		if err := handler(frame.Data); err != nil {
			r.logger.Error().Err(err).Str(log.FieldEvent, frame.Event).Msg("dropping malformed event")
		}
	}
}

// PendingCount returns the number of correlation ids awaiting a reply.
func (r *Router) PendingCount() int {
	return len(r.pending)
}
