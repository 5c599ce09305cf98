package session

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/lumastream/chat-client/internal/codec"
	"github.com/lumastream/chat-client/internal/domain"
	"github.com/lumastream/chat-client/internal/router"
	"github.com/lumastream/chat-client/pkg/log"
)

// eventTable binds wire event names to their handlers. Built once per
// session; the router treats it as read-only.
func (s *Session) eventTable() map[string]router.EventHandler {
	return map[string]router.EventHandler{
		domain.EventWelcome:       s.onWelcome,
		domain.EventChatMessage:   s.onChatMessage,
		domain.EventUserJoin:      s.onUserJoin,
		domain.EventUserLeave:     s.onUserLeave,
		domain.EventDeleteMessage: s.onDeleteMessage,
		domain.EventClearMessages: s.onClearMessages,
		domain.EventPurgeMessage:  s.onPurgeMessage,
	}
}

// onWelcome is informational; authentication is already in flight by the
// time the server says hello.
func (s *Session) onWelcome(codec.Object) error {
	s.logger.Debug().Str(log.FieldEvent, domain.EventWelcome).Msg("server welcome")
	return nil
}

func (s *Session) onChatMessage(data codec.Object) error {
	msg, err := s.parseChatMessage(data)
	if err != nil {
		return err
	}

	if msg.Whisper {
		if s.notif.PrivateMessageReceived != nil {
			s.notif.PrivateMessageReceived(msg)
		}
		return nil
	}

	s.historyMu.Lock()
	s.history.Push(msg)
	s.historyMu.Unlock()

	if s.notif.MessageReceived != nil {
		s.notif.MessageReceived(msg)
	}
	return nil
}

func (s *Session) onUserJoin(data codec.Object) error {
	id, err := data.Int(domain.FieldID)
	if err != nil {
		return err
	}
	name, err := data.String(domain.FieldUsername)
	if err != nil {
		return err
	}

	user, joined := s.roster.GetOrCreate(id, name)
	if !joined {
		// Already seen via an earlier chat message; suppress the
		// duplicate notification.
		return nil
	}
	s.logger.Debug().Int64(log.FieldUserID, id).Str(log.FieldUsername, name).Msg("user joined")
	if s.notif.MemberJoined != nil {
		s.notif.MemberJoined(user)
	}
	return nil
}

func (s *Session) onUserLeave(data codec.Object) error {
	id, err := data.Int(domain.FieldID)
	if err != nil {
		return err
	}

	user, present := s.roster.Remove(id)
	if !present {
		return nil
	}
	s.logger.Debug().Int64(log.FieldUserID, id).Str(log.FieldUsername, user.Name).Msg("user left")
	if s.notif.MemberLeft != nil {
		s.notif.MemberLeft(user)
	}
	return nil
}

func (s *Session) onDeleteMessage(data codec.Object) error {
	rawID, err := data.String(domain.FieldID)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("parse deleted message id: %w", err)
	}

	removed := s.deleteFromHistory(func(m *domain.Message) bool {
		return m.ID == id
	})
	s.logger.Debug().Str(log.FieldMessageID, rawID).Int("removed", removed).Msg("message deleted by moderator")
	return nil
}

func (s *Session) onClearMessages(codec.Object) error {
	removed := s.deleteFromHistory(func(*domain.Message) bool { return true })
	s.logger.Debug().Int("removed", removed).Msg("chat history cleared by moderator")
	return nil
}

func (s *Session) onPurgeMessage(data codec.Object) error {
	userID, err := data.Int(domain.FieldUserID)
	if err != nil {
		return err
	}

	removed := s.deleteFromHistory(func(m *domain.Message) bool {
		return m.Sender != nil && m.Sender.ID == userID
	})
	s.logger.Debug().Int64(log.FieldUserID, userID).Int("removed", removed).Msg("user messages purged")
	return nil
}

func (s *Session) deleteFromHistory(pred func(*domain.Message) bool) int {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	return s.history.DeleteWhere(pred)
}

// parseChatMessage builds a Message from the ChatMessage event payload,
// which is also the per-entry shape of the history reply. A sender seen
// here for the first time is inserted into the roster and reported as a
// join, so joins surface even when the join event itself was missed.
func (s *Session) parseChatMessage(data codec.Object) (*domain.Message, error) {
	rawID, err := data.String(domain.FieldID)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse message id: %w", err)
	}

	name, err := data.String(domain.FieldUserName)
	if err != nil {
		return nil, err
	}
	userID, err := data.Int(domain.FieldUserID)
	if err != nil {
		return nil, err
	}

	sender, joined := s.roster.GetOrCreate(userID, name)
	if level, ok := data.OptionalInt(domain.FieldUserLevel); ok {
		sender.Level = int(level)
	} else {
		s.logger.Warn().Int64(log.FieldUserID, userID).Msg("chat message carried no user level")
	}
	if joined && s.notif.MemberJoined != nil {
		s.notif.MemberJoined(sender)
	}

	msg := domain.NewMessage(id, sender)

	body, err := data.Object(domain.FieldMessage)
	if err != nil {
		return nil, err
	}
	fragments, err := body.Array(domain.FieldMessage)
	if err != nil {
		return nil, err
	}
	for _, raw := range fragments {
		frag, ok := codec.AsObject(raw)
		if !ok {
			return nil, fmt.Errorf("message fragment is not an object")
		}
		if _, err := frag.String(domain.FieldType); err != nil {
			return nil, err
		}
		text, err := frag.String(domain.FieldText)
		if err != nil {
			return nil, err
		}
		msg.AppendFragment(text)
	}

	if meta, ok := body.OptionalObject(domain.FieldMeta); ok {
		if whisper, ok := meta.OptionalBool(domain.FieldWhisper); ok && whisper {
			msg.FlagAsWhisper()
		}
		if me, ok := meta.OptionalBool(domain.FieldMe); ok && me {
			msg.FlagAsAction()
		}
	}
	return msg, nil
}
