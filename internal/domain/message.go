package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single chat message. The body is accumulated from text
// fragments in arrival order; a moderated message keeps its id and sender
// but has an empty body (tombstone).
type Message struct {
	ID        uuid.UUID
	Sender    *User
	Body      string
	Timestamp time.Time
	Whisper   bool
	Action    bool
	Moderated bool
}

func NewMessage(id uuid.UUID, sender *User) *Message {
	return &Message{
		ID:        id,
		Sender:    sender,
		Timestamp: time.Now(),
	}
}

// AppendFragment adds one text fragment to the body.
func (m *Message) AppendFragment(text string) {
	m.Body += text
}

// FlagAsWhisper marks the message as a private one-to-one message.
// Whispers are never retained in room history.
func (m *Message) FlagAsWhisper() {
	m.Whisper = true
}

// FlagAsAction marks a "/me" style message, prefixing the sender name
// exactly once.
func (m *Message) FlagAsAction() {
	if !m.Action {
		m.Action = true
		m.Body = m.Sender.Name + " " + m.Body
	}
}

// Tombstone clears the body and marks the message moderated. The record
// keeps its id so dedup bookkeeping still matches it.
func (m *Message) Tombstone() {
	m.Body = ""
	m.Moderated = true
}
