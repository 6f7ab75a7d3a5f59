package chat

import (
	"strings"
	"time"
)

// Message is an immutable log entry in a conversation.
// ForwardedFrom holds the original sender's name when the message is a forward.
type Message struct {
	ID             string    `db:"id"`
	ConversationID string    `db:"conversation_id"`
	SenderID       string    `db:"sender_id"`
	Content        string    `db:"content"`
	ForwardedFrom  *string   `db:"forwarded_from"`
	CreatedAt      time.Time `db:"created_at"`
}

func (m Message) IsForwarded() bool {
	return m.ForwardedFrom != nil && *m.ForwardedFrom != ""
}

// NewMessage validates m and returns a copy ready to persist.
// Content and ForwardedFrom are trimmed; a zero CreatedAt is set to now.
func NewMessage(m Message, now time.Time) (*Message, error) {
	if m.ConversationID == "" || m.SenderID == "" {
		return nil, ErrInvalidConversation
	}

	m.Content = strings.TrimSpace(m.Content)
	if m.Content == "" {
		return nil, ErrEmptyMessage
	}

	if m.ForwardedFrom != nil {
		from := strings.TrimSpace(*m.ForwardedFrom)
		if from == "" {
			m.ForwardedFrom = nil
		} else {
			m.ForwardedFrom = &from
		}
	}

	if m.CreatedAt.IsZero() {
		if now.IsZero() {
			now = time.Now()
		}
		m.CreatedAt = now.UTC()
	}

	return &m, nil
}

// Pin marks a message as highlighted within its conversation.
// Unique key: (ConversationID, MessageID).
type Pin struct {
	ConversationID string    `db:"conversation_id"`
	MessageID      string    `db:"message_id"`
	PinnedBy       string    `db:"pinned_by"`
	PinnedAt       time.Time `db:"pinned_at"`
}
