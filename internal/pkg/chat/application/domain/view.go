package chat

import "time"

// TimestampLayout is the canonical textual form of every timestamp leaving the service.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParticipantRecord is one roster row as the store returns it.
type ParticipantRecord struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	AvatarURL *string   `json:"avatar_url"`
	IsAdmin   bool      `json:"is_admin"`
	JoinedAt  time.Time `json:"joined_at"`
}

// ConversationRecord is the per-viewer aggregate row the store computes:
// the conversation, its latest message, the viewer's live unread count and
// mute flag, pins newest first and the roster ordered by username.
type ConversationRecord struct {
	Conversation     Conversation
	LastMessage      *Message
	UnreadCount      int
	IsMuted          bool
	PinnedMessageIDs []string
	Participants     []ParticipantRecord
}

// DisplayName renders the conversation name for viewerID. Groups use their
// stored name; a dialog is named after the other participant.
func (r ConversationRecord) DisplayName(viewerID string) string {
	if r.Conversation.IsGroup() {
		if r.Conversation.Name != nil {
			return *r.Conversation.Name
		}
		return ""
	}
	for _, p := range r.Participants {
		if p.UserID != viewerID {
			return p.Username
		}
	}
	return ""
}

type LastMessageView struct {
	ID          string `json:"id"`
	SenderID    string `json:"sender_id"`
	Preview     string `json:"preview"`
	CreatedAt   string `json:"created_at"`
	IsForwarded bool   `json:"is_forwarded"`
}

type ParticipantView struct {
	UserID    string  `json:"user_id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url"`
	IsOnline  bool    `json:"is_online"`
	IsAdmin   bool    `json:"is_admin"`
	JoinedAt  string  `json:"joined_at"`
}

// ConversationView is the snapshot served by list and detail reads and
// carried by conversation.new / conversation.updated events.
type ConversationView struct {
	ID                 string            `json:"id"`
	Kind               Kind              `json:"kind"`
	DisplayName        string            `json:"display_name"`
	Name               *string           `json:"name"`
	AdminID            *string           `json:"admin_id"`
	CreatedAt          string            `json:"created_at"`
	LastMessage        *LastMessageView  `json:"last_message"`
	LastMessagePreview string            `json:"last_message_preview"`
	UnreadCount        int               `json:"unread_count"`
	IsMuted            bool              `json:"is_muted"`
	PinnedMessageIDs   []string          `json:"pinned_message_ids"`
	Participants       []ParticipantView `json:"participants"`
}

// UnreadState is the narrow read-state snapshot sent to the acting user only.
type UnreadState struct {
	ConversationID string `json:"conversation_id"`
	UnreadCount    int    `json:"unread_count"`
	IsMuted        bool   `json:"is_muted"`
}

type MessageView struct {
	ID             string  `json:"id"`
	ConversationID string  `json:"conversation_id"`
	SenderID       string  `json:"sender_id"`
	Content        string  `json:"content"`
	ForwardedFrom  *string `json:"forwarded_from"`
	CreatedAt      string  `json:"created_at"`
}

func NewMessageView(m Message) MessageView {
	return MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		ForwardedFrom:  m.ForwardedFrom,
		CreatedAt:      FormatTimestamp(m.CreatedAt),
	}
}
