package repository

import (
	"context"
	"errors"

	chat "go-chatsync/internal/pkg/chat/application/domain"
)

// Store-level failures adapters translate their driver errors into.
var (
	ErrNotFound      = errors.New("repository: not found")
	ErrAlreadyMember = errors.New("repository: already a participant")
)

// ChatReader groups the read-only queries. None of them needs a transaction.
type ChatReader interface {
	// ListConversationRecords returns every conversation userID belongs to,
	// latest activity first, conversations without messages last.
	ListConversationRecords(ctx context.Context, userID string) ([]chat.ConversationRecord, error)
	// GetConversationRecord returns ErrNotFound when the conversation is
	// absent or userID is not a participant.
	GetConversationRecord(ctx context.Context, conversationID string, userID string) (*chat.ConversationRecord, error)
	GetMessagesByConversation(ctx context.Context, conversationID string, limit int, offset int) ([]chat.Message, error)
	IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error)
	ListParticipantIDs(ctx context.Context, conversationID string) ([]string, error)
	ListConversationIDs(ctx context.Context, userID string) ([]string, error)
	FindUsers(ctx context.Context, userIDs []string) ([]chat.User, error)
	ListPinnedMessageIDs(ctx context.Context, conversationID string) ([]string, error)
	// GetUnreadState returns ErrNotFound when userID is not a participant.
	GetUnreadState(ctx context.Context, conversationID string, userID string) (chat.UnreadState, error)
}

// ChatTx exposes the mutating primitives. They are only reachable inside
// ChatRepository.WithinTx so multi-step bodies commit or roll back as one.
type ChatTx interface {
	ChatReader

	// LockConversation loads the conversation row and holds it until the
	// transaction ends. Every mutation of one conversation goes through here first.
	LockConversation(ctx context.Context, conversationID string) (chat.Conversation, error)
	// LockDialogPair serializes dialog creation for an unordered pair of users.
	LockDialogPair(ctx context.Context, userA string, userB string) error
	// FindDialog returns the id of the dialog between exactly these two users, or "".
	FindDialog(ctx context.Context, userA string, userB string) (string, error)
	// ListParticipants returns the roster in join order.
	ListParticipants(ctx context.Context, conversationID string) ([]chat.Participant, error)

	CreateConversation(ctx context.Context, c chat.Conversation) (chat.Conversation, error)
	DeleteConversation(ctx context.Context, conversationID string) error
	UpdateConversationName(ctx context.Context, conversationID string, name string) error
	UpdateConversationAdmin(ctx context.Context, conversationID string, adminID *string) error

	InsertParticipant(ctx context.Context, p chat.Participant) (chat.Participant, error)
	DeleteParticipant(ctx context.Context, conversationID string, userID string) error
	SetParticipantMuted(ctx context.Context, conversationID string, userID string, muted bool) error

	InsertMessage(ctx context.Context, m chat.Message) (chat.Message, error)
	FindMessage(ctx context.Context, messageID string) (chat.Message, error)

	// InsertRead is idempotent: an existing (message, user) row is left alone.
	InsertRead(ctx context.Context, messageID string, userID string) error
	// MarkConversationRead inserts a read row for every message of others
	// that lacks one and reports how many were added.
	MarkConversationRead(ctx context.Context, conversationID string, userID string) (int64, error)
	// MarkConversationUnread deletes every read row userID holds in the conversation.
	MarkConversationUnread(ctx context.Context, conversationID string, userID string) (int64, error)

	PinExists(ctx context.Context, conversationID string, messageID string) (bool, error)
	InsertPin(ctx context.Context, p chat.Pin) error
	DeletePin(ctx context.Context, conversationID string, messageID string) error
}

// ChatRepository defines persistence operations for the chat domain.
type ChatRepository interface {
	ChatReader
	// WithinTx runs fn in one transaction. A non-nil error from fn rolls back
	// and is returned unchanged.
	WithinTx(ctx context.Context, fn func(tx ChatTx) error) error
	// SaveUser upserts a directory entry.
	SaveUser(ctx context.Context, u chat.User) error
}
