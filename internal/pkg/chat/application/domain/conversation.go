package chat

import "time"

// Kind distinguishes a two-party dialog from a multi-party group.
type Kind string

const (
	KindDialog Kind = "dialog"
	KindGroup  Kind = "group"
)

func (k Kind) Valid() bool {
	return k == KindDialog || k == KindGroup
}

// Conversation is the root of every membership, message, read and pin record.
// Name and AdminID are only set for groups.
type Conversation struct {
	ID        string    `db:"id"`
	Kind      Kind      `db:"kind"`
	Name      *string   `db:"name"`
	AdminID   *string   `db:"admin_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (c Conversation) IsGroup() bool { return c.Kind == KindGroup }

// IsAdmin reports whether userID administers the conversation.
func (c Conversation) IsAdmin(userID string) bool {
	return c.AdminID != nil && *c.AdminID == userID
}

// User is the directory entry the roster renders.
type User struct {
	ID        string  `db:"id"`
	Username  string  `db:"username"`
	AvatarURL *string `db:"avatar_url"`
}
