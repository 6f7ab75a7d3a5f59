package chat

import "time"

// Participant captures membership and mute state.
// Unique key: (ConversationID, UserID). RowID is assigned by the store and
// orders participants that joined at the same instant.
type Participant struct {
	RowID          int64     `db:"id"`
	ConversationID string    `db:"conversation_id"`
	UserID         string    `db:"user_id"`
	JoinedAt       time.Time `db:"joined_at"`
	IsMuted        bool      `db:"is_muted"`
}

// joinedBefore is the succession order: earliest join first, row id second.
func joinedBefore(a, b Participant) bool {
	if !a.JoinedAt.Equal(b.JoinedAt) {
		return a.JoinedAt.Before(b.JoinedAt)
	}
	return a.RowID < b.RowID
}
