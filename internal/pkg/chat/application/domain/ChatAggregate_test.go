package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func groupOf(admin string, participants ...Participant) *Chat {
	conv := Conversation{ID: "c1", Kind: KindGroup, Name: strPtr("team"), AdminID: strPtr(admin)}
	return NewChat(conv, participants)
}

func TestNewChat_SortsBySuccessionOrder(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	c := groupOf("a",
		Participant{RowID: 3, UserID: "c", JoinedAt: t0.Add(2 * time.Minute)},
		Participant{RowID: 2, UserID: "b", JoinedAt: t0},
		Participant{RowID: 1, UserID: "a", JoinedAt: t0},
	)

	assert.Equal(t, []string{"a", "b", "c"}, c.MemberIDs())
}

func TestChat_RequireGroupAdmin(t *testing.T) {
	t0 := time.Now()
	group := groupOf("a", Participant{RowID: 1, UserID: "a", JoinedAt: t0}, Participant{RowID: 2, UserID: "b", JoinedAt: t0})
	dialog := NewChat(Conversation{ID: "d", Kind: KindDialog}, []Participant{{RowID: 1, UserID: "a"}, {RowID: 2, UserID: "b"}})

	assert.NoError(t, group.RequireGroupAdmin("a"))
	assert.ErrorIs(t, group.RequireGroupAdmin("b"), ErrNotAdmin)
	assert.ErrorIs(t, group.RequireGroupAdmin("z"), ErrNotParticipant)
	assert.ErrorIs(t, dialog.RequireGroupAdmin("a"), ErrNotGroup)
	assert.ErrorIs(t, dialog.RequireGroupAdmin("z"), ErrNotParticipant)
}

func TestChat_Leave(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	t3 := t2.Add(time.Minute)

	t.Run("admin leaves, earliest remaining joiner succeeds", func(t *testing.T) {
		c := groupOf("u1",
			Participant{RowID: 1, UserID: "u1", JoinedAt: t1},
			Participant{RowID: 3, UserID: "u3", JoinedAt: t3},
			Participant{RowID: 2, UserID: "u2", JoinedAt: t2},
		)
		out, err := c.Leave("u1")
		require.NoError(t, err)
		assert.False(t, out.Deleted)
		require.NotNil(t, out.NewAdmin)
		assert.Equal(t, "u2", *out.NewAdmin)
		assert.Equal(t, []string{"u2", "u3"}, out.Members)
		assert.Equal(t, []string{"u1", "u2", "u3"}, out.Former)
	})

	t.Run("identical join time falls back to row id", func(t *testing.T) {
		c := groupOf("u1",
			Participant{RowID: 1, UserID: "u1", JoinedAt: t1},
			Participant{RowID: 7, UserID: "late", JoinedAt: t2},
			Participant{RowID: 5, UserID: "early", JoinedAt: t2},
		)
		out, err := c.Leave("u1")
		require.NoError(t, err)
		assert.Equal(t, "early", *out.NewAdmin)
	})

	t.Run("member leaves, admin unchanged", func(t *testing.T) {
		c := groupOf("u1", Participant{RowID: 1, UserID: "u1", JoinedAt: t1}, Participant{RowID: 2, UserID: "u2", JoinedAt: t2})
		out, err := c.Leave("u2")
		require.NoError(t, err)
		assert.Nil(t, out.NewAdmin)
		assert.False(t, out.Deleted)
		assert.Equal(t, []string{"u1"}, out.Members)
	})

	t.Run("last member leaves", func(t *testing.T) {
		c := groupOf("u1", Participant{RowID: 1, UserID: "u1", JoinedAt: t1})
		out, err := c.Leave("u1")
		require.NoError(t, err)
		assert.True(t, out.Deleted)
		assert.Empty(t, out.Members)
	})

	t.Run("dialog is deleted", func(t *testing.T) {
		c := NewChat(Conversation{ID: "d", Kind: KindDialog}, []Participant{{RowID: 1, UserID: "a"}, {RowID: 2, UserID: "b"}})
		out, err := c.Leave("a")
		require.NoError(t, err)
		assert.True(t, out.Deleted)
		assert.Equal(t, []string{"a", "b"}, out.Former)
	})

	t.Run("outsider", func(t *testing.T) {
		c := groupOf("u1", Participant{RowID: 1, UserID: "u1", JoinedAt: t1})
		_, err := c.Leave("x")
		assert.ErrorIs(t, err, ErrNotParticipant)
	})
}

func TestNormalizeName(t *testing.T) {
	name, err := NormalizeName("  Weekend plans ")
	require.NoError(t, err)
	assert.Equal(t, "Weekend plans", name)

	_, err = NormalizeName("   ")
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = NormalizeName(strings.Repeat("я", MaxNameLength+1))
	assert.ErrorIs(t, err, ErrNameTooLong)

	_, err = NormalizeName(strings.Repeat("я", MaxNameLength))
	assert.NoError(t, err)
}

func TestNewMessage(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	msg, err := NewMessage(Message{ConversationID: "c", SenderID: "u", Content: "  hi  ", ForwardedFrom: strPtr("  ")}, now)
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Content)
	assert.Nil(t, msg.ForwardedFrom)
	assert.Equal(t, now, msg.CreatedAt)
	assert.False(t, msg.IsForwarded())

	_, err = NewMessage(Message{ConversationID: "c", SenderID: "u", Content: " "}, now)
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = NewMessage(Message{SenderID: "u", Content: "x"}, now)
	assert.ErrorIs(t, err, ErrInvalidConversation)
}

func TestConversationRecord_DisplayName(t *testing.T) {
	dialog := ConversationRecord{
		Conversation: Conversation{ID: "d", Kind: KindDialog},
		Participants: []ParticipantRecord{{UserID: "a", Username: "alice"}, {UserID: "b", Username: "bob"}},
	}
	assert.Equal(t, "bob", dialog.DisplayName("a"))
	assert.Equal(t, "alice", dialog.DisplayName("b"))

	group := ConversationRecord{Conversation: Conversation{ID: "g", Kind: KindGroup, Name: strPtr("team")}}
	assert.Equal(t, "team", group.DisplayName("a"))
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 9, 7, 5, 1, 123456789, time.FixedZone("X", 3*3600))
	assert.Equal(t, "2024-03-09T04:05:01.123Z", FormatTimestamp(ts))
}
