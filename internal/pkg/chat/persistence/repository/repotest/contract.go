// Package repotest holds the behaviour every ChatRepository adapter must share.
package repotest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chat "go-chatsync/internal/pkg/chat/application/domain"
	repository "go-chatsync/internal/pkg/chat/persistence/repository/port"
)

var errRollback = errors.New("rollback")

type fixture struct {
	t    *testing.T
	ctx  context.Context
	repo repository.ChatRepository
	base time.Time
	ids  map[string]string
}

func (f *fixture) at(sec int) time.Time {
	return f.base.Add(time.Duration(sec) * time.Second)
}

func (f *fixture) tx(fn func(tx repository.ChatTx) error) {
	f.t.Helper()
	require.NoError(f.t, f.repo.WithinTx(f.ctx, fn))
}

// conversation creates a conversation of kind with members joining in order.
func (f *fixture) conversation(kind chat.Kind, created int, members ...string) string {
	f.t.Helper()
	var id string
	f.tx(func(tx repository.ChatTx) error {
		c := chat.Conversation{Kind: kind, CreatedAt: f.at(created)}
		if kind == chat.KindGroup {
			name := "group"
			admin := f.ids[members[0]]
			c.Name, c.AdminID = &name, &admin
		}
		c, err := tx.CreateConversation(f.ctx, c)
		if err != nil {
			return err
		}
		id = c.ID
		for i, m := range members {
			if _, err := tx.InsertParticipant(f.ctx, chat.Participant{ConversationID: id, UserID: f.ids[m], JoinedAt: f.at(created + i)}); err != nil {
				return err
			}
		}
		return nil
	})
	return id
}

func (f *fixture) message(conversationID string, sender string, content string, sec int) string {
	f.t.Helper()
	var id string
	f.tx(func(tx repository.ChatTx) error {
		m, err := tx.InsertMessage(f.ctx, chat.Message{ConversationID: conversationID, SenderID: f.ids[sender], Content: content, CreatedAt: f.at(sec)})
		if err != nil {
			return err
		}
		id = m.ID
		return tx.InsertRead(f.ctx, m.ID, f.ids[sender])
	})
	return id
}

func (f *fixture) unread(conversationID string, user string) int {
	f.t.Helper()
	st, err := f.repo.GetUnreadState(f.ctx, conversationID, f.ids[user])
	require.NoError(f.t, err)
	return st.UnreadCount
}

// Run exercises newRepo against the participation store contract. Each
// subtest gets a fresh repository.
func Run(t *testing.T, newRepo func(t *testing.T) repository.ChatRepository) {
	setup := func(t *testing.T) *fixture {
		f := &fixture{
			t:    t,
			ctx:  context.Background(),
			repo: newRepo(t),
			base: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
			ids:  map[string]string{},
		}
		for _, name := range []string{"alice", "bob", "carol"} {
			id := uuid.NewString()
			require.NoError(t, f.repo.SaveUser(f.ctx, chat.User{ID: id, Username: name}))
			f.ids[name] = id
		}
		return f
	}

	t.Run("users", func(t *testing.T) {
		f := setup(t)
		avatar := "https://example.test/a.png"
		require.NoError(t, f.repo.SaveUser(f.ctx, chat.User{ID: f.ids["alice"], Username: "alice2", AvatarURL: &avatar}))

		found, err := f.repo.FindUsers(f.ctx, []string{f.ids["bob"], uuid.NewString(), f.ids["alice"]})
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, f.ids["bob"], found[0].ID)
		assert.Equal(t, "alice2", found[1].Username)
		require.NotNil(t, found[1].AvatarURL)
		assert.Equal(t, avatar, *found[1].AvatarURL)
	})

	t.Run("dialog lookup is symmetric", func(t *testing.T) {
		f := setup(t)
		id := f.conversation(chat.KindDialog, 0, "alice", "bob")
		f.tx(func(tx repository.ChatTx) error {
			require.NoError(t, tx.LockDialogPair(f.ctx, f.ids["bob"], f.ids["alice"]))
			for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
				got, err := tx.FindDialog(f.ctx, f.ids[pair[0]], f.ids[pair[1]])
				require.NoError(t, err)
				assert.Equal(t, id, got)
			}
			got, err := tx.FindDialog(f.ctx, f.ids["alice"], f.ids["carol"])
			require.NoError(t, err)
			assert.Empty(t, got)
			return nil
		})
	})

	t.Run("duplicate participant", func(t *testing.T) {
		f := setup(t)
		id := f.conversation(chat.KindGroup, 0, "alice", "bob")
		err := f.repo.WithinTx(f.ctx, func(tx repository.ChatTx) error {
			_, err := tx.InsertParticipant(f.ctx, chat.Participant{ConversationID: id, UserID: f.ids["bob"]})
			return err
		})
		assert.ErrorIs(t, err, repository.ErrAlreadyMember)
	})

	t.Run("failed body rolls back", func(t *testing.T) {
		f := setup(t)
		id := f.conversation(chat.KindGroup, 0, "alice")
		err := f.repo.WithinTx(f.ctx, func(tx repository.ChatTx) error {
			if _, err := tx.InsertParticipant(f.ctx, chat.Participant{ConversationID: id, UserID: f.ids["carol"]}); err != nil {
				return err
			}
			if err := tx.UpdateConversationName(f.ctx, id, "changed"); err != nil {
				return err
			}
			return errRollback
		})
		require.ErrorIs(t, err, errRollback)

		ok, err := f.repo.IsParticipant(f.ctx, id, f.ids["carol"])
		require.NoError(t, err)
		assert.False(t, ok)
		f.tx(func(tx repository.ChatTx) error {
			c, err := tx.LockConversation(f.ctx, id)
			require.NoError(t, err)
			require.NotNil(t, c.Name)
			assert.Equal(t, "group", *c.Name)
			return nil
		})
	})

	t.Run("roster and admin", func(t *testing.T) {
		f := setup(t)
		id := f.conversation(chat.KindGroup, 0, "alice", "bob", "carol")
		f.tx(func(tx repository.ChatTx) error {
			roster, err := tx.ListParticipants(f.ctx, id)
			require.NoError(t, err)
			require.Len(t, roster, 3)
			assert.Equal(t, f.ids["alice"], roster[0].UserID)
			assert.Equal(t, f.ids["carol"], roster[2].UserID)
			assert.Less(t, roster[0].RowID, roster[1].RowID)

			require.NoError(t, tx.DeleteParticipant(f.ctx, id, f.ids["alice"]))
			bob := f.ids["bob"]
			require.NoError(t, tx.UpdateConversationAdmin(f.ctx, id, &bob))
			require.NoError(t, tx.SetParticipantMuted(f.ctx, id, bob, true))
			return nil
		})

		rec, err := f.repo.GetConversationRecord(f.ctx, id, f.ids["bob"])
		require.NoError(t, err)
		require.NotNil(t, rec.Conversation.AdminID)
		assert.Equal(t, f.ids["bob"], *rec.Conversation.AdminID)
		assert.True(t, rec.IsMuted)
		require.Len(t, rec.Participants, 2)
		assert.Equal(t, "bob", rec.Participants[0].Username)
		assert.True(t, rec.Participants[0].IsAdmin)
		assert.False(t, rec.Participants[1].IsAdmin)

		_, err = f.repo.GetConversationRecord(f.ctx, id, f.ids["alice"])
		assert.ErrorIs(t, err, repository.ErrNotFound)

		ids, err := f.repo.ListParticipantIDs(f.ctx, id)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{f.ids["bob"], f.ids["carol"]}, ids)
	})

	t.Run("unread counting", func(t *testing.T) {
		f := setup(t)
		id := f.conversation(chat.KindDialog, 0, "alice", "bob")
		f.message(id, "alice", "one", 10)
		f.message(id, "alice", "two", 11)
		f.message(id, "bob", "three", 12)

		assert.Equal(t, 2, f.unread(id, "bob"))
		assert.Equal(t, 1, f.unread(id, "alice"))

		f.tx(func(tx repository.ChatTx) error {
			n, err := tx.MarkConversationRead(f.ctx, id, f.ids["bob"])
			require.NoError(t, err)
			assert.EqualValues(t, 2, n)
			n, err = tx.MarkConversationRead(f.ctx, id, f.ids["bob"])
			require.NoError(t, err)
			assert.EqualValues(t, 0, n)
			return nil
		})
		assert.Equal(t, 0, f.unread(id, "bob"))

		f.tx(func(tx repository.ChatTx) error {
			_, err := tx.MarkConversationUnread(f.ctx, id, f.ids["bob"])
			return err
		})
		assert.Equal(t, 2, f.unread(id, "bob"))
		assert.Equal(t, 1, f.unread(id, "alice"))

		_, err := f.repo.GetUnreadState(f.ctx, id, f.ids["carol"])
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("messages page newest first", func(t *testing.T) {
		f := setup(t)
		id := f.conversation(chat.KindDialog, 0, "alice", "bob")
		for i, text := range []string{"m1", "m2", "m3"} {
			f.message(id, "alice", text, 10+i)
		}

		page, err := f.repo.GetMessagesByConversation(f.ctx, id, 2, 0)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "m3", page[0].Content)
		assert.Equal(t, "m2", page[1].Content)

		page, err = f.repo.GetMessagesByConversation(f.ctx, id, 2, 2)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "m1", page[0].Content)

		page, err = f.repo.GetMessagesByConversation(f.ctx, id, 2, 10)
		require.NoError(t, err)
		assert.Empty(t, page)
	})

	t.Run("list orders by latest activity", func(t *testing.T) {
		f := setup(t)
		quiet := f.conversation(chat.KindGroup, 50, "alice", "carol")
		older := f.conversation(chat.KindDialog, 0, "alice", "bob")
		newer := f.conversation(chat.KindGroup, 1, "alice", "bob", "carol")
		f.message(older, "bob", "hello", 100)
		f.message(newer, "carol", "hi all", 200)

		recs, err := f.repo.ListConversationRecords(f.ctx, f.ids["alice"])
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, newer, recs[0].Conversation.ID)
		assert.Equal(t, older, recs[1].Conversation.ID)
		assert.Equal(t, quiet, recs[2].Conversation.ID)
		assert.Nil(t, recs[2].LastMessage)
		require.NotNil(t, recs[0].LastMessage)
		assert.Equal(t, "hi all", recs[0].LastMessage.Content)
		assert.Equal(t, 1, recs[0].UnreadCount)

		ids, err := f.repo.ListConversationIDs(f.ctx, f.ids["bob"])
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{older, newer}, ids)
	})

	t.Run("pins newest first", func(t *testing.T) {
		f := setup(t)
		id := f.conversation(chat.KindDialog, 0, "alice", "bob")
		m1 := f.message(id, "alice", "one", 10)
		m2 := f.message(id, "bob", "two", 11)

		f.tx(func(tx repository.ChatTx) error {
			require.NoError(t, tx.InsertPin(f.ctx, chat.Pin{ConversationID: id, MessageID: m1, PinnedBy: f.ids["alice"], PinnedAt: f.at(20)}))
			require.NoError(t, tx.InsertPin(f.ctx, chat.Pin{ConversationID: id, MessageID: m2, PinnedBy: f.ids["bob"], PinnedAt: f.at(21)}))
			ok, err := tx.PinExists(f.ctx, id, m1)
			require.NoError(t, err)
			assert.True(t, ok)
			return nil
		})

		pins, err := f.repo.ListPinnedMessageIDs(f.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{m2, m1}, pins)

		f.tx(func(tx repository.ChatTx) error {
			return tx.DeletePin(f.ctx, id, m2)
		})
		rec, err := f.repo.GetConversationRecord(f.ctx, id, f.ids["alice"])
		require.NoError(t, err)
		assert.Equal(t, []string{m1}, rec.PinnedMessageIDs)
	})

	t.Run("delete cascades", func(t *testing.T) {
		f := setup(t)
		id := f.conversation(chat.KindDialog, 0, "alice", "bob")
		m := f.message(id, "alice", "bye", 10)
		f.tx(func(tx repository.ChatTx) error {
			return tx.DeleteConversation(f.ctx, id)
		})

		ok, err := f.repo.IsParticipant(f.ctx, id, f.ids["alice"])
		require.NoError(t, err)
		assert.False(t, ok)

		err = f.repo.WithinTx(f.ctx, func(tx repository.ChatTx) error {
			_, err := tx.FindMessage(f.ctx, m)
			return err
		})
		assert.ErrorIs(t, err, repository.ErrNotFound)

		err = f.repo.WithinTx(f.ctx, func(tx repository.ChatTx) error {
			_, err := tx.LockConversation(f.ctx, id)
			return err
		})
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("concurrent leaves of the last two members", func(t *testing.T) {
		f := setup(t)
		for round := 0; round < 10; round++ {
			id := f.conversation(chat.KindGroup, round, "alice", "bob")

			outcomes := make(chan string, 2)
			errs := make(chan error, 2)
			start := make(chan struct{})
			var wg sync.WaitGroup
			for _, member := range []string{"alice", "bob"} {
				wg.Add(1)
				go func(userID string) {
					defer wg.Done()
					<-start
					errs <- f.repo.WithinTx(f.ctx, func(tx repository.ChatTx) error {
						if _, err := tx.LockConversation(f.ctx, id); err != nil {
							return err
						}
						roster, err := tx.ListParticipants(f.ctx, id)
						if err != nil {
							return err
						}
						if len(roster) <= 1 {
							outcomes <- "last"
							return tx.DeleteConversation(f.ctx, id)
						}
						outcomes <- "not last"
						return tx.DeleteParticipant(f.ctx, id, userID)
					})
				}(f.ids[member])
			}
			close(start)
			wg.Wait()
			close(errs)
			close(outcomes)

			for err := range errs {
				require.NoError(t, err)
			}
			var got []string
			for o := range outcomes {
				got = append(got, o)
			}
			assert.ElementsMatch(t, []string{"last", "not last"}, got, "round %d", round)

			ids, err := f.repo.ListConversationIDs(f.ctx, f.ids["alice"])
			require.NoError(t, err)
			assert.NotContains(t, ids, id)
		}
	})

	t.Run("concurrent dialog creation converges", func(t *testing.T) {
		f := setup(t)
		const callers = 8
		alice, bob := f.ids["alice"], f.ids["bob"]

		results := make(chan string, callers)
		errs := make(chan error, callers)
		start := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			a, b := alice, bob
			if i%2 == 1 {
				a, b = bob, alice
			}
			wg.Add(1)
			go func(a, b string) {
				defer wg.Done()
				<-start
				var id string
				err := f.repo.WithinTx(f.ctx, func(tx repository.ChatTx) error {
					if err := tx.LockDialogPair(f.ctx, a, b); err != nil {
						return err
					}
					existing, err := tx.FindDialog(f.ctx, a, b)
					if err != nil {
						return err
					}
					if existing != "" {
						id = existing
						return nil
					}
					c, err := tx.CreateConversation(f.ctx, chat.Conversation{Kind: chat.KindDialog, CreatedAt: f.at(0)})
					if err != nil {
						return err
					}
					for _, u := range []string{a, b} {
						if _, err := tx.InsertParticipant(f.ctx, chat.Participant{ConversationID: c.ID, UserID: u, JoinedAt: f.at(0)}); err != nil {
							return err
						}
					}
					id = c.ID
					return nil
				})
				errs <- err
				results <- id
			}(a, b)
		}
		close(start)
		wg.Wait()
		close(errs)
		close(results)

		for err := range errs {
			require.NoError(t, err)
		}
		seen := map[string]bool{}
		for id := range results {
			seen[id] = true
		}
		assert.Len(t, seen, 1)

		for _, user := range []string{alice, bob} {
			ids, err := f.repo.ListConversationIDs(f.ctx, user)
			require.NoError(t, err)
			assert.Len(t, ids, 1)
		}
	})
}
