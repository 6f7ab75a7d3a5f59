package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	chat "go-chatsync/internal/pkg/chat/application/domain"
	"go-chatsync/internal/pkg/chat/application/fanout"
	"go-chatsync/internal/pkg/chat/persistence/repository/memory"
)

// tickingClock advances one second per reading so every row gets a distinct time.
type tickingClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *tickingClock {
	return &tickingClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type recordingPublisher struct {
	mu         sync.Mutex
	deliveries []fanout.Delivery
}

func (p *recordingPublisher) Publish(ctx context.Context, deliveries []fanout.Delivery) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deliveries = append(p.deliveries, deliveries...)
	return nil
}

func (p *recordingPublisher) take() []fanout.Delivery {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.deliveries
	p.deliveries = nil
	return out
}

// sent is a delivery reduced to what the assertions compare.
type sent struct {
	to    string
	event fanout.Event
}

func summarize(ds []fanout.Delivery) []sent {
	out := make([]sent, 0, len(ds))
	for _, d := range ds {
		out = append(out, sent{to: d.Recipient, event: d.Event})
	}
	return out
}

type harness struct {
	t     *testing.T
	ctx   context.Context
	repo  *memory.MemoryChatRepository
	pub   *recordingPublisher
	deps  Deps
	users map[string]string
}

func newHarness(t *testing.T, names ...string) *harness {
	t.Helper()
	clock := newClock()
	repo := memory.NewMemoryChatRepository(clock.Now)
	pub := &recordingPublisher{}
	agg := NewConversationAggregator(repo, nil, "", nil)
	h := &harness{
		t:     t,
		ctx:   context.Background(),
		repo:  repo,
		pub:   pub,
		deps:  Deps{Repo: repo, Aggregator: agg, Notifier: NewNotifier(agg, pub, nil), Now: clock.Now},
		users: map[string]string{},
	}
	for _, name := range names {
		id := uuid.NewString()
		require.NoError(t, repo.SaveUser(h.ctx, chat.User{ID: id, Username: name}))
		h.users[name] = id
	}
	return h
}

func (h *harness) id(name string) string {
	h.t.Helper()
	id, ok := h.users[name]
	require.True(h.t, ok, "unknown user %s", name)
	return id
}

func (h *harness) group(creator string, name string, others ...string) string {
	h.t.Helper()
	ids := make([]string, 0, len(others))
	for _, o := range others {
		ids = append(ids, h.id(o))
	}
	v, err := NewCreateGroupUseCase(h.deps).Execute(h.ctx, CreateGroupInput{CreatorID: h.id(creator), Name: name, ParticipantIDs: ids})
	require.NoError(h.t, err)
	h.pub.take()
	return v.ID
}

func (h *harness) dialog(a string, b string) string {
	h.t.Helper()
	res, err := NewCreateDialogUseCase(h.deps).Execute(h.ctx, CreateDialogInput{UserID: h.id(a), PeerID: h.id(b)})
	require.NoError(h.t, err)
	h.pub.take()
	return res.Conversation.ID
}

func (h *harness) send(from string, conversationID string, content string) string {
	h.t.Helper()
	m, err := NewSendMessageUseCase(h.deps).Execute(h.ctx, SendMessageInput{ConversationID: conversationID, SenderID: h.id(from), Content: content})
	require.NoError(h.t, err)
	h.pub.take()
	return m.ID
}

func (h *harness) detail(user string, conversationID string) *chat.ConversationView {
	h.t.Helper()
	v, err := h.deps.Aggregator.Detail(h.ctx, conversationID, h.id(user))
	require.NoError(h.t, err)
	return v
}

func (h *harness) unread(user string, conversationID string) int {
	h.t.Helper()
	return h.detail(user, conversationID).UnreadCount
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}
