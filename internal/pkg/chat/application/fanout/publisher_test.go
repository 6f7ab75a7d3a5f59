package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qport "go-chatsync/internal/infrastructure/queue/port"
)

type call struct {
	op     string
	target string
	room   string
	event  string
}

type recordingBroadcaster struct {
	calls []call
	fail  error
}

func (r *recordingBroadcaster) SendToUser(userID string, event string, payload []byte) error {
	r.calls = append(r.calls, call{op: "user", target: userID, event: event})
	return r.fail
}

func (r *recordingBroadcaster) SendToRoom(roomID string, event string, payload []byte) error {
	r.calls = append(r.calls, call{op: "room", target: roomID, event: event})
	return r.fail
}

func (r *recordingBroadcaster) JoinRoom(userID string, roomID string) error {
	r.calls = append(r.calls, call{op: "join", target: userID, room: roomID})
	return nil
}

func (r *recordingBroadcaster) LeaveRoom(userID string, roomID string) error {
	r.calls = append(r.calls, call{op: "leave", target: userID, room: roomID})
	return nil
}

func TestDispatch_OrdersRoomMembership(t *testing.T) {
	b := &recordingBroadcaster{}
	payload := json.RawMessage(`{}`)

	require.NoError(t, Dispatch(b, Delivery{Audience: AudienceUser, Recipient: "a", ConversationID: "c", Event: EventConversationNew, Payload: payload, JoinRoom: true}))
	require.NoError(t, Dispatch(b, Delivery{Audience: AudienceUser, Recipient: "b", ConversationID: "c", Event: EventConversationRemoved, Payload: payload, LeaveRoom: true}))
	require.NoError(t, Dispatch(b, Delivery{Audience: AudienceRoom, Recipient: "c", ConversationID: "c", Event: EventConversationPins, Payload: payload}))

	assert.Equal(t, []call{
		{op: "join", target: "a", room: "c"},
		{op: "user", target: "a", event: "conversation.new"},
		{op: "user", target: "b", event: "conversation.removed"},
		{op: "leave", target: "b", room: "c"},
		{op: "room", target: "c", event: "conversation.pins"},
	}, b.calls)
}

func TestDispatchAll_JoinsErrors(t *testing.T) {
	b := &recordingBroadcaster{fail: errors.New("down")}
	err := DispatchAll(b, []Delivery{
		{Audience: AudienceRoom, Recipient: "c", Event: EventMessageNew},
		{Audience: "bogus", Recipient: "c", Event: EventMessageNew},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	assert.Contains(t, err.Error(), "unknown audience")
}

type fakeQueue struct {
	tasks []qport.Task
	opts  []qport.EnqueueOption
	err   error
}

func (f *fakeQueue) Enqueue(ctx context.Context, t qport.Task, opts ...qport.EnqueueOption) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.tasks = append(f.tasks, t)
	f.opts = append(f.opts, opts...)
	return "task-1", nil
}

func (f *fakeQueue) Close() error { return nil }

func TestQueuePublisher(t *testing.T) {
	q := &fakeQueue{}
	p := NewQueuePublisher(q, "fanout", 3)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p.Now = func() time.Time { return now }
	p.StaleAfter = time.Minute

	require.NoError(t, p.Publish(context.Background(), nil))
	assert.Empty(t, q.tasks)

	deliveries := []Delivery{{Audience: AudienceRoom, Recipient: "c", ConversationID: "c", Event: EventMessageNew, Payload: json.RawMessage(`{"id":"m"}`)}}
	require.NoError(t, p.Publish(context.Background(), deliveries))
	require.Len(t, q.tasks, 1)
	assert.Equal(t, DeliverEventsTaskType, q.tasks[0].Type)
	assert.Equal(t, "fanout", q.opts[0].Queue)
	assert.Equal(t, 3, q.opts[0].MaxRetry)
	assert.Positive(t, q.opts[0].Timeout)

	var decoded DeliverEventsPayload
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload, &decoded))
	assert.Equal(t, deliveries, decoded.Deliveries)
	assert.True(t, decoded.ExpiresAt.Equal(now.Add(time.Minute)))
	assert.False(t, decoded.Expired(now.Add(59*time.Second)))
	assert.True(t, decoded.Expired(now.Add(61*time.Second)))
}

func TestDeliverEventsPayload_NoExpiryNeverExpires(t *testing.T) {
	assert.False(t, DeliverEventsPayload{}.Expired(time.Now().Add(24*time.Hour)))
}

func TestDispatchEach_CountsDelivered(t *testing.T) {
	b := &recordingBroadcaster{}
	n, err := DispatchEach(b, []Delivery{
		{Audience: AudienceRoom, Recipient: "c", Event: EventMessageNew},
		{Audience: "bogus", Recipient: "c", Event: EventMessageNew},
		{Audience: AudienceUser, Recipient: "a", ConversationID: "c", Event: EventConversationNew},
	})
	require.Error(t, err)
	assert.Equal(t, 2, n)
}

func TestFallbackPublisher(t *testing.T) {
	b := &recordingBroadcaster{}
	p := &FallbackPublisher{
		Primary:   NewQueuePublisher(&fakeQueue{err: errors.New("redis down")}, "fanout", 1),
		Secondary: NewDirectPublisher(b),
	}

	err := p.Publish(context.Background(), []Delivery{{Audience: AudienceRoom, Recipient: "c", Event: EventMessageNew}})
	require.NoError(t, err)
	assert.Len(t, b.calls, 1)
}
