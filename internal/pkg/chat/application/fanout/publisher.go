package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	qport "go-chatsync/internal/infrastructure/queue/port"
)

// Delivery is a fully resolved event ready for the broadcast collaborator.
type Delivery struct {
	Audience       Audience        `json:"audience"`
	Recipient      string          `json:"recipient"`
	ConversationID string          `json:"conversation_id"`
	Event          Event           `json:"event"`
	Payload        json.RawMessage `json:"payload"`
	JoinRoom       bool            `json:"join_room,omitempty"`
	LeaveRoom      bool            `json:"leave_room,omitempty"`
}

// Broadcaster is the transport contract: deliver to a user or to a room,
// and move a user's live sessions in or out of a room.
type Broadcaster interface {
	SendToUser(userID string, event string, payload []byte) error
	SendToRoom(roomID string, event string, payload []byte) error
	JoinRoom(userID string, roomID string) error
	LeaveRoom(userID string, roomID string) error
}

// Publisher hands deliveries off. It must not block on client acknowledgement.
type Publisher interface {
	Publish(ctx context.Context, deliveries []Delivery) error
}

// Dispatch applies one delivery to a broadcaster.
func Dispatch(b Broadcaster, d Delivery) error {
	switch d.Audience {
	case AudienceUser:
		if d.JoinRoom {
			if err := b.JoinRoom(d.Recipient, d.ConversationID); err != nil {
				return err
			}
		}
		if err := b.SendToUser(d.Recipient, string(d.Event), d.Payload); err != nil {
			return err
		}
		if d.LeaveRoom {
			return b.LeaveRoom(d.Recipient, d.ConversationID)
		}
		return nil
	case AudienceRoom:
		return b.SendToRoom(d.Recipient, string(d.Event), d.Payload)
	default:
		return fmt.Errorf("fanout: unknown audience %q", d.Audience)
	}
}

// DispatchAll applies every delivery and joins the failures.
func DispatchAll(b Broadcaster, deliveries []Delivery) error {
	_, err := DispatchEach(b, deliveries)
	return err
}

// DispatchEach applies every delivery and reports how many went through
// alongside the joined failures.
func DispatchEach(b Broadcaster, deliveries []Delivery) (delivered int, err error) {
	var errs []error
	for _, d := range deliveries {
		if err := Dispatch(b, d); err != nil {
			errs = append(errs, fmt.Errorf("%s to %s: %w", d.Event, d.Recipient, err))
			continue
		}
		delivered++
	}
	return delivered, errors.Join(errs...)
}

// ===================== Direct =====================

// DirectPublisher delivers in-process, straight to the broadcaster.
type DirectPublisher struct {
	B Broadcaster
}

func NewDirectPublisher(b Broadcaster) *DirectPublisher {
	return &DirectPublisher{B: b}
}

func (p *DirectPublisher) Publish(ctx context.Context, deliveries []Delivery) error {
	return DispatchAll(p.B, deliveries)
}

// ===================== Queue =====================

// DeliverEventsTaskType is the queue task carrying a batch of deliveries.
const DeliverEventsTaskType = "chat:deliver_events"

// DeliverEventsPayload is the JSON body of a DeliverEventsTaskType task.
// A batch still queued after ExpiresAt carries snapshots too old to show.
type DeliverEventsPayload struct {
	Deliveries []Delivery `json:"deliveries"`
	ExpiresAt  time.Time  `json:"expires_at,omitempty"`
}

// Expired reports whether the batch outlived its window at now.
func (p DeliverEventsPayload) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}

const (
	DefaultStaleAfter     = 30 * time.Second
	defaultDeliverTimeout = 10 * time.Second
)

// QueuePublisher enqueues deliveries so a worker performs them out of band.
type QueuePublisher struct {
	Q          qport.Client
	Queue      string
	MaxRetry   int
	StaleAfter time.Duration
	Now        func() time.Time
}

func NewQueuePublisher(client qport.Client, queue string, maxRetry int) *QueuePublisher {
	return &QueuePublisher{Q: client, Queue: queue, MaxRetry: maxRetry, StaleAfter: DefaultStaleAfter, Now: time.Now}
}

func (p *QueuePublisher) Publish(ctx context.Context, deliveries []Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	stale := p.StaleAfter
	if stale <= 0 {
		stale = DefaultStaleAfter
	}
	b, err := json.Marshal(DeliverEventsPayload{Deliveries: deliveries, ExpiresAt: now().Add(stale).UTC()})
	if err != nil {
		return fmt.Errorf("fanout: encode deliveries: %w", err)
	}
	opts := qport.EnqueueOption{
		Queue:     p.Queue,
		MaxRetry:  p.MaxRetry,
		Timeout:   defaultDeliverTimeout,
		Retention: time.Minute,
	}
	_, err = p.Q.Enqueue(ctx, qport.Task{Type: DeliverEventsTaskType, Payload: b}, opts)
	return err
}

// ===================== Fallback =====================

// FallbackPublisher tries Primary and, when it fails, delivers through Secondary.
type FallbackPublisher struct {
	Primary   Publisher
	Secondary Publisher
	Log       *zap.Logger
}

func (p *FallbackPublisher) Publish(ctx context.Context, deliveries []Delivery) error {
	err := p.Primary.Publish(ctx, deliveries)
	if err == nil {
		return nil
	}
	if p.Log != nil {
		p.Log.Warn("primary publisher failed, delivering directly", zap.Error(err), zap.Int("deliveries", len(deliveries)))
	}
	return p.Secondary.Publish(ctx, deliveries)
}
