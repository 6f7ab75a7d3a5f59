package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"go-chatsync/internal/infrastructure/metrics"
	"go-chatsync/internal/pkg/chat/application/fanout"
)

const defaultNotifyTimeout = 5 * time.Second

// Notifier resolves the fan-out plan of a committed mutation into deliveries
// and hands them to the publisher. It runs after commit on a context detached
// from the request; failures are logged and never reach the caller.
type Notifier struct {
	Aggregator *ConversationAggregator
	Publisher  fanout.Publisher
	Log        *zap.Logger
	Timeout    time.Duration
}

func NewNotifier(aggregator *ConversationAggregator, publisher fanout.Publisher, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{Aggregator: aggregator, Publisher: publisher, Log: log, Timeout: defaultNotifyTimeout}
}

type removalPayload struct {
	ConversationID string `json:"conversation_id"`
}

func (n *Notifier) Notify(ctx context.Context, m fanout.Mutation) {
	if n == nil || n.Publisher == nil {
		return
	}
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	intents := fanout.Plan(m)
	deliveries := make([]fanout.Delivery, 0, len(intents))
	for _, in := range intents {
		payload, err := n.payload(ctx, m, in)
		if err != nil {
			n.Log.Warn("fan-out payload skipped",
				zap.String("event", string(in.Event)),
				zap.String("recipient", in.Recipient),
				zap.String("conversation_id", m.ConversationID),
				zap.Error(err))
			metrics.ObserveDelivery(string(in.Event), "skipped")
			continue
		}
		deliveries = append(deliveries, fanout.Delivery{
			Audience:       in.Audience,
			Recipient:      in.Recipient,
			ConversationID: m.ConversationID,
			Event:          in.Event,
			Payload:        payload,
			JoinRoom:       in.JoinRoom,
			LeaveRoom:      in.LeaveRoom,
		})
	}
	if len(deliveries) == 0 {
		return
	}

	outcome := "published"
	if err := n.Publisher.Publish(ctx, deliveries); err != nil {
		outcome = "failed"
		n.Log.Error("fan-out publish failed",
			zap.String("mutation", string(m.Kind)),
			zap.String("conversation_id", m.ConversationID),
			zap.Int("deliveries", len(deliveries)),
			zap.Error(err))
	}
	for _, d := range deliveries {
		metrics.ObserveDelivery(string(d.Event), outcome)
	}
}

func (n *Notifier) payload(ctx context.Context, m fanout.Mutation, in fanout.Intent) (json.RawMessage, error) {
	switch in.Payload {
	case fanout.PayloadSnapshot:
		if n.Aggregator == nil {
			return nil, errors.New("no aggregator for snapshot")
		}
		view, err := n.Aggregator.Detail(ctx, m.ConversationID, in.Recipient)
		if err != nil {
			return nil, err
		}
		return json.Marshal(view)
	case fanout.PayloadRemoval:
		return json.Marshal(removalPayload{ConversationID: m.ConversationID})
	default:
		return json.Marshal(m.Data)
	}
}
