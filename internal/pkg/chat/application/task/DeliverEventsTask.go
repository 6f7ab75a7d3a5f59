package task

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	qport "go-chatsync/internal/infrastructure/queue/port"
	"go-chatsync/internal/pkg/chat/application/fanout"
)

// RegisterDeliverEventsTask binds the fan-out worker to srv. Each task carries
// deliveries that were resolved at commit time; the worker only pushes them
// through the broadcaster.
func RegisterDeliverEventsTask(srv qport.Server, b fanout.Broadcaster, log *zap.Logger) {
	srv.Register(fanout.DeliverEventsTaskType, DeliverEventsHandler(b, log))
}

// DeliverEventsHandler decodes a batch and dispatches it. Malformed and
// expired batches are dropped. A batch is retried only when none of its
// deliveries went through; after a partial failure a retry would repeat
// events for the recipients that already got them, so it is logged instead.
func DeliverEventsHandler(b fanout.Broadcaster, log *zap.Logger) qport.Handler {
	return deliverEvents(b, log, time.Now)
}

func deliverEvents(b fanout.Broadcaster, log *zap.Logger, now func() time.Time) qport.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, t qport.Task) error {
		var p fanout.DeliverEventsPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			log.Error("dropping malformed delivery batch", zap.String("type", t.Type), zap.Error(err))
			return nil
		}
		if p.Expired(now()) {
			log.Warn("dropping stale delivery batch",
				zap.Time("expires_at", p.ExpiresAt),
				zap.Int("deliveries", len(p.Deliveries)))
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		delivered, err := fanout.DispatchEach(b, p.Deliveries)
		if err == nil {
			return nil
		}
		if delivered == 0 {
			return err
		}
		log.Warn("delivery batch partially failed",
			zap.Int("delivered", delivered),
			zap.Int("deliveries", len(p.Deliveries)),
			zap.Error(err))
		return nil
	}
}
