package pubsub

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Local is the node-local broadcaster the relay drives.
type Local interface {
	SendToUser(userID string, event string, payload []byte) error
	SendToRoom(roomID string, event string, payload []byte) error
	JoinRoom(userID string, roomID string) error
	LeaveRoom(userID string, roomID string) error
}

type op string

const (
	opUser  op = "user"
	opRoom  op = "room"
	opJoin  op = "join"
	opLeave op = "leave"
)

// envelope is one broadcaster call on the wire.
type envelope struct {
	Op      op              `json:"op"`
	Target  string          `json:"target"`
	Room    string          `json:"room,omitempty"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Relay makes the broadcaster cluster-wide: every call is published on a
// subject that all nodes, the publisher included, subscribe to and replay
// against their local router. Users are reached wherever their session lives.
type Relay struct {
	subject string
	local   Local
	log     *zap.Logger
	publish func(subject string, data []byte) error
	sub     *nats.Subscription
}

func NewRelay(client *Client, subject string, local Local, log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{
		subject: subject,
		local:   local,
		log:     log.Named("relay"),
		publish: client.Conn().Publish,
	}
}

// Start subscribes to the relay subject.
func (r *Relay) Start(client *Client) error {
	sub, err := client.Conn().Subscribe(r.subject, func(msg *nats.Msg) {
		if err := r.apply(msg.Data); err != nil {
			r.log.Warn("relay apply failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("pubsub: subscribe %s: %w", r.subject, err)
	}
	r.sub = sub
	return nil
}

func (r *Relay) Stop() error {
	if r.sub == nil {
		return nil
	}
	return r.sub.Unsubscribe()
}

func (r *Relay) SendToUser(userID string, event string, payload []byte) error {
	return r.send(envelope{Op: opUser, Target: userID, Event: event, Payload: payload})
}

func (r *Relay) SendToRoom(roomID string, event string, payload []byte) error {
	return r.send(envelope{Op: opRoom, Target: roomID, Event: event, Payload: payload})
}

func (r *Relay) JoinRoom(userID string, roomID string) error {
	return r.send(envelope{Op: opJoin, Target: userID, Room: roomID})
}

func (r *Relay) LeaveRoom(userID string, roomID string) error {
	return r.send(envelope{Op: opLeave, Target: userID, Room: roomID})
}

func (r *Relay) send(e envelope) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.publish(r.subject, b)
}

func (r *Relay) apply(data []byte) error {
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return fmt.Errorf("pubsub: decode envelope: %w", err)
	}
	switch e.Op {
	case opUser:
		return r.local.SendToUser(e.Target, e.Event, e.Payload)
	case opRoom:
		return r.local.SendToRoom(e.Target, e.Event, e.Payload)
	case opJoin:
		return r.local.JoinRoom(e.Target, e.Room)
	case opLeave:
		return r.local.LeaveRoom(e.Target, e.Room)
	default:
		return fmt.Errorf("pubsub: unknown op %q", e.Op)
	}
}
