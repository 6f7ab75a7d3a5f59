package port

import (
	"context"
	"time"
)

// Task is one unit of background work. Payload is opaque to the queue; the
// producer and the registered handler agree on its encoding.
type Task struct {
	Type    string
	Payload []byte
}

// Handler runs a task. A non-nil error schedules a retry until MaxRetry is
// spent, so handlers return nil for work that cannot succeed later.
type Handler func(ctx context.Context, task Task) error

// EnqueueOption tunes a single enqueue. Zero fields fall back to the
// backend's defaults.
type EnqueueOption struct {
	Queue     string        // named queue, weighted by the worker
	MaxRetry  int           // retries after the first attempt
	Timeout   time.Duration // limit for one processing attempt
	Retention time.Duration // how long a completed task stays inspectable
}

type Client interface {
	Enqueue(ctx context.Context, t Task, opts ...EnqueueOption) (id string, err error)
	Close() error
}

// Server dispatches dequeued tasks to handlers by type. Run blocks until ctx
// ends or Stop is called.
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
}
