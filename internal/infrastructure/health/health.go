package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusDisabled     = "disabled"
)

type Status struct {
	Database string `json:"database"`
	Cache    string `json:"cache"`
	NATS     string `json:"nats"`
}

func (s Status) Healthy() bool {
	for _, v := range []string{s.Database, s.Cache, s.NATS} {
		if v == StatusDisconnected {
			return false
		}
	}
	return true
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type ConnState interface {
	IsConnected() bool
}

// Checker probes the backing services. A nil dependency is reported as
// disabled and does not count against health.
type Checker struct {
	db    Pinger
	cache Pinger
	nats  ConnState
}

func NewChecker(db Pinger, cache Pinger, nats ConnState) *Checker {
	return &Checker{db: db, cache: cache, nats: nats}
}

func (h *Checker) Check(ctx context.Context) Status {
	return Status{
		Database: ping(ctx, h.db),
		Cache:    ping(ctx, h.cache),
		NATS:     connState(h.nats),
	}
}

func ping(ctx context.Context, p Pinger) string {
	if p == nil {
		return StatusDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return StatusDisconnected
	}
	return StatusConnected
}

func connState(c ConnState) string {
	if c == nil {
		return StatusDisabled
	}
	if c.IsConnected() {
		return StatusConnected
	}
	return StatusDisconnected
}

// Handler serves the status, 503 when any enabled dependency is down.
func (h *Checker) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		status := h.Check(c.Request.Context())
		code := http.StatusOK
		if !status.Healthy() {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	}
}
