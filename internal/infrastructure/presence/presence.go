package presence

import (
	"context"
	"time"

	"go-chatsync/internal/infrastructure/cache/port"
)

const (
	keyPrefix  = "presence:"
	DefaultTTL = 90 * time.Second
)

// Tracker records which users hold a live session. Entries expire on their
// own, so a node that dies without cleaning up stops reporting its users.
type Tracker struct {
	cache port.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewTracker(cache port.Cache, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{cache: cache, ttl: ttl, now: time.Now}
}

func key(userID string) string { return keyPrefix + userID }

// MarkOnline sets or refreshes the user's entry.
func (t *Tracker) MarkOnline(ctx context.Context, userID string) error {
	return t.cache.Set(ctx, key(userID), t.now().UTC().Format(time.RFC3339), t.ttl)
}

func (t *Tracker) MarkOffline(ctx context.Context, userID string) error {
	_, err := t.cache.Del(ctx, key(userID))
	return err
}

// OnlineUsers returns the subset of userIDs that are online. Duplicates are fine.
func (t *Tracker) OnlineUsers(ctx context.Context, userIDs []string) (map[string]bool, error) {
	online := make(map[string]bool, len(userIDs))
	if len(userIDs) == 0 {
		return online, nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = key(id)
	}
	entries, err := t.cache.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}
	for i, e := range entries {
		if e.OK && i < len(userIDs) {
			online[userIDs[i]] = true
		}
	}
	return online, nil
}
