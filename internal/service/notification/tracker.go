// internal/service/notification/tracker.go
package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// NearFrontTracker remembers which entries already got the near-front message.
type NearFrontTracker interface {
	// MarkNotified records the flag and reports whether it was newly set.
	MarkNotified(ctx context.Context, entryID string) (bool, error)
	Forget(ctx context.Context, entryID string) error
}

var (
	_ NearFrontTracker = (*MemoryTracker)(nil)
	_ NearFrontTracker = (*RedisTracker)(nil)
)

type MemoryTracker struct {
	mu       sync.Mutex
	notified map[string]struct{}
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{notified: make(map[string]struct{})}
}

func (t *MemoryTracker) MarkNotified(_ context.Context, entryID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.notified[entryID]; ok {
		return false, nil
	}
	t.notified[entryID] = struct{}{}
	return true, nil
}

func (t *MemoryTracker) Forget(_ context.Context, entryID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.notified, entryID)
	return nil
}

// DefaultTrackerTTL bounds how long a flag outlives an entry that was never cleaned up.
const DefaultTrackerTTL = 24 * time.Hour

// RedisTracker keeps flags in redis so they survive restarts and are shared
// between instances.
type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTracker(client *redis.Client, ttl time.Duration) *RedisTracker {
	if ttl <= 0 {
		ttl = DefaultTrackerTTL
	}
	return &RedisTracker{client: client, ttl: ttl}
}

func (t *RedisTracker) MarkNotified(ctx context.Context, entryID string) (bool, error) {
	ok, err := t.client.SetNX(ctx, nearFrontKey(entryID), "1", t.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set near-front flag: %w", err)
	}
	return ok, nil
}

func (t *RedisTracker) Forget(ctx context.Context, entryID string) error {
	if err := t.client.Del(ctx, nearFrontKey(entryID)).Err(); err != nil {
		return fmt.Errorf("failed to clear near-front flag: %w", err)
	}
	return nil
}

func nearFrontKey(entryID string) string {
	return "queue:nearfront:" + entryID
}
