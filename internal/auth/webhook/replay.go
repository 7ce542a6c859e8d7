package webhook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultReplayTTL covers the sender's retry window.
const DefaultReplayTTL = 24 * time.Hour

// ReplayGuard records delivery ids. First reports whether id has not been seen.
type ReplayGuard interface {
	First(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

type RedisReplayGuard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisReplayGuard(client *redis.Client, prefix string, ttl time.Duration) *RedisReplayGuard {
	if prefix == "" {
		prefix = "webhook"
	}
	if ttl <= 0 {
		ttl = DefaultReplayTTL
	}
	return &RedisReplayGuard{client: client, prefix: prefix, ttl: ttl}
}

func (g *RedisReplayGuard) key(id string) string {
	return fmt.Sprintf("%s:seen:%s", g.prefix, id)
}

func (g *RedisReplayGuard) First(ctx context.Context, id string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.key(id), time.Now().Unix(), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("replay guard: %w", err)
	}
	return ok, nil
}

// Forget releases an id so a failed delivery can be retried by the sender.
func (g *RedisReplayGuard) Forget(ctx context.Context, id string) error {
	if err := g.client.Del(ctx, g.key(id)).Err(); err != nil {
		return fmt.Errorf("replay guard: %w", err)
	}
	return nil
}

// MemoryReplayGuard is used when Redis is not configured.
type MemoryReplayGuard struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryReplayGuard(ttl time.Duration) *MemoryReplayGuard {
	if ttl <= 0 {
		ttl = DefaultReplayTTL
	}
	return &MemoryReplayGuard{ttl: ttl, seen: make(map[string]time.Time), now: time.Now}
}

func (g *MemoryReplayGuard) First(_ context.Context, id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	for k, exp := range g.seen {
		if now.After(exp) {
			delete(g.seen, k)
		}
	}
	if _, ok := g.seen[id]; ok {
		return false, nil
	}
	g.seen[id] = now.Add(g.ttl)
	return true, nil
}

func (g *MemoryReplayGuard) Forget(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, id)
	return nil
}
