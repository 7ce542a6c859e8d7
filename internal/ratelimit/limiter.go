// Package ratelimit implements a token bucket shared through Redis, with an
// in-process fallback for single-instance deployments.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/creatorhub/platform-api/config"
)

// Decision is the outcome of taking one token.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// New returns a Redis-backed limiter when client is non-nil and a local one otherwise.
func New(cfg config.RateLimitConfig, client *redis.Client) Limiter {
	cfg = normalize(cfg)
	if client != nil {
		return NewRedisLimiter(cfg, client)
	}
	return NewLocalLimiter(cfg)
}

func normalize(cfg config.RateLimitConfig) config.RateLimitConfig {
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}
	return cfg
}

var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now_ms
end

local elapsed = math.max(0, now_ms - last_refill)
local intervals = math.floor(elapsed / interval_ms)
if intervals > 0 then
  tokens = math.min(capacity, tokens + intervals * refill_tokens)
  last_refill = last_refill + intervals * interval_ms
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

type RedisLimiter struct {
	cfg    config.RateLimitConfig
	client *redis.Client
	now    func() time.Time
}

func NewRedisLimiter(cfg config.RateLimitConfig, client *redis.Client) *RedisLimiter {
	return &RedisLimiter{cfg: normalize(cfg), client: client, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	args := []interface{}{
		l.now().UnixMilli(),
		l.cfg.Capacity,
		l.cfg.RefillTokens,
		l.cfg.RefillInterval.Milliseconds(),
		int64(l.cfg.TTL / time.Second),
	}
	vals, err := tokenBucket.Run(ctx, l.client, []string{key}, args...).Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(vals) != 3 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected result %v", vals)
	}
	return Decision{
		Allowed:    asInt64(vals[0]) == 1,
		Limit:      l.cfg.Capacity,
		Remaining:  int(asInt64(vals[1])),
		RetryAfter: time.Duration(asInt64(vals[2])) * time.Millisecond,
	}, nil
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// LocalLimiter keeps one rate.Limiter per key in memory.
type LocalLimiter struct {
	cfg   config.RateLimitConfig
	mu    sync.Mutex
	keys  map[string]*localEntry
	now   func() time.Time
	sweep time.Time
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLocalLimiter(cfg config.RateLimitConfig) *LocalLimiter {
	return &LocalLimiter{cfg: normalize(cfg), keys: make(map[string]*localEntry), now: time.Now}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evict(now)

	e, ok := l.keys[key]
	if !ok {
		every := rate.Every(l.cfg.RefillInterval / time.Duration(l.cfg.RefillTokens))
		e = &localEntry{limiter: rate.NewLimiter(every, l.cfg.Capacity)}
		l.keys[key] = e
	}
	e.lastSeen = now

	d := Decision{Limit: l.cfg.Capacity}
	r := e.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		d.RetryAfter = delay
	} else {
		d.Allowed = true
	}
	d.Remaining = int(e.limiter.TokensAt(now))
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	return d, nil
}

// evict drops idle keys at most once per TTL.
func (l *LocalLimiter) evict(now time.Time) {
	if now.Sub(l.sweep) < l.cfg.TTL {
		return
	}
	l.sweep = now
	for k, e := range l.keys {
		if now.Sub(e.lastSeen) > l.cfg.TTL {
			delete(l.keys, k)
		}
	}
}
