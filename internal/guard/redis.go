package guard

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

const redisTimeout = 2 * time.Second

// RedisLimiter shares counters across server instances. When redis is unreachable it
// degrades to a local in-memory window.
type RedisLimiter struct {
	Client   *redis.Client
	Limit    int
	Window   time.Duration
	Prefix   string
	Fallback *InMemoryLimiter
}

func NewRedis(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	fallback := NewInMemory(limit, window)
	return &RedisLimiter{
		Client:   client,
		Limit:    fallback.limit,
		Window:   fallback.window,
		Prefix:   "gate:rl:",
		Fallback: fallback,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) Decision {
	if l.Client == nil {
		return l.Fallback.Allow(ctx, key)
	}

	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	res, err := rateLimitScript.Run(ctx, l.Client, []string{l.Prefix + key}, l.Window.Milliseconds()).Result()
	if err != nil {
		log.Printf("rate limiter: redis unavailable, using local window: %v", err)
		return l.Fallback.Allow(ctx, key)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		return l.Fallback.Allow(ctx, key)
	}

	count, _ := vals[0].(int64)
	ttlMs, _ := vals[1].(int64)
	if ttlMs < 0 {
		ttlMs = l.Window.Milliseconds()
	}
	return decide(int(count), l.Limit, time.Now().UTC().Add(time.Duration(ttlMs)*time.Millisecond))
}
