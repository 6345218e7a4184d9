package guard

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReplayGuard reports whether a key was already seen within its window. Forget drops a
// key so the next Seen reports a first sighting.
type ReplayGuard interface {
	Seen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

type InMemoryReplay struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
	now    func() time.Time
}

func NewInMemoryReplay(window time.Duration) *InMemoryReplay {
	return &InMemoryReplay{
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

func (r *InMemoryReplay) Seen(_ context.Context, key string) (bool, error) {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	for k, until := range r.seen {
		if !now.Before(until) {
			delete(r.seen, k)
		}
	}
	if _, ok := r.seen[key]; ok {
		return true, nil
	}
	r.seen[key] = now.Add(r.window)
	return false, nil
}

func (r *InMemoryReplay) Forget(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.seen, key)
	r.mu.Unlock()
	return nil
}

// RedisReplay records keys with SET NX so the first caller in the window wins.
type RedisReplay struct {
	Client *redis.Client
	Window time.Duration
	Prefix string
}

func NewRedisReplay(client *redis.Client, window time.Duration) *RedisReplay {
	return &RedisReplay{Client: client, Window: window, Prefix: "gate:replay:"}
}

func (r *RedisReplay) Seen(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	ok, err := r.Client.SetNX(ctx, r.Prefix+key, "1", r.Window).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (r *RedisReplay) Forget(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	return r.Client.Del(ctx, r.Prefix+key).Err()
}
