package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisLockTTL   = 30 * time.Second
	redisLockRetry = 50 * time.Millisecond
)

// releaseScript deletes the lock only when still held by this owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisKeyed implements Keyed on Redis SET NX, extending the exclusivity
// guarantee across service instances. The TTL bounds lock leakage if a
// holder dies mid-operation.
type RedisKeyed struct {
	client *redis.Client
	prefix string
}

// NewRedisKeyed builds a Redis-backed keyed lock.
func NewRedisKeyed(client *redis.Client, prefix string) *RedisKeyed {
	if prefix == "" {
		prefix = "lock:"
	}
	return &RedisKeyed{client: client, prefix: prefix}
}

// Acquire polls SET NX until the lock is taken or ctx is done.
func (r *RedisKeyed) Acquire(ctx context.Context, key string) (func(), error) {
	owner := uuid.NewString()
	full := r.prefix + key

	for {
		ok, err := r.client.SetNX(ctx, full, owner, redisLockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-time.After(redisLockRetry):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_, _ = releaseScript.Run(ctx, r.client, []string{full}, owner).Result()
		})
	}
	return release, nil
}
