package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	lockKeyPrefix     = "lock:product:"
	idempotencyKeyTTL = 24 * time.Hour
	lockTTL           = 10 * time.Second
	lockRetryInterval = 20 * time.Millisecond
	lockReleaseWait   = time.Second
)

var releaseLockScript = redis.NewScript(`
local key = KEYS[1]
local token = ARGV[1]

if redis.call('GET', key) == token then
	return redis.call('DEL', key)
end

return 0
`)

var extendLockScript = redis.NewScript(`
local key = KEYS[1]
local token = ARGV[1]
local ttl = ARGV[2]

if redis.call('GET', key) == token then
	return redis.call('PEXPIRE', key, ttl)
end

return 0
`)

// RedisAdapter provides idempotency keys and a per-product lock shared by
// every server instance.
type RedisAdapter struct {
	client  *redis.Client
	lockTTL time.Duration
	log     *zap.Logger
}

func NewRedisAdapter(client *redis.Client, log *zap.Logger) *RedisAdapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisAdapter{client: client, lockTTL: lockTTL, log: log}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, storeErr("set idempotency key", err)
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return storeErr("release idempotency key", err)
	}
	return nil
}

// Lock takes the product lock with SET NX PX, polling until it is free or ctx
// is done. While held the TTL is extended every third of its length, so a
// slow store call keeps the lock; if the holder dies the key still expires.
func (r *RedisAdapter) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := lockKeyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, lockKey, token, r.lockTTL).Result()
		if err != nil {
			return nil, storeErr("acquire lock", err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(lockRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(lockKey, token, stop, done)

	return func() {
		close(stop)
		<-done

		// The caller's context may already be cancelled by the time it unlocks.
		ctx, cancel := context.WithTimeout(context.Background(), lockReleaseWait)
		defer cancel()
		if err := releaseLockScript.Run(ctx, r.client, []string{lockKey}, token).Err(); err != nil {
			r.log.Warn("release lock failed, key will expire on its own",
				zap.String("key", lockKey), zap.Duration("ttl", r.lockTTL), zap.Error(err))
		}
	}, nil
}

func (r *RedisAdapter) keepAlive(lockKey, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.lockTTL / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), lockReleaseWait)
		n, err := extendLockScript.Run(ctx, r.client, []string{lockKey}, token, r.lockTTL.Milliseconds()).Int()
		cancel()
		switch {
		case err != nil:
			r.log.Warn("extend lock failed", zap.String("key", lockKey), zap.Error(err))
		case n == 0:
			r.log.Warn("lock lost before release", zap.String("key", lockKey))
			return
		}
	}
}
