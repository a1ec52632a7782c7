package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisConfig tunes the distributed lock.
type RedisConfig struct {
	Prefix     string
	TTL        time.Duration
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Redis is a SET NX PX lock shared by every process talking to the same Redis.
type Redis struct {
	client     redis.Cmdable
	prefix     string
	ttl        time.Duration
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewRedis builds a distributed locker.
func NewRedis(client redis.Cmdable, cfg RedisConfig) *Redis {
	if cfg.Prefix == "" {
		cfg.Prefix = "lock:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 25 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Redis{client: client, prefix: cfg.Prefix, ttl: cfg.TTL, retryDelay: cfg.RetryDelay, logger: cfg.Logger}
}

// Acquire polls SET NX until it wins or ctx is done. The lock expires after TTL if never released.
func (r *Redis) Acquire(ctx context.Context, key string) (Release, error) {
	if r == nil || r.client == nil {
		return func() {}, nil
	}
	fullKey := r.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.retryDelay)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Join(ErrNotAcquired, ctx.Err())
			}
			return nil, fmt.Errorf("redis lock %s: %w", fullKey, err)
		}
		if ok {
			break
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, errors.Join(ErrNotAcquired, ctx.Err())
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, r.client, []string{fullKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				r.logger.Warn("redis lock release failed", zap.String("key", fullKey), zap.Error(err))
			}
		})
	}, nil
}
