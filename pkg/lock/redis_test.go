package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRedis grants every SET NX and counts release script calls.
type countingRedis struct {
	redis.Cmdable
	evals atomic.Int32
}

func (c *countingRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func (c *countingRedis) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	c.evals.Add(1)
	return redis.NewCmdResult(int64(1), nil)
}

func TestRedisReleaseRunsOnce(t *testing.T) {
	client := &countingRedis{}
	locker := NewRedis(client, RedisConfig{Prefix: "test:", TTL: time.Second})

	release, err := locker.Acquire(context.Background(), "attendance:1:2024-05-01")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release()
		}()
	}
	wg.Wait()
	release()

	assert.Equal(t, int32(1), client.evals.Load())
}
