package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLocalSerializesSameKey(t *testing.T) {
	l := NewLocal()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "student-1|2024-05-01")
			if !assert.NoError(t, err) {
				return
			}
			defer release()
			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, l.Len())
}

func TestLocalDifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	releaseA, err := l.Acquire(context.Background(), "a")
	require.NoError(t, err)
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	releaseB, err := l.Acquire(ctx, "b")
	require.NoError(t, err)
	releaseB()
}

func TestLocalAcquireHonoursContext(t *testing.T) {
	l := NewLocal()
	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotAcquired))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	release()
	release()
	assert.Equal(t, 0, l.Len())
}

type failingLocker struct{ err error }

func (f failingLocker) Acquire(context.Context, string) (Release, error) { return nil, f.err }

func TestChainReleasesOnFailure(t *testing.T) {
	local := NewLocal()
	chain := Chain{local, failingLocker{err: errors.New("redis down")}}

	_, err := chain.Acquire(context.Background(), "k")
	require.EqualError(t, err, "redis down")
	assert.Equal(t, 0, local.Len())
}

func TestChainSkipsNilLockers(t *testing.T) {
	local := NewLocal()
	release, err := Chain{local, nil}.Acquire(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, 1, local.Len())
	release()
	assert.Equal(t, 0, local.Len())
}

func TestNilRedisLockerIsNoop(t *testing.T) {
	var r *Redis
	release, err := r.Acquire(context.Background(), "k")
	require.NoError(t, err)
	release()
}
