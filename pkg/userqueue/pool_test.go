package userqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStartedPool(t *testing.T, workers, queue int) *Pool {
	t.Helper()
	pool := NewPool(workers, queue)
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)
	return pool
}

func TestPool_DoReturnsHandlerResult(t *testing.T) {
	pool := newStartedPool(t, 2, 10)

	err := pool.Do(context.Background(), "ann", func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	boom := errors.New("boom")
	err = pool.Do(context.Background(), "ann", func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

// blockWorker occupies the worker owning key until the returned func is called.
func blockWorker(t *testing.T, pool *Pool, key string) func() {
	t.Helper()
	release := make(chan struct{})
	go func() {
		_ = pool.Do(context.Background(), key, func(ctx context.Context) error {
			<-release
			return nil
		})
	}()
	require.Eventually(t, func() bool { return pool.GetStats().ActiveWorkers == 1 }, time.Second, time.Millisecond)

	var once sync.Once
	return func() { once.Do(func() { close(release) }) }
}

func TestPool_SameKeySequentialProcessing(t *testing.T) {
	pool := newStartedPool(t, 4, 100)
	release := blockWorker(t, pool, "ann")
	defer release()

	var mu sync.Mutex
	var results []int
	var wg sync.WaitGroup

	for i := 1; i <= 5; i++ {
		val := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.Do(context.Background(), "ann", func(ctx context.Context) error {
				mu.Lock()
				results = append(results, val)
				mu.Unlock()
				return nil
			})
		}()
		// Enqueue strictly one after another.
		want := int64(i + 1)
		require.Eventually(t, func() bool { return pool.GetStats().TotalDispatched == want }, time.Second, time.Millisecond)
	}
	release()
	wg.Wait()

	assert.Equal(t, []int{1, 2, 3, 4, 5}, results)
}

func TestPool_ConcurrentDoNeverOverlapsForOneKey(t *testing.T) {
	pool := newStartedPool(t, 4, 100)

	var inFlight, maxInFlight int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.Do(context.Background(), "ann", func(ctx context.Context) error {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					old := atomic.LoadInt32(&maxInFlight)
					if n <= old || atomic.CompareAndSwapInt32(&maxInFlight, old, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
	assert.Equal(t, int64(20), pool.GetStats().TotalProcessed)
}

func TestPool_PanicIsRecovered(t *testing.T) {
	pool := newStartedPool(t, 1, 10)

	err := pool.Do(context.Background(), "ann", func(ctx context.Context) error { panic("kaboom") })
	assert.Error(t, err)

	err = pool.Do(context.Background(), "ann", func(ctx context.Context) error { return nil })
	assert.NoError(t, err, "worker must survive a panicking job")
	assert.Equal(t, int64(1), pool.GetStats().TotalErrors)
}

func TestPool_DoRespectsContext(t *testing.T) {
	pool := newStartedPool(t, 1, 10)

	release := make(chan struct{})
	go func() {
		_ = pool.Do(context.Background(), "ann", func(ctx context.Context) error {
			<-release
			return nil
		})
	}()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := pool.Do(ctx, "ann", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPool_StoppedRejectsWork(t *testing.T) {
	pool := NewPool(2, 10)
	err := pool.Do(context.Background(), "ann", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrStopped, "pool not started")

	pool.Start(context.Background())
	pool.Stop()

	err = pool.Do(context.Background(), "ann", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrStopped)
	assert.Equal(t, int64(2), pool.GetStats().TotalDropped)
}

func TestPool_StopDrainsQueuedJobs(t *testing.T) {
	pool := NewPool(1, 10)
	pool.Start(context.Background())
	release := blockWorker(t, pool, "ann")

	var processed int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.Do(context.Background(), "ann", func(ctx context.Context) error {
				atomic.AddInt32(&processed, 1)
				return nil
			})
		}()
	}
	require.Eventually(t, func() bool { return pool.GetStats().TotalDispatched == 6 }, time.Second, time.Millisecond)

	release()
	pool.Stop()
	wg.Wait()

	assert.Equal(t, int32(5), atomic.LoadInt32(&processed))
}
