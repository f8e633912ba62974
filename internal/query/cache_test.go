package query

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

func constFetcher(v int, calls *atomic.Int32) Fetcher[int] {
	return func(ctx context.Context) (int, error) {
		calls.Add(1)
		return v, nil
	}
}

func TestCache_FetchReadsThrough(t *testing.T) {
	c := New[int](16, time.Minute)
	var calls atomic.Int32

	v, err := c.Fetch(context.Background(), "a", constFetcher(7, &calls))
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	v, err = c.Fetch(context.Background(), "a", constFetcher(8, &calls))
	require.NoError(t, err)
	assert.Equal(t, 7, v, "second fetch served from cache")
	assert.Equal(t, int32(1), calls.Load())

	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 7, got)
}

func TestCache_FetchErrorNotCached(t *testing.T) {
	c := New[int](16, time.Minute)
	boom := errors.New("boom")

	_, err := c.Fetch(context.Background(), "a", func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCache_ConcurrentFetchesShareOneCall(t *testing.T) {
	c := New[int](16, time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})

	fn := func(ctx context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Fetch(context.Background(), "k", fn)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestCache_CancelDiscardsInFlightResult(t *testing.T) {
	c := New[int](16, time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Fetch(context.Background(), "k", func(ctx context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
		errCh <- err
	}()

	<-started
	c.Cancel("k")
	c.Set("k", 99)
	close(release)

	assert.ErrorIs(t, <-errCh, ErrCanceled)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 99, v, "stale read must not overwrite the later write")
}

func TestCache_CancelPropagatesToFetcherContext(t *testing.T) {
	c := New[int](16, time.Minute)
	started := make(chan struct{})

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Fetch(context.Background(), "k", func(ctx context.Context) (int, error) {
			close(started)
			<-ctx.Done()
			return 0, ctx.Err()
		})
		errCh <- err
	}()

	<-started
	c.Cancel("k")
	assert.ErrorIs(t, <-errCh, ErrCanceled)
}

func TestCache_CallerContextOnlyStopsWaiting(t *testing.T) {
	c := New[int](16, time.Minute)
	release := make(chan struct{})
	var calls atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Fetch(ctx, "k", func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 5, nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	assert.Eventually(t, func() bool {
		v, ok := c.Get("k")
		return ok && v == 5
	}, time.Second, time.Millisecond)
}

func TestCache_Invalidate(t *testing.T) {
	c := New[int](16, time.Minute)
	var calls atomic.Int32
	c.Set("k", 1)

	c.Invalidate("k")
	_, ok := c.Get("k")
	assert.False(t, ok)

	v, err := c.Fetch(context.Background(), "k", constFetcher(2, &calls))
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCache_StaleEntryRefetched(t *testing.T) {
	c := New[int](16, 20*time.Millisecond)
	var calls atomic.Int32
	c.Set("k", 1)

	time.Sleep(40 * time.Millisecond)
	v, err := c.Fetch(context.Background(), "k", constFetcher(2, &calls))
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestCache_KeysIndependent(t *testing.T) {
	c := New[int](16, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Invalidate("a")

	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}
