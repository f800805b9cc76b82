package querycache

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

type clock struct {
	now   time.Time
	mutex sync.Mutex
}

func (c *clock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now = c.now.Add(d)
}

type listFilters struct {
	Status string `json:"status,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

func TestKeyEquality(t *testing.T) {
	a := Key{"licensing", "modules", "list", listFilters{Status: "active", Limit: 10}}
	b := Key{"licensing", "modules", "list", listFilters{Status: "active", Limit: 10}}
	c := Key{"licensing", "modules", "list", listFilters{Status: "inactive", Limit: 10}}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, Key{"x", map[string]int{"b": 1, "a": 2}}.Equal(Key{"x", map[string]int{"a": 2, "b": 1}}))

	assert.True(t, a.HasPrefix(Key{"licensing", "modules"}))
	assert.True(t, a.HasPrefix(a))
	assert.False(t, a.HasPrefix(Key{"licensing", "quotas"}))
	assert.False(t, Key{"licensing"}.HasPrefix(a))
}

func TestFetchCachesWhileFresh(t *testing.T) {
	now := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := New(Opts{Namespace: "test", Now: now.Now})
	ctx := context.Background()
	var calls atomic.Int32
	fetcher := func(context.Context) (int, error) { return int(calls.Add(1)), nil }
	key := Key{"numbers"}

	value, err := Fetch(ctx, cache, key, time.Minute, fetcher)
	require.NoError(t, err)
	assert.Equal(t, 1, value)
	value, err = Fetch(ctx, cache, key, time.Minute, fetcher)
	require.NoError(t, err)
	assert.Equal(t, 1, value)

	now.Advance(time.Minute)
	value, err = Fetch(ctx, cache, key, time.Minute, fetcher)
	require.NoError(t, err)
	assert.Equal(t, 2, value)
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	cache := New(Opts{})
	ctx := context.Background()
	_, err := Fetch(ctx, cache, Key{"broken"}, time.Minute, func(context.Context) (string, error) {
		return "", errors.New("backend down")
	})
	require.Error(t, err)
	_, ok := cache.Get(Key{"broken"})
	assert.False(t, ok)

	_, err = cache.Fetch(ctx, Key{}, time.Minute, func(context.Context) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrorEmptyKey)
}

func TestFetchDeduplicatesConcurrentCalls(t *testing.T) {
	cache := New(Opts{})
	release := make(chan struct{})
	var calls atomic.Int32
	fetcher := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "done", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := Fetch(context.Background(), cache, Key{"slow"}, time.Minute, fetcher)
			assert.NoError(t, err)
			assert.Equal(t, "done", value)
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvalidateAndRefetchHierarchy(t *testing.T) {
	cache := New(Opts{})
	ctx := context.Background()
	var listCalls, detailCalls, quotaCalls atomic.Int32
	listKey := Key{"licensing", "modules", "list", listFilters{}}
	detailKey := Key{"licensing", "modules", "detail", "m1"}
	quotaKey := Key{"licensing", "quotas", "list", listFilters{}}

	fetch := func(key Key, counter *atomic.Int32) {
		_, err := Fetch(ctx, cache, key, time.Hour, func(context.Context) (int32, error) { return counter.Add(1), nil })
		require.NoError(t, err)
	}
	fetch(listKey, &listCalls)
	fetch(detailKey, &detailCalls)
	fetch(quotaKey, &quotaCalls)

	invalidated := cache.Invalidate(Key{"licensing", "modules"})
	assert.Len(t, invalidated, 2)

	require.NoError(t, cache.Refetch(ctx, Key{"licensing"}))
	assert.Equal(t, int32(2), listCalls.Load())
	assert.Equal(t, int32(2), detailCalls.Load())
	assert.Equal(t, int32(1), quotaCalls.Load())

	value, ok := cache.Get(listKey)
	require.True(t, ok)
	assert.Equal(t, int32(2), value)

	require.NoError(t, cache.Refetch(ctx, Key{"licensing"}), "nothing left stale")
	assert.Equal(t, int32(2), listCalls.Load())
}

func TestMutateInvalidatesOnlyOnSuccess(t *testing.T) {
	cache := New(Opts{})
	ctx := context.Background()
	items := []string{"a", "b"}
	var mutex sync.Mutex
	list := func(context.Context) ([]string, error) {
		mutex.Lock()
		defer mutex.Unlock()
		return append([]string(nil), items...), nil
	}
	key := Key{"users", "list"}

	got, err := Fetch(ctx, cache, key, time.Hour, list)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	err = cache.Mutate(ctx, func(context.Context) error { return errors.New("rejected") }, Key{"users"})
	require.Error(t, err)
	assert.Empty(t, staleKeys(cache))

	require.NoError(t, cache.Mutate(ctx, func(context.Context) error {
		mutex.Lock()
		defer mutex.Unlock()
		items = items[1:]
		return nil
	}, Key{"users"}))

	require.NoError(t, cache.Refetch(ctx, Key{"users"}))
	got, err = Fetch(ctx, cache, key, time.Hour, list)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, got)
}

func TestRefetchIgnoresFetchStartedBeforeMutation(t *testing.T) {
	cache := New(Opts{})
	ctx := context.Background()
	key := Key{"users", "list"}
	var state atomic.Int32
	state.Store(1)
	var blockNext atomic.Bool
	blocked := make(chan struct{})
	release := make(chan struct{})
	fetcher := func(context.Context) (int32, error) {
		value := state.Load()
		if blockNext.CompareAndSwap(true, false) {
			close(blocked)
			<-release
		}
		return value, nil
	}

	_, err := Fetch(ctx, cache, key, time.Hour, fetcher)
	require.NoError(t, err)
	cache.Invalidate(key)

	blockNext.Store(true)
	earlier := make(chan int32, 1)
	go func() {
		value, err := Fetch(ctx, cache, key, time.Hour, fetcher)
		assert.NoError(t, err)
		earlier <- value
	}()
	<-blocked

	require.NoError(t, cache.Mutate(ctx, func(context.Context) error {
		state.Store(2)
		return nil
	}, Key{"users"}))
	require.NoError(t, cache.Refetch(ctx, Key{"users"}))
	close(release)
	assert.Equal(t, int32(1), <-earlier)

	value, err := Fetch(ctx, cache, key, time.Hour, fetcher)
	require.NoError(t, err)
	assert.Equal(t, int32(2), value)
	cached, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, int32(2), cached)
}

func TestFetchCancelledCallerLeavesSharedFetchRunning(t *testing.T) {
	cache := New(Opts{})
	started := make(chan struct{})
	release := make(chan struct{})
	fetcher := func(ctx context.Context) (string, error) {
		close(started)
		<-release
		return "done", ctx.Err()
	}

	cancelled, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := Fetch(cancelled, cache, Key{"shared"}, time.Minute, fetcher)
		firstErr <- err
	}()
	<-started

	second := make(chan string, 1)
	go func() {
		value, err := Fetch(context.Background(), cache, Key{"shared"}, time.Minute, fetcher)
		assert.NoError(t, err)
		second <- value
	}()
	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	close(release)
	assert.Equal(t, "done", <-second)
}

func staleKeys(c *Client) []Key {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	output := []Key{}
	for _, e := range c.entries.Values() {
		if e.stale {
			output = append(output, e.key)
		}
	}
	return output
}

func TestSetGetRemoveClearKeys(t *testing.T) {
	cache := New(Opts{Namespace: "a"})
	other := New(Opts{Namespace: "b"})
	cache.Set(Key{"branding", "t1"}, "red")
	cache.Set(Key{"branding", "t2"}, "blue")
	cache.Set(Key{"users", "list"}, []string{"x"})

	value, ok := cache.Get(Key{"branding", "t1"})
	require.True(t, ok)
	assert.Equal(t, "red", value)
	_, ok = other.Get(Key{"branding", "t1"})
	assert.False(t, ok)

	assert.Equal(t, []Key{{"branding", "t1"}, {"branding", "t2"}, {"users", "list"}}, cache.Keys())
	cache.Remove(Key{"branding"})
	assert.Equal(t, []Key{{"users", "list"}}, cache.Keys())
	cache.Clear()
	assert.Empty(t, cache.Keys())
}

func TestFetchTypeMismatch(t *testing.T) {
	cache := New(Opts{})
	ctx := context.Background()
	_, err := Fetch(ctx, cache, Key{"k"}, time.Hour, func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	_, err = Fetch(ctx, cache, Key{"k"}, time.Hour, func(context.Context) (string, error) { return "", nil })
	assert.ErrorIs(t, err, ErrorTypeMismatch)
}
