package querycache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultSize = 1024

	// DefaultRetention is how long an unused entry is kept at all, fresh
	// or stale
	DefaultRetention = 30 * time.Minute
)

type Fetcher func(context.Context) (any, error)

type Opts struct {
	// Namespace isolates clients that share the process
	Namespace string
	Size      int
	Retention time.Duration
	Now       func() time.Time
}

func New(opts Opts) *Client {
	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}
	retention := opts.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		namespace: opts.Namespace,
		entries:   expirable.NewLRU[string, *entry](size, nil, retention),
		flights:   map[string]*flight{},
		now:       now,
	}
}

// Client is a namespaced query cache. Concurrent writes to the same key
// are last-write-wins
type Client struct {
	namespace string
	entries   *expirable.LRU[string, *entry]
	group     singleflight.Group
	flights   map[string]*flight
	now       func() time.Time
	mutex     sync.Mutex
}

// flight is a running fetcher. A revoked flight started before an
// invalidation and its result is returned to its callers but never cached
type flight struct {
	key     Key
	revoked bool
}

type entry struct {
	key       Key
	data      any
	updatedAt time.Time
	stale     bool
	staleTime time.Duration
	fetcher   Fetcher
}

func (c *Client) Namespace() string {
	return c.namespace
}

func (c *Client) storageKey(key Key) string {
	return c.namespace + ":" + key.String()
}

// Fetch returns the cached data while it is younger than staleTime and
// not invalidated, otherwise it runs fetcher once for all concurrent
// callers of the same key and caches a successful result. Errors are not
// cached
func (c *Client) Fetch(ctx context.Context, key Key, staleTime time.Duration, fetcher Fetcher) (any, error) {
	if len(key) == 0 {
		return nil, ErrorEmptyKey
	}
	if fetcher == nil {
		return nil, ErrorFetcherUndefined
	}
	storageKey := c.storageKey(key)
	c.mutex.Lock()
	if existing, ok := c.entries.Get(storageKey); ok && existing.fetcher != nil && !existing.stale && c.now().Sub(existing.updatedAt) < staleTime {
		data := existing.data
		c.mutex.Unlock()
		return data, nil
	}
	c.mutex.Unlock()
	return c.fetch(ctx, storageKey, key, staleTime, fetcher)
}

// fetch runs fetcher detached from the caller's cancellation so callers
// sharing the flight are unaffected when one of them gives up
func (c *Client) fetch(ctx context.Context, storageKey string, key Key, staleTime time.Duration, fetcher Fetcher) (any, error) {
	results := c.group.DoChan(storageKey, func() (any, error) {
		current := c.startFlight(storageKey, key)
		defer c.endFlight(storageKey, current)
		data, err := fetcher(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.put(storageKey, current, &entry{key: key, data: data, staleTime: staleTime, fetcher: fetcher})
		return data, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-results:
		return result.Val, result.Err
	}
}

func (c *Client) startFlight(storageKey string, key Key) *flight {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	current := &flight{key: key}
	c.flights[storageKey] = current
	return current
}

func (c *Client) endFlight(storageKey string, current *flight) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.flights[storageKey] == current {
		delete(c.flights, storageKey)
	}
}

func (c *Client) put(storageKey string, from *flight, e *entry) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if from.revoked {
		return
	}
	e.updatedAt = c.now()
	c.entries.Add(storageKey, e)
}

// revokeFlights must be called with the mutex held. Revoked keys are
// forgotten by the singleflight group so the next caller starts over
func (c *Client) revokeFlights(key Key) {
	for storageKey, running := range c.flights {
		if running.key.HasPrefix(key) {
			running.revoked = true
			delete(c.flights, storageKey)
			c.group.Forget(storageKey)
		}
	}
}

// Set writes data without a fetcher, the entry is returned by Get but
// Fetch treats it as stale
func (c *Client) Set(key Key, data any) {
	storageKey := c.storageKey(key)
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if existing, ok := c.entries.Peek(storageKey); ok {
		existing.data = data
		existing.updatedAt = c.now()
		existing.stale = false
		c.entries.Add(storageKey, existing)
		return
	}
	c.entries.Add(storageKey, &entry{key: key, data: data, updatedAt: c.now()})
}

// Get returns cached data regardless of staleness
func (c *Client) Get(key Key) (any, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	existing, ok := c.entries.Get(c.storageKey(key))
	if !ok {
		return nil, false
	}
	return existing.data, true
}

// Invalidate marks key and every key below it stale and returns them.
// Fetches already running under key are not cached when they finish
func (c *Client) Invalidate(key Key) []Key {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.revokeFlights(key)
	invalidated := []Key{}
	for _, existing := range c.matching(key) {
		existing.stale = true
		invalidated = append(invalidated, existing.key)
	}
	return invalidated
}

// Refetch reruns the fetcher of every stale entry under key and waits
// for all of them
func (c *Client) Refetch(ctx context.Context, key Key) error {
	type pending struct {
		storageKey string
		entry      entry
	}
	c.mutex.Lock()
	targets := []pending{}
	for _, existing := range c.matching(key) {
		if existing.stale && existing.fetcher != nil {
			targets = append(targets, pending{storageKey: c.storageKey(existing.key), entry: *existing})
		}
	}
	c.mutex.Unlock()

	group, groupCtx := errgroup.WithContext(ctx)
	for _, target := range targets {
		group.Go(func() error {
			if _, err := c.fetch(groupCtx, target.storageKey, target.entry.key, target.entry.staleTime, target.entry.fetcher); err != nil {
				return fmt.Errorf("failed to refetch %s: %w", target.entry.key, err)
			}
			return nil
		})
	}
	return group.Wait()
}

// Mutate runs mutation and, only when it succeeds, invalidates keys.
// Refetching is left to the caller
func (c *Client) Mutate(ctx context.Context, mutation func(context.Context) error, invalidate ...Key) error {
	if err := mutation(ctx); err != nil {
		return err
	}
	for _, key := range invalidate {
		c.Invalidate(key)
	}
	return nil
}

// Remove drops key and every key below it
func (c *Client) Remove(key Key) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.revokeFlights(key)
	for _, existing := range c.matching(key) {
		c.entries.Remove(c.storageKey(existing.key))
	}
}

func (c *Client) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.revokeFlights(Key{})
	c.entries.Purge()
}

// Keys lists every cached key in canonical order
func (c *Client) Keys() []Key {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	output := []Key{}
	for _, existing := range c.entries.Values() {
		output = append(output, existing.key)
	}
	sort.Slice(output, func(i, j int) bool { return output[i].String() < output[j].String() })
	return output
}

// matching must be called with the mutex held
func (c *Client) matching(key Key) []*entry {
	output := []*entry{}
	for _, existing := range c.entries.Values() {
		if existing.key.HasPrefix(key) {
			output = append(output, existing)
		}
	}
	return output
}

// Fetch is the typed form of Client.Fetch
func Fetch[T any](ctx context.Context, c *Client, key Key, staleTime time.Duration, fetcher func(context.Context) (T, error)) (T, error) {
	var zero T
	data, err := c.Fetch(ctx, key, staleTime, func(ctx context.Context) (any, error) {
		return fetcher(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := data.(T)
	if !ok {
		return zero, fmt.Errorf("cached %s holds %T: %w", key, data, ErrorTypeMismatch)
	}
	return typed, nil
}
