package cache

import (
	"context"
	"errors"
	"time"
)

var ErrorCacheMiss = errors.New("cache_miss")

// Cache is the key/value store backing the session cookie cache, Get
// returns ErrorCacheMiss for absent or expired keys
type Cache interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) (err error)
	Get(ctx context.Context, key string) (value string, err error)
	Scan(ctx context.Context, prefix string) (keys []string, err error)
	Del(ctx context.Context, key string) (err error)
}
