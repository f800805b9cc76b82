package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dotmac/internal/common"

	"github.com/go-redis/redis/v7"
)

const scanBatchSize = 256

type NewRedisOpts struct {
	Client      *redis.Client
	ServiceLogs chan<- common.ServiceLog
}

// NewRedis returns a Cache shared between every replica of the service
func NewRedis(opts NewRedisOpts) (*Redis, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("failed to receive a redis client")
	}
	serviceLogs := opts.ServiceLogs
	if serviceLogs == nil {
		serviceLogs = common.GetNoopServiceLog()
	}
	return &Redis{client: opts.Client, serviceLogs: serviceLogs}, nil
}

type Redis struct {
	client      *redis.Client
	serviceLogs chan<- common.ServiceLog
}

func (r *Redis) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.client.WithContext(ctx).Set(key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key[%s]: %w", key, err)
	}
	r.serviceLogs <- common.ServiceLogf(common.LogLevelTrace, "set key[%s] with ttl[%v]", key, ttl)
	return nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.WithContext(ctx).Get(key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrorCacheMiss
		}
		return "", fmt.Errorf("failed to get key[%s]: %w", key, err)
	}
	r.serviceLogs <- common.ServiceLogf(common.LogLevelTrace, "get key[%s] hit", key)
	return value, nil
}

// Scan iterates with SCAN rather than KEYS so that large keyspaces do
// not block the server
func (r *Redis) Scan(ctx context.Context, prefix string) ([]string, error) {
	client := r.client.WithContext(ctx)
	keys := []string{}
	var cursor uint64
	for {
		batch, next, err := client.Scan(cursor, prefix+"*", scanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys[%s*]: %w", prefix, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	r.serviceLogs <- common.ServiceLogf(common.LogLevelTrace, "found %v keys[%s*]", len(keys), prefix)
	return keys, nil
}

func (r *Redis) Del(ctx context.Context, key string) error {
	if err := r.client.WithContext(ctx).Unlink(key).Err(); err != nil {
		return fmt.Errorf("failed to delete key[%s]: %w", key, err)
	}
	r.serviceLogs <- common.ServiceLogf(common.LogLevelTrace, "deleted key[%s]", key)
	return nil
}
