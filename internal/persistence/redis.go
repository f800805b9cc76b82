package persistence

import (
	"fmt"
	"sync"
	"time"

	"dotmac/internal/common"

	"github.com/go-redis/redis/v7"
)

const (
	DefaultRedisDialTimeout  = 3 * time.Second
	DefaultRedisReadTimeout  = 3 * time.Second
	DefaultRedisWriteTimeout = 3 * time.Second
	DefaultRedisIdleTimeout  = 30 * time.Second
)

type RedisConnectionOpts struct {
	AppName             string
	Addr                string
	DB                  int
	RetryInterval       time.Duration
	HealthcheckInterval time.Duration
}

type RedisAuthOpts struct {
	Username string
	Password string
}

// NewRedis prepares a managed redis connection, nothing is dialled
// until Init is called
func NewRedis(
	connectionOpts RedisConnectionOpts,
	authOpts RedisAuthOpts,
	serviceLogs chan<- common.ServiceLog,
) *Redis {
	serviceLogs = getServiceLogs(serviceLogs)
	redisOptions := &redis.Options{
		Addr:         connectionOpts.Addr,
		DB:           connectionOpts.DB,
		Username:     authOpts.Username,
		Password:     authOpts.Password,
		DialTimeout:  DefaultRedisDialTimeout,
		ReadTimeout:  DefaultRedisReadTimeout,
		WriteTimeout: DefaultRedisWriteTimeout,
		IdleTimeout:  DefaultRedisIdleTimeout,
		OnConnect: func(c *redis.Conn) error {
			serviceLogs <- common.ServiceLogf(common.LogLevelDebug, "connection to redis[%s] created", connectionOpts.Addr)
			return nil
		},
	}
	output := &Redis{
		client:  redis.NewClient(redisOptions),
		options: redisOptions,
	}
	output.keepalive = newKeepalive(
		"redis",
		getAppName(connectionOpts.AppName),
		connectionOpts.HealthcheckInterval,
		connectionOpts.RetryInterval,
		serviceLogs,
	)
	output.keepalive.connect = output.connect
	output.keepalive.ping = output.ping
	return output
}

type Redis struct {
	*keepalive

	client  *redis.Client
	options *redis.Options
	mutex   sync.RWMutex
}

func (r *Redis) GetClient() *redis.Client {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.client
}

func (r *Redis) GetId() string {
	return r.id
}

func (r *Redis) GetStatus() *Status {
	return r.status.snapshot()
}

func (r *Redis) Init() error {
	return r.keepalive.init()
}

func (r *Redis) Shutdown() error {
	r.serviceLogs <- common.ServiceLogf(common.LogLevelDebug, "shutting down redis[%s] connection...", r.id)
	if !r.keepalive.shutdown() {
		return nil
	}
	if err := r.GetClient().Close(); err != nil {
		return fmt.Errorf("failed to disconnect redis: %w", err)
	}
	return nil
}

// connect verifies the connection can write, read and delete a key
func (r *Redis) connect() error {
	client := r.GetClient()
	testKey := "connect-test-" + r.id + "-" + time.Now().Format("20060102150405")
	testValue := "test"
	if err := client.Set(testKey, testValue, 5*time.Second).Err(); err != nil {
		r.status.set(StatusCodeConnectError, fmt.Errorf("redis[%s] failed to SET: %w", r.id, err))
		return r.status.GetError()
	}
	if value, err := client.Get(testKey).Result(); err != nil {
		r.status.set(StatusCodeConnectError, fmt.Errorf("redis[%s] failed to GET: %w", r.id, err))
		return r.status.GetError()
	} else if value != testValue {
		r.status.set(StatusCodeConnectError, fmt.Errorf("redis[%s] failed to reconcile SET/GET value", r.id))
		return r.status.GetError()
	}
	if err := client.Unlink(testKey).Err(); err != nil {
		r.status.set(StatusCodeConnectError, fmt.Errorf("redis[%s] failed to DEL: %w", r.id, err))
		return r.status.GetError()
	}
	r.status.set(StatusCodeOk, nil)
	return nil
}

func (r *Redis) ping() error {
	if err := r.GetClient().Ping().Err(); err != nil {
		r.status.set(StatusCodePingError, fmt.Errorf("redis[%s] ping failed: %w", r.id, err))
		return r.status.GetError()
	}
	r.status.set(StatusCodeOk, nil)
	return nil
}
