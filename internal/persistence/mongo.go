package persistence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dotmac/internal/common"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const DefaultMongoTimeout = 3 * time.Second

type MongoConnectionOpts struct {
	AppName             string
	Hosts               []string
	IsDirect            bool
	RetryInterval       time.Duration
	HealthcheckInterval time.Duration
}

type MongoAuthOpts struct {
	AuthMechanism string
	AuthSource    string
	Password      string
	Username      string
}

func (mao MongoAuthOpts) toNative() options.Credential {
	return options.Credential{
		AuthMechanism: mao.AuthMechanism,
		AuthSource:    mao.AuthSource,
		Password:      mao.Password,
		Username:      mao.Username,
	}
}

func NewMongo(
	connectionOpts MongoConnectionOpts,
	authOpts MongoAuthOpts,
	serviceLogs chan<- common.ServiceLog,
) *Mongo {
	clientOptions := options.Client().
		SetHosts(connectionOpts.Hosts).
		SetDirect(connectionOpts.IsDirect).
		SetAppName(getAppName(connectionOpts.AppName)).
		SetConnectTimeout(DefaultMongoTimeout)
	if authOpts.Username != "" {
		clientOptions.SetAuth(authOpts.toNative())
	}
	output := &Mongo{options: clientOptions}
	output.keepalive = newKeepalive(
		"mongo",
		getAppName(connectionOpts.AppName),
		connectionOpts.HealthcheckInterval,
		connectionOpts.RetryInterval,
		getServiceLogs(serviceLogs),
	)
	output.keepalive.connect = output.connect
	output.keepalive.ping = output.ping
	return output
}

type Mongo struct {
	*keepalive

	client  *mongo.Client
	options *options.ClientOptions
	mutex   sync.RWMutex
}

func (m *Mongo) GetClient() *mongo.Client {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.client
}

func (m *Mongo) GetId() string {
	return m.id
}

func (m *Mongo) GetStatus() *Status {
	return m.status.snapshot()
}

func (m *Mongo) Init() error {
	return m.keepalive.init()
}

func (m *Mongo) Shutdown() error {
	m.serviceLogs <- common.ServiceLogf(common.LogLevelDebug, "shutting down mongo[%s] connection...", m.id)
	if !m.keepalive.shutdown() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), DefaultMongoTimeout)
	defer cancel()
	if err := m.GetClient().Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect mongo: %w", err)
	}
	return nil
}

// connect creates the client and pings it since mongo.Connect does no
// I/O on its own
func (m *Mongo) connect() error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultMongoTimeout)
	defer cancel()
	client, err := mongo.Connect(ctx, m.options)
	if err != nil {
		m.status.set(StatusCodeConnectError, fmt.Errorf("mongo[%s] failed to create client: %w", m.id, err))
		return m.status.GetError()
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		m.status.set(StatusCodeConnectError, fmt.Errorf("mongo[%s] failed to ping on connect: %w", m.id, err))
		return m.status.GetError()
	}
	m.mutex.Lock()
	previous := m.client
	m.client = client
	m.mutex.Unlock()
	if previous != nil {
		_ = previous.Disconnect(context.Background())
	}
	m.status.set(StatusCodeOk, nil)
	return nil
}

func (m *Mongo) ping() error {
	client := m.GetClient()
	if client == nil {
		m.status.set(StatusCodeConnectError, fmt.Errorf("mongo[%s] has no connection", m.id))
		return m.status.GetError()
	}
	ctx, cancel := context.WithTimeout(context.Background(), DefaultMongoTimeout)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		m.status.set(StatusCodePingError, fmt.Errorf("mongo[%s] ping failed: %w", m.id, err))
		return m.status.GetError()
	}
	m.status.set(StatusCodeOk, nil)
	return nil
}
