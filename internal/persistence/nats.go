package persistence

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"dotmac/internal/common"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"
)

var ErrorNatsNoAuth = fmt.Errorf("nats_no_auth")

type NatsConnectionOpts struct {
	AppName             string
	Host                string
	RetryInterval       time.Duration
	HealthcheckInterval time.Duration
}

type NatsAuthOpts struct {
	NKey     string
	Username string
	Password string
}

// NatsOptions turns the auth options into connection options, an nkey
// seed takes precedence over a username and password
func NatsOptions(authOpts NatsAuthOpts) ([]nats.Option, error) {
	if authOpts.NKey != "" {
		keyPair, err := nkeys.FromSeed([]byte(authOpts.NKey))
		if err != nil {
			return nil, fmt.Errorf("failed to generate keypair from nkey: %w", err)
		}
		publicKey, err := keyPair.PublicKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate public key from nkey: %w", err)
		}
		return []nats.Option{nats.Nkey(publicKey, keyPair.Sign)}, nil
	}
	if authOpts.Username != "" && authOpts.Password != "" {
		return []nats.Option{nats.UserInfo(authOpts.Username, authOpts.Password)}, nil
	}
	return nil, ErrorNatsNoAuth
}

func NewNats(
	connectionOpts NatsConnectionOpts,
	authOpts NatsAuthOpts,
	serviceLogs chan<- common.ServiceLog,
) (*Nats, error) {
	options, err := NatsOptions(authOpts)
	if err != nil {
		return nil, err
	}
	addr := connectionOpts.Host
	if !strings.Contains(addr, "://") {
		addr = "nats://" + addr
	}
	output := &Nats{
		addr:    addr,
		options: append(options, nats.Name(getAppName(connectionOpts.AppName))),
	}
	output.keepalive = newKeepalive(
		"nats",
		getAppName(connectionOpts.AppName),
		connectionOpts.HealthcheckInterval,
		connectionOpts.RetryInterval,
		getServiceLogs(serviceLogs),
	)
	output.keepalive.connect = output.connect
	output.keepalive.ping = output.ping
	return output, nil
}

type Nats struct {
	*keepalive

	addr    string
	client  *nats.Conn
	options []nats.Option
	mutex   sync.RWMutex
}

func (n *Nats) GetClient() *nats.Conn {
	n.mutex.RLock()
	defer n.mutex.RUnlock()
	return n.client
}

func (n *Nats) GetId() string {
	return n.id
}

func (n *Nats) GetStreamingClient() (nats.JetStreamContext, error) {
	client := n.GetClient()
	if client == nil {
		return nil, fmt.Errorf("nats[%s] is not connected", n.id)
	}
	js, err := client.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to get nats[%s] jetstream context: %w", n.id, err)
	}
	return js, nil
}

func (n *Nats) GetStatus() *Status {
	return n.status.snapshot()
}

func (n *Nats) Init() error {
	return n.keepalive.init()
}

func (n *Nats) Shutdown() error {
	n.serviceLogs <- common.ServiceLogf(common.LogLevelDebug, "shutting down nats[%s] connection...", n.id)
	if !n.keepalive.shutdown() {
		return nil
	}
	client := n.GetClient()
	if err := client.Drain(); err != nil {
		n.serviceLogs <- common.ServiceLogf(common.LogLevelError, "failed to drain nats[%s]: %s", n.id, err)
		client.Close()
	}
	return nil
}

func (n *Nats) connect() error {
	client, err := nats.Connect(n.addr, n.options...)
	if err != nil {
		n.status.set(StatusCodeConnectError, fmt.Errorf("nats[%s] failed to connect: %w", n.id, err))
		return n.status.GetError()
	}
	if !client.IsConnected() {
		client.Close()
		n.status.set(StatusCodeConnectError, fmt.Errorf("nats[%s] failed to verify connection", n.id))
		return n.status.GetError()
	}
	n.mutex.Lock()
	previous := n.client
	n.client = client
	n.mutex.Unlock()
	if previous != nil {
		previous.Close()
	}
	n.status.set(StatusCodeOk, nil)
	return nil
}

func (n *Nats) ping() error {
	client := n.GetClient()
	switch {
	case client == nil:
		n.status.set(StatusCodeConnectError, fmt.Errorf("nats[%s] has no connection", n.id))
	case client.IsClosed():
		n.status.set(StatusCodePingError, fmt.Errorf("nats[%s] connection closed, last error: %w", n.id, client.LastError()))
	case client.IsDraining():
		n.status.set(StatusCodePingError, fmt.Errorf("nats[%s] connection is being drained, last error: %w", n.id, client.LastError()))
	case client.IsReconnecting():
		n.status.set(StatusCodePingError, fmt.Errorf("nats[%s] connection is re-establishing, last error: %w", n.id, client.LastError()))
	default:
		n.status.set(StatusCodeOk, nil)
	}
	return n.status.GetError()
}
