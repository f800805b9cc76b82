package persistence

import (
	"os"
	"sync"
	"time"

	"dotmac/internal/common"
)

const DefaultHealthcheckInterval = 3 * time.Second
const DefaultRetryInterval = 3 * time.Second

func getAppName(appName string) string {
	if appName != "" {
		return appName
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown_host"
	}
	return hostname
}

func getServiceLogs(serviceLogs chan<- common.ServiceLog) chan<- common.ServiceLog {
	if serviceLogs != nil {
		return serviceLogs
	}
	return common.GetNoopServiceLog()
}

func orDefault(value, fallback time.Duration) time.Duration {
	if value != 0 {
		return value
	}
	return fallback
}

// keepalive runs the reconnect and ping loops shared by every
// connection type until stop is closed
type keepalive struct {
	kind string
	id   string

	connect func() error
	ping    func() error

	healthcheckInterval time.Duration
	retryInterval       time.Duration
	retryCount          int
	mutex               sync.Mutex

	serviceLogs chan<- common.ServiceLog
	status      *Status
	stop        chan struct{}
	stopOnce    sync.Once
}

func newKeepalive(kind, id string, healthcheckInterval, retryInterval time.Duration, serviceLogs chan<- common.ServiceLog) *keepalive {
	return &keepalive{
		kind:                kind,
		id:                  id,
		healthcheckInterval: orDefault(healthcheckInterval, DefaultHealthcheckInterval),
		retryInterval:       orDefault(retryInterval, DefaultRetryInterval),
		serviceLogs:         serviceLogs,
		status:              newStatus(),
		stop:                make(chan struct{}),
	}
}

// init connects and pings once then leaves the loops running in the
// background
func (k *keepalive) init() error {
	k.serviceLogs <- common.ServiceLogf(common.LogLevelDebug, "%s[%s] is initialising...", k.kind, k.id)
	if err := k.connect(); err != nil {
		return err
	}
	if err := k.ping(); err != nil {
		return err
	}
	go k.startAutoReconnector()
	go k.startConnectionPinger()
	return nil
}

// shutdown marks the connection as shutting down and returns whether it
// was healthy before, in which case the caller should close the client
func (k *keepalive) shutdown() bool {
	wasOk := k.status.GetCode() == StatusCodeOk
	k.status.set(StatusCodeShuttingDown, nil)
	k.stopOnce.Do(func() { close(k.stop) })
	return wasOk
}

func (k *keepalive) wait(d time.Duration) bool {
	select {
	case <-k.stop:
		return false
	case <-time.After(d):
		return true
	}
}

// startAutoReconnector checks for an errored status and attempts to
// reconnect until it is successful again
func (k *keepalive) startAutoReconnector() {
	k.serviceLogs <- common.ServiceLogf(common.LogLevelDebug, "%s[%s] auto reconnector starting...", k.kind, k.id)
	for {
		if k.status.GetError() != nil {
			if err := k.connect(); err != nil {
				k.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "failed to reconnect to %s[%s] after %v attempts: %s", k.kind, k.id, k.incrementRetries(), err)
				if !k.wait(k.retryInterval) {
					return
				}
				continue
			}
			if err := k.ping(); err != nil {
				k.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "failed to ping %s[%s] on reconnection after %v attempts: %s", k.kind, k.id, k.incrementRetries(), err)
				if !k.wait(k.retryInterval) {
					return
				}
				continue
			}
			k.mutex.Lock()
			k.serviceLogs <- common.ServiceLogf(common.LogLevelInfo, "reconnected to %s[%s] after %v attempts", k.kind, k.id, k.retryCount+1)
			k.retryCount = 0
			k.mutex.Unlock()
		}
		if !k.wait(k.healthcheckInterval) {
			return
		}
	}
}

// startConnectionPinger sets the status to an error state when a ping
// fails so that the reconnector picks it up
func (k *keepalive) startConnectionPinger() {
	k.serviceLogs <- common.ServiceLogf(common.LogLevelDebug, "%s[%s] connection pinger starting...", k.kind, k.id)
	for {
		if !k.wait(k.healthcheckInterval) {
			return
		}
		if k.status.GetCode() == StatusCodeConnectError {
			continue
		}
		if err := k.ping(); err != nil {
			k.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "failed to ping %s[%s]: %s", k.kind, k.id, err)
		}
	}
}

func (k *keepalive) incrementRetries() int {
	k.mutex.Lock()
	defer k.mutex.Unlock()
	k.retryCount++
	return k.retryCount
}
