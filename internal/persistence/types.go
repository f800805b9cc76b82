package persistence

import (
	"sync"
	"time"
)

type statusCode string

const (
	StatusCodeConnectError statusCode = "connect_error"
	StatusCodeInitialising statusCode = "init"
	StatusCodeShuttingDown statusCode = "shutdown"
	StatusCodeOk           statusCode = "ok"
	StatusCodePingError    statusCode = "ping_error"
)

// Status is the health of one connection, it is read by the readiness
// probe and updated by the connection's background loops
type Status struct {
	code          statusCode
	lastChangedAt time.Time
	lastUpdatedAt time.Time
	err           error
	mutex         sync.Mutex
}

func newStatus() *Status {
	now := time.Now()
	return &Status{
		code:          StatusCodeInitialising,
		lastChangedAt: now,
		lastUpdatedAt: now,
	}
}

func (ms *Status) GetCode() statusCode {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	return ms.code
}

func (ms *Status) GetError() error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	return ms.err
}

func (ms *Status) GetLastChangedAt() time.Time {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	return ms.lastChangedAt
}

func (ms *Status) GetLastUpdatedAt() time.Time {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	return ms.lastUpdatedAt
}

func (ms *Status) snapshot() *Status {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	return &Status{
		code:          ms.code,
		lastChangedAt: ms.lastChangedAt,
		lastUpdatedAt: ms.lastUpdatedAt,
		err:           ms.err,
	}
}

func (ms *Status) set(code statusCode, err error) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	if ms.code == StatusCodeShuttingDown {
		return
	}
	if code != ms.code {
		ms.lastChangedAt = time.Now()
	}
	ms.code = code
	ms.err = err
	ms.lastUpdatedAt = time.Now()
}

// Connection is implemented by every managed connection so that callers
// can treat them uniformly for startup, readiness and shutdown
type Connection interface {
	GetId() string
	GetStatus() *Status
	Init() error
	Shutdown() error
}

// ReadinessCheck adapts a Connection to the readiness probe signature
func ReadinessCheck(connection Connection) func() error {
	return func() error {
		return connection.GetStatus().GetError()
	}
}

// LivenessCheck fails only once the connection has been unhealthy for
// longer than grace, giving the reconnector a chance first
func LivenessCheck(connection Connection, grace time.Duration) func() error {
	return func() error {
		status := connection.GetStatus()
		err := status.GetError()
		if err == nil || time.Since(status.GetLastChangedAt()) < grace {
			return nil
		}
		return err
	}
}
