package persistence

import (
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestParseDatabaseUrl(t *testing.T) {
	dialect, dsn, err := ParseDatabaseUrl("postgres://dotmac:pw@localhost:5432/dotmac?sslmode=disable")
	require.NoError(t, err)
	require.Equal(t, DialectPostgres, dialect)
	require.Equal(t, "postgres://dotmac:pw@localhost:5432/dotmac?sslmode=disable", dsn)

	dialect, dsn, err = ParseDatabaseUrl("mysql://dotmac:pw@db:3306/dotmac")
	require.NoError(t, err)
	require.Equal(t, DialectMysql, dialect)
	require.Contains(t, dsn, "dotmac:pw@tcp(db:3306)/dotmac")
	require.Contains(t, dsn, "parseTime=true")

	_, _, err = ParseDatabaseUrl("sqlite:///tmp/db")
	require.ErrorIs(t, err, ErrorUnsupportedDatabaseUrl)
}

func TestNatsOptionsRequiresAuth(t *testing.T) {
	_, err := NatsOptions(NatsAuthOpts{})
	require.ErrorIs(t, err, ErrorNatsNoAuth)

	options, err := NatsOptions(NatsAuthOpts{Username: "dotmac", Password: "pw"})
	require.NoError(t, err)
	require.Len(t, options, 1)
}

func TestRedisLifecycle(t *testing.T) {
	server := miniredis.RunT(t)
	connection := NewRedis(RedisConnectionOpts{
		AppName:             "test",
		Addr:                server.Addr(),
		HealthcheckInterval: 10 * time.Millisecond,
		RetryInterval:       10 * time.Millisecond,
	}, RedisAuthOpts{}, nil)

	require.Equal(t, StatusCodeInitialising, connection.GetStatus().GetCode())
	require.NoError(t, connection.Init())
	require.Equal(t, StatusCodeOk, connection.GetStatus().GetCode())
	require.NoError(t, ReadinessCheck(connection)())

	server.SetError("LOADING")
	require.Eventually(t, func() bool {
		return connection.GetStatus().GetError() != nil
	}, time.Second, 5*time.Millisecond)

	server.SetError("")
	require.Eventually(t, func() bool {
		return connection.GetStatus().GetCode() == StatusCodeOk
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, connection.Shutdown())
	require.Equal(t, StatusCodeShuttingDown, connection.GetStatus().GetCode())
}

type fakeConnection struct {
	status *Status
}

func (f *fakeConnection) GetId() string      { return "fake" }
func (f *fakeConnection) GetStatus() *Status { return f.status }
func (f *fakeConnection) Init() error        { return nil }
func (f *fakeConnection) Shutdown() error    { return nil }

func TestLivenessCheckAllowsGrace(t *testing.T) {
	connection := &fakeConnection{status: newStatus()}
	connection.status.set(StatusCodePingError, errors.New("ping_failed"))

	require.NoError(t, LivenessCheck(connection, time.Minute)())
	require.Error(t, ReadinessCheck(connection)())

	connection.status.mutex.Lock()
	connection.status.lastChangedAt = time.Now().Add(-2 * time.Minute)
	connection.status.mutex.Unlock()
	require.EqualError(t, LivenessCheck(connection, time.Minute)(), "ping_failed")
}
