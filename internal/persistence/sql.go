package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"dotmac/internal/common"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMysql    Dialect = "mysql"
)

var ErrorUnsupportedDatabaseUrl = errors.New("unsupported_database_url")

const mysqlErrorInactivityDisconnect uint16 = 4031

// ParseDatabaseUrl resolves the driver and dsn for a DATABASE_URL,
// postgres urls are passed to pgx as is and mysql urls are converted to
// the go-sql-driver dsn format
func ParseDatabaseUrl(databaseUrl string) (Dialect, string, error) {
	parsed, err := url.Parse(databaseUrl)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse database url: %w", err)
	}
	switch parsed.Scheme {
	case "postgres", "postgresql":
		return DialectPostgres, databaseUrl, nil
	case "mysql":
		config := mysql.NewConfig()
		config.Net = "tcp"
		config.Addr = parsed.Host
		config.DBName = strings.TrimPrefix(parsed.Path, "/")
		config.ParseTime = true
		config.MultiStatements = true
		config.AllowNativePasswords = true
		if parsed.User != nil {
			config.User = parsed.User.Username()
			config.Passwd, _ = parsed.User.Password()
		}
		query := parsed.Query()
		for key := range query {
			if config.Params == nil {
				config.Params = map[string]string{}
			}
			config.Params[key] = query.Get(key)
		}
		return DialectMysql, config.FormatDSN(), nil
	}
	return "", "", fmt.Errorf("scheme[%s]: %w", parsed.Scheme, ErrorUnsupportedDatabaseUrl)
}

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "mysql"
}

type SqlConnectionOpts struct {
	AppName             string
	DatabaseUrl         string
	MaxOpenConns        int
	RetryInterval       time.Duration
	HealthcheckInterval time.Duration
}

// NewSql prepares a managed sql connection for a postgres or mysql url
func NewSql(connectionOpts SqlConnectionOpts, serviceLogs chan<- common.ServiceLog) (*Sql, error) {
	dialect, dsn, err := ParseDatabaseUrl(connectionOpts.DatabaseUrl)
	if err != nil {
		return nil, err
	}
	maxOpenConns := connectionOpts.MaxOpenConns
	if maxOpenConns == 0 {
		maxOpenConns = 16
	}
	output := &Sql{
		dialect:      dialect,
		dsn:          dsn,
		maxOpenConns: maxOpenConns,
	}
	output.keepalive = newKeepalive(
		string(dialect),
		getAppName(connectionOpts.AppName),
		connectionOpts.HealthcheckInterval,
		connectionOpts.RetryInterval,
		getServiceLogs(serviceLogs),
	)
	output.keepalive.connect = output.connect
	output.keepalive.ping = output.ping
	return output, nil
}

type Sql struct {
	*keepalive

	client       *sql.DB
	dialect      Dialect
	dsn          string
	maxOpenConns int
}

// GetClient returns the pool, database/sql reconnects individual
// connections on its own so the pool is never replaced
func (s *Sql) GetClient() *sql.DB {
	return s.client
}

func (s *Sql) GetDialect() Dialect {
	return s.dialect
}

func (s *Sql) GetId() string {
	return s.id
}

func (s *Sql) GetStatus() *Status {
	return s.status.snapshot()
}

func (s *Sql) Init() error {
	client, err := sql.Open(s.dialect.driverName(), s.dsn)
	if err != nil {
		return fmt.Errorf("%s[%s] failed to open: %w", s.dialect, s.id, err)
	}
	client.SetMaxOpenConns(s.maxOpenConns)
	client.SetMaxIdleConns(s.maxOpenConns / 2)
	client.SetConnMaxIdleTime(5 * time.Minute)
	s.client = client
	return s.keepalive.init()
}

func (s *Sql) Shutdown() error {
	s.serviceLogs <- common.ServiceLogf(common.LogLevelDebug, "shutting down %s[%s] connection...", s.dialect, s.id)
	s.keepalive.shutdown()
	if s.client == nil {
		return nil
	}
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close %s connection: %w", s.dialect, err)
	}
	return nil
}

func (s *Sql) connect() error {
	ctx, cancel := context.WithTimeout(context.Background(), common.DefaultDurationConnectionTimeout)
	defer cancel()
	if err := s.client.PingContext(ctx); err != nil {
		s.status.set(StatusCodeConnectError, fmt.Errorf("%s[%s] failed to connect: %w", s.dialect, s.id, err))
		return s.status.GetError()
	}
	s.status.set(StatusCodeOk, nil)
	return nil
}

func (s *Sql) ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), common.DefaultDurationConnectionTimeout)
	defer cancel()
	if _, err := s.client.ExecContext(ctx, "SELECT 1"); err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrorInactivityDisconnect {
			s.status.set(StatusCodePingError, fmt.Errorf("%s[%s] caught inactivity disconnect: %w", s.dialect, s.id, err))
			return s.status.GetError()
		}
		s.status.set(StatusCodePingError, fmt.Errorf("%s[%s] ping failed: %w", s.dialect, s.id, err))
		return s.status.GetError()
	}
	s.status.set(StatusCodeOk, nil)
	return nil
}
