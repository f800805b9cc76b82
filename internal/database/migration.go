package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"dotmac/internal/common"
	"dotmac/internal/persistence"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/mysql/*.sql
var migrationFiles embed.FS

var ErrorDirtyMigration = errors.New("dirty_migration")

type MigrateOpts struct {
	Connection  *sql.DB
	Dialect     persistence.Dialect
	Steps       int
	ServiceLogs chan<- common.ServiceLog
}

func getDriver(opts MigrateOpts) (database.Driver, error) {
	switch opts.Dialect {
	case persistence.DialectPostgres:
		return pgxmigrate.WithInstance(opts.Connection, &pgxmigrate.Config{})
	case persistence.DialectMysql:
		return mysql.WithInstance(opts.Connection, &mysql.Config{})
	}
	return nil, fmt.Errorf("dialect[%s]: %w", opts.Dialect, persistence.ErrorUnsupportedDatabaseUrl)
}

// Migrate applies the embedded migrations for the connection's dialect,
// a zero Steps runs everything pending
func Migrate(opts MigrateOpts) error {
	serviceLogs := opts.ServiceLogs
	if serviceLogs == nil {
		serviceLogs = common.GetNoopServiceLog()
	}
	driver, err := getDriver(opts)
	if err != nil {
		return fmt.Errorf("failed to create %s driver: %w", opts.Dialect, err)
	}
	serviceLogs <- common.ServiceLogf(common.LogLevelDebug, "established %s database connection", opts.Dialect)

	source, err := iofs.New(migrationFiles, "migrations/"+string(opts.Dialect))
	if err != nil {
		return fmt.Errorf("failed to create iofs source: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, string(opts.Dialect), driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator instance: %w", err)
	}

	version, isDirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get version of current migration: %w", err)
	}
	if isDirty {
		return fmt.Errorf("current version %v: %w", version, ErrorDirtyMigration)
	}
	serviceLogs <- common.ServiceLogf(common.LogLevelDebug, "migrator version: %v (dirty: %v)", version, isDirty)

	if opts.Steps != 0 {
		serviceLogs <- common.ServiceLogf(common.LogLevelDebug, "running %v steps of migrations", opts.Steps)
		err = migrator.Steps(opts.Steps)
	} else {
		serviceLogs <- common.ServiceLogf(common.LogLevelDebug, "running all pending migrations")
		err = migrator.Up()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		serviceLogs <- common.ServiceLogf(common.LogLevelInfo, "no change detected")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	serviceLogs <- common.ServiceLogf(common.LogLevelInfo, "migrations applied")
	return nil
}
