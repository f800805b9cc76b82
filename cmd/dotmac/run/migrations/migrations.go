package migrations

import (
	"fmt"

	"dotmac/internal/cli"
	"dotmac/internal/config"
	"dotmac/internal/database"
	"dotmac/internal/persistence"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const Steps = "steps"

var flags cli.Flags = cli.Flags{
	{
		Name:         config.DatabaseUrl,
		DefaultValue: "",
		Usage:        "defines the database to migrate (postgres:// or mysql://)",
		Type:         cli.FlagTypeString,
		Env:          []string{config.EnvDotmacDatabaseUrl},
	},
	{
		Name:         Steps,
		DefaultValue: 0,
		Usage:        "number of migrations to apply, negative values roll back, 0 applies everything pending",
		Type:         cli.FlagTypeInteger,
	},
}

var Command = cli.NewCommand(cli.CommandOpts{
	Name:    "run.migrations",
	Flags:   flags,
	Use:     "migrations",
	Aliases: []string{"migration", "m"},
	Short:   "Runs the auth schema migrations against the configured database",
	Run: func(cmd *cobra.Command, opts *cli.Command, args []string) error {
		databaseUrl := config.LoadAuth(config.ViperGetenv).DatabaseUrl
		if databaseUrl == "" {
			return config.ErrorMissingDatabaseUrl
		}
		sqlInstance, err := persistence.NewSql(persistence.SqlConnectionOpts{
			AppName:     opts.GetFullname(),
			DatabaseUrl: databaseUrl,
		}, opts.GetServiceLogs())
		if err != nil {
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		if err := sqlInstance.Init(); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		opts.AddShutdownProcess("database", sqlInstance.Shutdown)

		logrus.Infof("running %s migrations...", sqlInstance.GetDialect())
		if err := database.Migrate(database.MigrateOpts{
			Connection:  sqlInstance.GetClient(),
			Dialect:     sqlInstance.GetDialect(),
			Steps:       viper.GetInt(Steps),
			ServiceLogs: opts.GetServiceLogs(),
		}); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		logrus.Infof("migrations complete")
		return nil
	},
})
