package database

import (
	"context"
	"fmt"
	"time"

	"dotmac/internal/cli"
	"dotmac/internal/config"
	"dotmac/internal/persistence"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var flags cli.Flags = cli.Flags{
	{
		Name:         config.DatabaseUrl,
		DefaultValue: "",
		Usage:        "defines the database to check (postgres:// or mysql://), falls back to DATABASE_URL",
		Type:         cli.FlagTypeString,
	},
}

var Command = cli.NewCommand(cli.CommandOpts{
	Name:    "check.database",
	Flags:   flags,
	Use:     "database",
	Aliases: []string{"db", "d"},
	Short:   "Checks database connectivity",
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
		logrus.Infof("verifying %s database connectivity...", sqlInstance.GetDialect())
		if err := sqlInstance.Init(); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		opts.AddShutdownProcess("database", sqlInstance.Shutdown)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sqlInstance.GetClient().PingContext(ctx); err != nil {
			return fmt.Errorf("failed to ping database: %w", err)
		}
		fmt.Printf("%s database is reachable\n", sqlInstance.GetDialect())
		return nil
	},
})
