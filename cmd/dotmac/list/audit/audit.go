package audit

import (
	"context"
	"fmt"
	"io"
	"os"

	"dotmac/internal/audit"
	"dotmac/internal/cli"
	"dotmac/internal/config"
	"dotmac/internal/persistence"
	"dotmac/internal/validate"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	EntityType = "entity-type"
	Limit      = "limit"
)

var flags cli.Flags = config.GetMongoFlags().Append(cli.Flags{
	{
		Name:         EntityType,
		DefaultValue: string(audit.UserEntity),
		Usage:        "one of [user, org, system]",
		Type:         cli.FlagTypeString,
	},
	{
		Name:         Limit,
		DefaultValue: 20,
		Usage:        "maximum number of entries to list, newest first",
		Type:         cli.FlagTypeInteger,
	},
})

var Command = cli.NewCommand(cli.CommandOpts{
	Name:  "list.audit",
	Flags: flags,
	Use:   "audit <entity-id>",
	Short: "Lists what a user or system actor did, as recorded in the audit log",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, opts *cli.Command, args []string) error {
		entityType := audit.EntityType(viper.GetString(EntityType))
		if entityType != audit.SystemEntity {
			if err := validate.Uuid(args[0]); err != nil {
				return fmt.Errorf("entity id[%s]: %w", args[0], err)
			}
		}
		mongoHosts := viper.GetStringSlice(config.MongoHosts)
		if len(mongoHosts) == 0 {
			return fmt.Errorf("--%s is required: %w", config.MongoHosts, cli.ErrorInvalidInput)
		}
		mongoInstance := persistence.NewMongo(
			persistence.MongoConnectionOpts{
				AppName:  opts.GetFullname(),
				Hosts:    mongoHosts,
				IsDirect: len(mongoHosts) == 1,
			},
			persistence.MongoAuthOpts{
				Username: viper.GetString(config.MongoUsername),
				Password: viper.GetString(config.MongoPassword),
			},
			opts.GetServiceLogs(),
		)
		if err := mongoInstance.Init(); err != nil {
			return fmt.Errorf("failed to connect to mongo: %w", err)
		}
		opts.AddShutdownProcess("mongo", mongoInstance.Shutdown)
		logger, err := audit.NewMongo(audit.NewMongoOpts{
			Database:    mongoInstance.GetClient().Database(viper.GetString(config.MongoDatabase)),
			ServiceLogs: opts.GetServiceLogs(),
		})
		if err != nil {
			return fmt.Errorf("failed to create audit reader: %w", err)
		}
		return render(context.Background(), os.Stdout, cli.OutputFormat(viper.GetString("output")), logger, audit.GetByEntityOpts{
			EntityId:   args[0],
			EntityType: entityType,
			Limit:      int64(viper.GetInt(Limit)),
		})
	},
})

func render(ctx context.Context, out io.Writer, format cli.OutputFormat, logger audit.Logger, query audit.GetByEntityOpts) error {
	entries, err := logger.GetByEntity(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}
	if format == cli.OutputFormatJson || format == cli.OutputFormatYaml {
		return cli.PrintStructured(out, format, entries)
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintf(out, "no audit entries for %s[%s]\n", query.EntityType, query.EntityId)
		return err
	}
	table := cli.NewTable(cli.NewTableOpts{
		Headers: []string{"when", "status", "what"},
		Rows: func(t *cli.Table) error {
			for _, entry := range entries {
				if err := t.NewRow(entry.Timestamp, string(entry.Status), audit.Interpret(entry)); err != nil {
					return err
				}
			}
			return nil
		},
	})
	_, err = fmt.Fprintln(out, table.Render().GetString())
	return err
}
