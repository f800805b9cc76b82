package users

import (
	"context"
	"fmt"
	"os"

	"dotmac/internal/cli"
	"dotmac/internal/config"
	"dotmac/internal/querycache"
	"dotmac/internal/users"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	Search = "search"
	Role   = "role"
	Limit  = "limit"
)

var flags cli.Flags = config.GetApiFlags().Append(cli.Flags{
	{
		Name:         Search,
		DefaultValue: "",
		Usage:        "only lists users whose name or email matches",
		Type:         cli.FlagTypeString,
	},
	{
		Name:         Role,
		DefaultValue: "",
		Usage:        "only lists users holding this role",
		Type:         cli.FlagTypeString,
	},
	{
		Name:         Limit,
		DefaultValue: 50,
		Usage:        "maximum number of users to list",
		Type:         cli.FlagTypeInteger,
	},
})

var Command = cli.NewCommand(cli.CommandOpts{
	Name:    "list.users",
	Flags:   flags,
	Use:     "users",
	Aliases: []string{"user", "u"},
	Short:   "Lists the platform users of the tenant the api token belongs to",
	Run: func(cmd *cobra.Command, opts *cli.Command, args []string) error {
		backend, err := config.NewApiClient(opts.GetFullname(), opts.GetServiceLogs())
		if err != nil {
			return err
		}
		client, err := users.NewClient(users.NewClientOpts{
			Api:   backend,
			Cache: querycache.New(querycache.Opts{Namespace: opts.GetFullname()}),
		})
		if err != nil {
			return fmt.Errorf("failed to create users client: %w", err)
		}
		list, err := client.List(context.Background(), users.Filters{
			Search: viper.GetString(Search),
			Role:   viper.GetString(Role),
			Limit:  viper.GetInt(Limit),
		})
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		format := cli.OutputFormat(viper.GetString("output"))
		if format == cli.OutputFormatJson || format == cli.OutputFormatYaml {
			return cli.PrintStructured(os.Stdout, format, list)
		}
		table := cli.NewTable(cli.NewTableOpts{
			Headers: []string{"id", "username", "email", "status", "roles", "last login"},
			Rows: func(t *cli.Table) error {
				for _, user := range list {
					lastLogin := "-"
					if user.LastLogin != nil {
						lastLogin = user.LastLogin.Local().Format("2006-01-02 15:04")
					}
					if err := t.NewRow(user.Id, user.Username, user.Email, string(users.Status(user)), user.Roles, lastLogin); err != nil {
						return err
					}
				}
				return nil
			},
		})
		fmt.Println(table.Render().GetString())
		return nil
	},
})
