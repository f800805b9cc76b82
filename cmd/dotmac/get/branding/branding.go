package branding

import (
	"context"
	"fmt"
	"os"

	"dotmac/internal/branding"
	"dotmac/internal/cli"
	"dotmac/internal/config"
	"dotmac/internal/querycache"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Command = cli.NewCommand(cli.CommandOpts{
	Name:    "get.branding",
	Flags:   config.GetApiFlags(),
	Use:     "branding <tenant-id>",
	Aliases: []string{"brand"},
	Short:   "Shows a tenant's branding merged over the platform defaults",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, opts *cli.Command, args []string) error {
		backend, err := config.NewApiClient(opts.GetFullname(), opts.GetServiceLogs())
		if err != nil {
			return err
		}
		client, err := branding.NewClient(branding.NewClientOpts{
			Api:   backend,
			Cache: querycache.New(querycache.Opts{Namespace: opts.GetFullname()}),
		})
		if err != nil {
			return fmt.Errorf("failed to create branding client: %w", err)
		}
		brand, err := client.Get(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get branding: %w", err)
		}
		format := cli.OutputFormat(viper.GetString("output"))
		if format == cli.OutputFormatText || format == "" {
			format = cli.OutputFormatYaml
		}
		return cli.PrintStructured(os.Stdout, format, brand)
	},
})
