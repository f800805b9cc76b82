package modules

import (
	"context"
	"fmt"
	"os"

	"dotmac/internal/cli"
	"dotmac/internal/config"
	"dotmac/internal/licensing"
	"dotmac/internal/querycache"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const Category = "category"

var flags cli.Flags = config.GetApiFlags().Append(cli.Flags{
	{
		Name:         Category,
		DefaultValue: "",
		Usage:        "only lists modules in this category",
		Type:         cli.FlagTypeString,
	},
})

var Command = cli.NewCommand(cli.CommandOpts{
	Name:    "list.modules",
	Flags:   flags,
	Use:     "modules",
	Aliases: []string{"module", "m"},
	Short:   "Lists the licensable feature modules in the catalog",
	Run: func(cmd *cobra.Command, opts *cli.Command, args []string) error {
		backend, err := config.NewApiClient(opts.GetFullname(), opts.GetServiceLogs())
		if err != nil {
			return err
		}
		client, err := licensing.NewClient(licensing.NewClientOpts{
			Api:         backend,
			Cache:       querycache.New(querycache.Opts{Namespace: opts.GetFullname()}),
			ServiceLogs: opts.GetServiceLogs(),
		})
		if err != nil {
			return fmt.Errorf("failed to create licensing client: %w", err)
		}
		modules, err := client.ListModules(context.Background(), licensing.ModuleFilters{
			Category: viper.GetString(Category),
		})
		if err != nil {
			return fmt.Errorf("failed to list modules: %w", err)
		}

		format := cli.OutputFormat(viper.GetString("output"))
		if format == cli.OutputFormatJson || format == cli.OutputFormatYaml {
			return cli.PrintStructured(os.Stdout, format, modules)
		}
		table := cli.NewTable(cli.NewTableOpts{
			Headers: []string{"code", "name", "category", "active", "core", "pricing", "base price"},
			Rows: func(t *cli.Table) error {
				for _, module := range modules {
					if err := t.NewRow(module.ModuleCode, module.ModuleName, module.Category, module.IsActive, module.IsCore, module.PricingModel, module.BasePrice); err != nil {
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
