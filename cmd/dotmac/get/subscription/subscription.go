package subscription

import (
	"context"
	"fmt"
	"os"
	"strings"

	"dotmac/internal/cli"
	"dotmac/internal/config"
	"dotmac/internal/licensing"
	"dotmac/internal/querycache"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const Entitlements = "entitlements"

var flags cli.Flags = config.GetApiFlags().Append(cli.Flags{
	{
		Name:         Entitlements,
		DefaultValue: []string{},
		Usage:        "module:capability pairs to check against the subscription",
		Type:         cli.FlagTypeStringSlice,
	},
})

type subscriptionOutput struct {
	Subscription *licensing.Subscription `json:"subscription" yaml:"subscription"`
	Entitlements map[string]bool         `json:"entitlements,omitempty" yaml:"entitlements,omitempty"`
}

var Command = cli.NewCommand(cli.CommandOpts{
	Name:    "get.subscription",
	Flags:   flags,
	Use:     "subscription",
	Aliases: []string{"sub"},
	Short:   "Shows the tenant's current subscription and, optionally, whether it grants some capabilities",
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
		ctx := context.Background()
		subscription, err := client.CurrentSubscription(ctx)
		if err != nil {
			return fmt.Errorf("failed to get current subscription: %w", err)
		}
		output := subscriptionOutput{Subscription: subscription, Entitlements: map[string]bool{}}
		for _, pair := range viper.GetStringSlice(Entitlements) {
			moduleCode, capability, ok := strings.Cut(pair, ":")
			if !ok {
				return fmt.Errorf("entitlement[%s] is not of the form module:capability: %w", pair, cli.ErrorInvalidInput)
			}
			output.Entitlements[pair] = client.CheckEntitlement(ctx, moduleCode, capability)
		}

		format := cli.OutputFormat(viper.GetString("output"))
		if format == cli.OutputFormatJson || format == cli.OutputFormatYaml {
			return cli.PrintStructured(os.Stdout, format, output)
		}
		if subscription == nil {
			fmt.Println("the tenant has no subscription")
		} else {
			table := cli.NewTable(cli.NewTableOpts{
				Headers: []string{"id", "plan", "status", "cycle", "monthly price", "period end"},
				Rows: func(t *cli.Table) error {
					return t.NewRow(subscription.Id, subscription.PlanId, string(subscription.Status), string(subscription.BillingCycle), subscription.MonthlyPrice, subscription.CurrentPeriodEnd)
				},
			})
			fmt.Println(table.Render().GetString())
		}
		for pair, allowed := range output.Entitlements {
			fmt.Printf("%s: %v\n", pair, allowed)
		}
		return nil
	},
})
