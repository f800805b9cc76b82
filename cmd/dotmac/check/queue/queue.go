package queue

import (
	"fmt"

	"dotmac/internal/cli"
	"dotmac/internal/config"
	"dotmac/internal/persistence"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Command = cli.NewCommand(cli.CommandOpts{
	Name:    "check.queue",
	Flags:   config.GetNatsFlags(),
	Use:     "queue",
	Aliases: []string{"q"},
	Short:   "Checks that the hooks queue is reachable and has JetStream enabled",
	Run: func(cmd *cobra.Command, opts *cli.Command, args []string) error {
		natsAddr := viper.GetString(config.NatsAddr)
		logrus.Infof("verifying queue connectivity at address[%s]...", natsAddr)
		natsInstance, err := persistence.NewNats(
			persistence.NatsConnectionOpts{
				AppName: opts.GetFullname(),
				Host:    natsAddr,
			},
			persistence.NatsAuthOpts{
				NKey:     viper.GetString(config.NatsNkeyValue),
				Username: viper.GetString(config.NatsUsername),
				Password: viper.GetString(config.NatsPassword),
			},
			opts.GetServiceLogs(),
		)
		if err != nil {
			return fmt.Errorf("failed to create nats client: %w", err)
		}
		if err := natsInstance.Init(); err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		opts.AddShutdownProcess("nats", natsInstance.Shutdown)
		jetStream, err := natsInstance.GetStreamingClient()
		if err != nil {
			return fmt.Errorf("failed to get jetstream client: %w", err)
		}
		accountInfo, err := jetStream.AccountInfo()
		if err != nil {
			return fmt.Errorf("failed to get jetstream account info: %w", err)
		}
		fmt.Printf("queue at address[%s] is reachable (%v streams, %v consumers)\n", natsAddr, accountInfo.Streams, accountInfo.Consumers)
		return nil
	},
})
