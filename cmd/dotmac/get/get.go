package get

import (
	"dotmac/cmd/dotmac/get/branding"
	"dotmac/cmd/dotmac/get/subscription"

	"github.com/spf13/cobra"
)

func init() {
	Command.AddCommand(branding.Command.Get())
	Command.AddCommand(subscription.Command.Get())
}

var Command = &cobra.Command{
	Use:   "get",
	Short: "Shows a single resource from the platform backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}
