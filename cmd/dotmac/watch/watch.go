package watch

import (
	"dotmac/cmd/dotmac/watch/events"

	"github.com/spf13/cobra"
)

func init() {
	Command.AddCommand(events.Command.Get())
}

var Command = &cobra.Command{
	Use:   "watch",
	Short: "Follows live streams from the platform backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}
