package check

import (
	"dotmac/cmd/dotmac/check/cache"
	"dotmac/cmd/dotmac/check/database"
	"dotmac/cmd/dotmac/check/queue"

	"github.com/spf13/cobra"
)

func init() {
	Command.AddCommand(cache.Command.Get())
	Command.AddCommand(database.Command.Get())
	Command.AddCommand(queue.Command.Get())
}

var Command = &cobra.Command{
	Use:   "check",
	Short: "Checks connectivity to dotmac's dependencies",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}
