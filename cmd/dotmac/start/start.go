package start

import (
	"dotmac/cmd/dotmac/start/server"

	"github.com/spf13/cobra"
)

func init() {
	Command.AddCommand(server.Command.Get())
}

var Command = &cobra.Command{
	Use:     "start",
	Aliases: []string{"st"},
	Short:   "Starts one of dotmac's services",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}
