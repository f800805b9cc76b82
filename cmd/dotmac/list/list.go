package list

import (
	"dotmac/cmd/dotmac/list/audit"
	"dotmac/cmd/dotmac/list/modules"
	"dotmac/cmd/dotmac/list/roles"
	"dotmac/cmd/dotmac/list/users"

	"github.com/spf13/cobra"
)

func init() {
	Command.AddCommand(audit.Command.Get())
	Command.AddCommand(modules.Command.Get())
	Command.AddCommand(roles.Command.Get())
	Command.AddCommand(users.Command.Get())
}

var Command = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Lists resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}
