package utils

import (
	"dotmac/cmd/dotmac/utils/get"

	"github.com/spf13/cobra"
)

func init() {
	Command.AddCommand(get.Command)
}

var Command = &cobra.Command{
	Use:     "utils",
	Aliases: []string{"u"},
	Short:   "Developer utilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}
