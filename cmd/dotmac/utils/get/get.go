package get

import (
	"dotmac/cmd/dotmac/utils/get/totp"

	"github.com/spf13/cobra"
)

func init() {
	Command.AddCommand(totp.Command)
}

var Command = &cobra.Command{
	Use:   "get",
	Short: "Generates values useful when testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}
