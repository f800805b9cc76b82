package roles

import (
	"fmt"
	"io"
	"os"
	"strings"

	"dotmac/internal/accesscontrol"
	"dotmac/internal/cli"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type roleOutput struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Permissions []string `json:"permissions" yaml:"permissions"`
}

var Command = cli.NewCommand(cli.CommandOpts{
	Name:    "list.roles",
	Use:     "roles",
	Aliases: []string{"role", "r"},
	Short:   "Lists the built-in organization roles and what they grant",
	Run: func(cmd *cobra.Command, opts *cli.Command, args []string) error {
		return render(os.Stdout, cli.OutputFormat(viper.GetString("output")), accesscontrol.Default())
	},
})

func render(out io.Writer, format cli.OutputFormat, registry *accesscontrol.Registry) error {
	roles := []roleOutput{}
	for _, role := range registry.Roles() {
		permissions, err := registry.Permissions(role.Name)
		if err != nil {
			return err
		}
		row := roleOutput{Name: role.Name, Description: role.Description, Permissions: []string{}}
		for _, permission := range permissions {
			row.Permissions = append(row.Permissions, permission.String())
		}
		roles = append(roles, row)
	}
	if format != cli.OutputFormatText && format != "" {
		return cli.PrintStructured(out, format, roles)
	}
	table := cli.NewTable(cli.NewTableOpts{
		Headers: []string{"name", "description", "permissions"},
		Rows: func(t *cli.Table) error {
			for _, role := range roles {
				if err := t.NewRow(role.Name, role.Description, strings.Join(role.Permissions, "\n")); err != nil {
					return err
				}
			}
			return nil
		},
	})
	_, err := fmt.Fprintln(out, table.Render().GetString())
	return err
}
