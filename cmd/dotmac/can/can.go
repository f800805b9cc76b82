package can

import (
	"errors"
	"fmt"
	"io"
	"os"

	"dotmac/internal/accesscontrol"
	"dotmac/internal/cli"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var ErrorNotPermitted = errors.New("not_permitted")

type canOutput struct {
	Role     string `json:"role" yaml:"role"`
	Resource string `json:"resource" yaml:"resource"`
	Action   string `json:"action" yaml:"action"`
	Allowed  bool   `json:"allowed" yaml:"allowed"`
}

var Command = &cobra.Command{
	Use:     "can <role> <resource> <action>",
	Short:   "Evaluates whether a built-in role grants an action on a resource",
	Long:    "Evaluates whether a built-in role grants an action on a resource, exits non-zero when it does not",
	Example: "  dotmac can admin organization delete",
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return evaluate(os.Stdout, cli.OutputFormat(viper.GetString("output")), accesscontrol.Default(), args[0], args[1], args[2])
	},
}

func evaluate(out io.Writer, format cli.OutputFormat, registry *accesscontrol.Registry, role, resource, action string) error {
	if !registry.HasRole(role) {
		return fmt.Errorf("role[%s]: %w", role, accesscontrol.ErrorUnknownRole)
	}
	permission, err := accesscontrol.ParsePermission(resource + ":" + action)
	if err != nil {
		return err
	}
	output := canOutput{
		Role:     role,
		Resource: string(permission.Resource),
		Action:   string(permission.Action),
		Allowed:  registry.Can(role, permission.Resource, permission.Action),
	}
	if format == cli.OutputFormatJson || format == cli.OutputFormatYaml {
		if err := cli.PrintStructured(out, format, output); err != nil {
			return err
		}
	} else {
		verdict := "can"
		if !output.Allowed {
			verdict = "cannot"
		}
		fmt.Fprintf(out, "%s %s %s %s\n", role, verdict, output.Action, output.Resource)
	}
	if !output.Allowed {
		return fmt.Errorf("%s on %s for role[%s]: %w", output.Action, output.Resource, role, ErrorNotPermitted)
	}
	return nil
}
