package dotmac

import (
	"fmt"
	"os"
	"strings"

	"dotmac/cmd/dotmac/can"
	"dotmac/cmd/dotmac/check"
	"dotmac/cmd/dotmac/get"
	"dotmac/cmd/dotmac/list"
	"dotmac/cmd/dotmac/run"
	"dotmac/cmd/dotmac/start"
	"dotmac/cmd/dotmac/utils"
	"dotmac/cmd/dotmac/watch"
	"dotmac/internal/cli"
	"dotmac/internal/common"
	"dotmac/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var persistentFlags cli.Flags = cli.Flags{
	{
		Name:         "config",
		Short:        'C',
		DefaultValue: "~/.dotmac/config",
		Usage:        "Defines the location of the global configuration used",
		Type:         cli.FlagTypeString,
	},
	{
		Name:         "log-level",
		Short:        'l',
		DefaultValue: "info",
		Usage:        fmt.Sprintf("Sets the log level (one of [%s])", logLevels()),
		Type:         cli.FlagTypeString,
	},
	{
		Name:         "output",
		Short:        'o',
		DefaultValue: string(cli.OutputFormatText),
		Usage:        fmt.Sprintf("Sets the output format where applicable (one of [%s])", strings.Join(cli.OutputFormats, ", ")),
		Type:         cli.FlagTypeString,
	},
}

func init() {
	Command.AddCommand(can.Command)
	Command.AddCommand(check.Command)
	Command.AddCommand(get.Command)
	Command.AddCommand(list.Command)
	Command.AddCommand(run.Command)
	Command.AddCommand(start.Command)
	Command.AddCommand(utils.Command)
	Command.AddCommand(watch.Command)
	Command.SilenceErrors = true
	Command.SilenceUsage = true

	persistentFlags.AddToCommand(Command, true)

	logrus.SetOutput(os.Stderr)
	cobra.OnInitialize(func() {
		persistentFlags.BindViper(Command, true)
		cli.InitLogging(viper.GetString("log-level"))
		configPath := viper.GetString("config")
		logrus.Debugf("using configuration at path[%s]", configPath)
		if err := config.LoadGlobal(configPath); err != nil {
			logrus.Debugf("no global configuration loaded: %s", err)
		}
	})

	cli.InitConfig()
}

func logLevels() string {
	levels := make([]string, 0, len(common.LogLevels))
	for _, level := range common.LogLevels {
		levels = append(levels, string(level))
	}
	return strings.Join(levels, ", ")
}

var Command = &cobra.Command{
	Use:     "dotmac",
	Short:   "Auth, organizations and platform tooling for the DotMac ISP platform",
	Version: config.GetVersion(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}
