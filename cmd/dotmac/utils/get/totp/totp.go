package totp

import (
	"fmt"
	"time"

	"dotmac/internal/auth"
	"dotmac/internal/cli"
	"dotmac/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	Seed    = "seed"
	Account = "account"
	Qr      = "qr"
)

var flags cli.Flags = cli.Flags{
	{
		Name:         Seed,
		DefaultValue: "",
		Usage:        "the seed to use for generating totp codes, a new one is generated when empty",
		Type:         cli.FlagTypeString,
	},
	{
		Name:         Account,
		DefaultValue: "user@example.com",
		Usage:        "the account name embedded in a generated seed's otpauth url",
		Type:         cli.FlagTypeString,
	},
	{
		Name:         config.TotpIssuer,
		DefaultValue: "dotmac",
		Usage:        "the issuer embedded in a generated seed's otpauth url",
		Type:         cli.FlagTypeString,
	},
	{
		Name:         Qr,
		DefaultValue: false,
		Usage:        "when specified, prints the otpauth url of a generated seed as a terminal qr code",
		Type:         cli.FlagTypeBool,
	},
}

func init() {
	flags.AddToCommand(Command)
}

var Command = &cobra.Command{
	Use:   "totp",
	Short: "Generates a TOTP seed and ten minutes worth of TOTP codes",
	Long:  "Generates a TOTP seed and ten minutes worth of TOTP codes. If no seed is specified, a new seed is generated first",
	PreRun: func(cmd *cobra.Command, args []string) {
		flags.BindViper(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		seed := viper.GetString(Seed)
		if seed == "" {
			uriOpts := auth.GetTotpUriOpts{
				Issuer:    viper.GetString(config.TotpIssuer),
				AccountId: viper.GetString(Account),
			}
			var err error
			seed, err = auth.CreateTotpSeed(uriOpts.Issuer, uriOpts.AccountId)
			if err != nil {
				return fmt.Errorf("failed to create totp seed: %w", err)
			}
			logrus.Infof("generated the following totp seed")
			fmt.Println(seed)
			if viper.GetBool(Qr) {
				uriOpts.Secret = seed
				qr, err := auth.GetTotpQrCode(uriOpts)
				if err != nil {
					return fmt.Errorf("failed to render qr code: %w", err)
				}
				fmt.Println(qr)
			}
		}
		codes, err := auth.CreateTotpTokens(seed, time.Now(), 10*time.Minute)
		if err != nil {
			return fmt.Errorf("failed to create totp codes: %w", err)
		}
		logrus.Infof("generated the following totp codes:")
		for _, code := range codes {
			fmt.Println(code)
		}
		return nil
	},
}
