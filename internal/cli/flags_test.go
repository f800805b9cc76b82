package cli

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestFlagResolutionOrder(t *testing.T) {
	command := &cobra.Command{Use: "test"}
	flags := Flags{
		{
			Name:         "sample-database-url",
			DefaultValue: "postgres://default",
			Usage:        "database",
			Type:         FlagTypeString,
			Env:          []string{"DOTMAC_SAMPLE_DATABASE_URL"},
		},
	}
	flags.AddToCommand(command)
	flags.BindViper(command)
	require.Contains(t, command.Flags().Lookup("sample-database-url").Usage, "env: SAMPLE_DATABASE_URL, DOTMAC_SAMPLE_DATABASE_URL")

	require.Equal(t, "postgres://default", viper.GetString("sample-database-url"))
	t.Setenv("DOTMAC_SAMPLE_DATABASE_URL", "postgres://alias")
	require.Equal(t, "postgres://alias", viper.GetString("sample-database-url"))
	t.Setenv("SAMPLE_DATABASE_URL", "postgres://primary")
	require.Equal(t, "postgres://primary", viper.GetString("sample-database-url"))
	require.NoError(t, command.Flags().Set("sample-database-url", "postgres://flag"))
	require.Equal(t, "postgres://flag", viper.GetString("sample-database-url"))
}

func TestFlagTypes(t *testing.T) {
	command := &cobra.Command{Use: "test"}
	Flags{
		{Name: "retries", Short: 'r', DefaultValue: 3, Type: FlagTypeInteger},
		{Name: "backoff", DefaultValue: time.Second, Type: FlagTypeDuration},
		{Name: "hosts", DefaultValue: []string{"a"}, Type: FlagTypeStringSlice},
	}.AddToCommand(command, true)
	require.Equal(t, "r", command.PersistentFlags().Lookup("retries").Shorthand)
	require.Equal(t, "1s", command.PersistentFlags().Lookup("backoff").DefValue)
	require.Equal(t, "[a]", command.PersistentFlags().Lookup("hosts").DefValue)

	require.Panics(t, func() {
		Flags{{Name: "bad", DefaultValue: "", Type: "complex"}}.AddToCommand(command)
	})
}
