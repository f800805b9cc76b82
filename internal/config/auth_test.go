package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func envOf(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestLoadAuthAliases(t *testing.T) {
	cfg := LoadAuth(envOf(map[string]string{
		EnvDotmacDatabaseUrl: "postgres://localhost/dotmac",
		EnvJwtSecret:         "secret",
		EnvPublicApiUrl:      "https://api.example.com",
	}))
	require.Equal(t, "postgres://localhost/dotmac", cfg.DatabaseUrl)
	require.Equal(t, "secret", cfg.Secret)
	require.Equal(t, "https://api.example.com", cfg.BaseUrl)
	require.False(t, cfg.Bypass)
	require.False(t, cfg.Production)

	primary := LoadAuth(envOf(map[string]string{
		EnvDatabaseUrl:       "mysql://primary",
		EnvDotmacDatabaseUrl: "mysql://secondary",
		EnvAuthSecret:        "primary",
		EnvJwtSecret:         "secondary",
	}))
	require.Equal(t, "mysql://primary", primary.DatabaseUrl)
	require.Equal(t, "primary", primary.Secret)
	require.Equal(t, DefaultBaseUrl, primary.BaseUrl)
}

func TestLoadAuthBypass(t *testing.T) {
	cases := []struct {
		name   string
		env    map[string]string
		bypass bool
		reason string
	}{
		{"none", map[string]string{}, false, ""},
		{"node env test", map[string]string{EnvNodeEnv: "test"}, true, EnvNodeEnv},
		{"auth bypass", map[string]string{EnvAuthBypass: "true"}, true, EnvAuthBypass},
		{"skip auth", map[string]string{EnvSkipAuth: "1"}, true, EnvSkipAuth},
		{"e2e", map[string]string{EnvE2eAuthBypass: "YES"}, true, EnvE2eAuthBypass},
		{"falsy", map[string]string{EnvAuthBypass: "false", EnvE2eAuthBypass: "0"}, false, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := LoadAuth(envOf(c.env))
			require.Equal(t, c.bypass, cfg.Bypass)
			require.Equal(t, c.reason, cfg.BypassReason)
		})
	}
}

func TestAuthValidate(t *testing.T) {
	err := LoadAuth(envOf(map[string]string{})).Validate()
	require.ErrorIs(t, err, ErrorMissingSecret)
	require.ErrorIs(t, err, ErrorMissingDatabaseUrl)

	require.NoError(t, LoadAuth(envOf(map[string]string{EnvNodeEnv: "test"})).Validate())

	weak := LoadAuth(envOf(map[string]string{
		EnvNodeEnv:     "production",
		EnvAuthSecret:  "short",
		EnvDatabaseUrl: "postgres://localhost/dotmac",
	}))
	require.True(t, weak.Production)
	require.ErrorIs(t, weak.Validate(), ErrorWeakSecret)

	ok := LoadAuth(envOf(map[string]string{
		EnvAuthSecret:  "development-secret",
		EnvDatabaseUrl: "postgres://localhost/dotmac",
	}))
	require.NoError(t, ok.Validate())
}
