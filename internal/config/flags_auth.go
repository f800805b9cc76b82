package config

import (
	"os"
	"time"

	"dotmac/internal/cli"

	"github.com/spf13/viper"
)

const (
	DatabaseUrl        = "database-url"
	AuthSecret         = "auth-secret"
	AuthBaseUrl        = "auth-base-url"
	SessionCache       = "session-cache"
	SessionJanitorCron = "session-janitor-cron"
	TotpIssuer         = "totp-issuer"
)

const (
	SessionCacheMemory = "memory"
	SessionCacheRedis  = "redis"
)

// flagEnvAliases maps an environment variable to the flag that may
// override it on the command line
var flagEnvAliases = map[string]string{
	EnvDatabaseUrl: DatabaseUrl,
	EnvAuthSecret:  AuthSecret,
	EnvAuthUrl:     AuthBaseUrl,
}

func GetAuthFlags() cli.Flags {
	return cli.Flags{
		{
			Name:         DatabaseUrl,
			DefaultValue: "",
			Usage:        "specifies the database url (postgres:// or mysql://)",
			Type:         cli.FlagTypeString,
			Env:          []string{EnvDotmacDatabaseUrl},
		},
		{
			Name:         AuthSecret,
			DefaultValue: "",
			Usage:        "specifies the session signing secret",
			Type:         cli.FlagTypeString,
			Env:          []string{EnvAuthSecret, EnvJwtSecret},
		},
		{
			Name:         AuthBaseUrl,
			DefaultValue: "",
			Usage:        "specifies the public base url of the auth service",
			Type:         cli.FlagTypeString,
			Env:          []string{EnvAuthUrl, EnvPublicApiUrl},
		},
		{
			Name:         SessionCache,
			DefaultValue: SessionCacheMemory,
			Usage:        "specifies the session cookie cache backend (one of [memory, redis])",
			Type:         cli.FlagTypeString,
		},
		{
			Name:         SessionJanitorCron,
			DefaultValue: "@every 1h",
			Usage:        "specifies the cron schedule on which expired sessions are purged",
			Type:         cli.FlagTypeString,
		},
		{
			Name:         TotpIssuer,
			DefaultValue: "dotmac",
			Usage:        "specifies the issuer shown in authenticator apps",
			Type:         cli.FlagTypeString,
		},
	}
}

// ViperGetenv is a getenv for LoadAuth that prefers values set on the
// command line over the environment
func ViperGetenv(key string) string {
	if flag, ok := flagEnvAliases[key]; ok {
		if value := viper.GetString(flag); value != "" {
			return value
		}
	}
	return os.Getenv(key)
}

const (
	HooksMaxAttempts = "hooks-max-attempts"
	HooksBackoff     = "hooks-backoff"
	HooksQueue       = "hooks-queue"
	WebhookUrl       = "webhook-url"
	WebhookSecret    = "webhook-secret"
	BillingApiUrl    = "billing-api-url"
	BillingApiToken  = "billing-api-token"
)

const (
	HooksQueueMemory = "memory"
	HooksQueueNats   = "nats"
)

func GetHooksFlags() cli.Flags {
	return cli.Flags{
		{
			Name:         HooksQueue,
			DefaultValue: HooksQueueMemory,
			Usage:        "specifies the queue organization events are delivered through (one of [memory, nats])",
			Type:         cli.FlagTypeString,
		},
		{
			Name:         HooksMaxAttempts,
			DefaultValue: 5,
			Usage:        "specifies how many times an organization event is delivered before it is given up on",
			Type:         cli.FlagTypeInteger,
		},
		{
			Name:         HooksBackoff,
			DefaultValue: 10 * time.Second,
			Usage:        "specifies the fixed delay before a failed organization event is redelivered",
			Type:         cli.FlagTypeDuration,
		},
		{
			Name:         WebhookUrl,
			DefaultValue: "",
			Usage:        "when defined, organization create/delete events are POSTed to this url",
			Type:         cli.FlagTypeString,
		},
		{
			Name:         WebhookSecret,
			DefaultValue: "",
			Usage:        "specifies the shared secret sent in the X-Webhook-Secret header",
			Type:         cli.FlagTypeString,
		},
		{
			Name:         BillingApiUrl,
			DefaultValue: "",
			Usage:        "when defined, organizations are provisioned in billing through this backend url",
			Type:         cli.FlagTypeString,
		},
		{
			Name:         BillingApiToken,
			DefaultValue: "",
			Usage:        "specifies the bearer token used against the billing backend",
			Type:         cli.FlagTypeString,
		},
	}
}
