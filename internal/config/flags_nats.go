package config

import "dotmac/internal/cli"

const (
	NatsAddr      = "nats-addr"
	NatsUsername  = "nats-username"
	NatsPassword  = "nats-password"
	NatsNkeyValue = "nats-nkey-value"
	NatsStream    = "nats-stream"
)

func GetNatsFlags() cli.Flags {
	return cli.Flags{
		{
			Name:         NatsAddr,
			DefaultValue: "localhost:4222",
			Usage:        "Specifies the hostname (including port) of the NATS server",
			Type:         cli.FlagTypeString,
		},
		{
			Name:         NatsUsername,
			DefaultValue: "dotmac",
			Usage:        "Specifies the username used to login to NATS",
			Type:         cli.FlagTypeString,
		},
		{
			Name:         NatsPassword,
			DefaultValue: "",
			Usage:        "Specifies the password used to login to NATS",
			Type:         cli.FlagTypeString,
		},
		{
			Name:         NatsNkeyValue,
			DefaultValue: "",
			Usage:        "Specifies the nkey seed used to login to NATS, takes precedence over username/password",
			Type:         cli.FlagTypeString,
		},
		{
			Name:         NatsStream,
			DefaultValue: "dotmac",
			Usage:        "Specifies the JetStream stream organization events are published to",
			Type:         cli.FlagTypeString,
		},
	}
}
