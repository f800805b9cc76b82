package config

import "dotmac/internal/cli"

const (
	RedisAddr      = "redis-addr"
	RedisUsername  = "redis-username"
	RedisPassword  = "redis-password"
	RedisDb        = "redis-db"
	RedisKeyPrefix = "redis-key-prefix"
)

func GetRedisFlags() cli.Flags {
	return cli.Flags{
		{
			Name:         RedisAddr,
			DefaultValue: "localhost:6379",
			Usage:        "defines the hostname (including port) of the redis server holding the session cookie cache",
			Type:         cli.FlagTypeString,
		},
		{
			Name:         RedisUsername,
			DefaultValue: "",
			Usage:        "defines the username used to login to redis",
			Type:         cli.FlagTypeString,
		},
		{
			Name:         RedisPassword,
			DefaultValue: "",
			Usage:        "defines the password used to login to redis",
			Type:         cli.FlagTypeString,
		},
		{
			Name:         RedisDb,
			DefaultValue: 0,
			Usage:        "defines the redis logical database to use",
			Type:         cli.FlagTypeInteger,
		},
		{
			Name:         RedisKeyPrefix,
			DefaultValue: "dotmac:session",
			Usage:        "defines the prefix of every session cache key",
			Type:         cli.FlagTypeString,
		},
	}
}
