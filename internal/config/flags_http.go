package config

import (
	"fmt"

	"dotmac/internal/cli"
)

const (
	ListenAddr       = "listen-addr"
	RateLimitRps     = "rate-limit-rps"
	RateLimitBurst   = "rate-limit-burst"
	AllowedIps       = "allowed-ips"
	LoginRedirectUrl = "login-redirect-url"
)

func GetListenAddrFlags(port int) cli.Flags {
	return cli.Flags{
		{
			Name:         ListenAddr,
			DefaultValue: fmt.Sprintf("0.0.0.0:%v", port),
			Usage:        "specifies the listen address of the server",
			Type:         cli.FlagTypeString,
		},
	}
}

func GetHttpFlags() cli.Flags {
	return cli.Flags{
		{
			Name:         RateLimitRps,
			DefaultValue: 10.0,
			Usage:        "specifies the sustained requests per second allowed per client ip, 0 disables rate limiting",
			Type:         cli.FlagTypeFloat,
		},
		{
			Name:         RateLimitBurst,
			DefaultValue: 20,
			Usage:        "specifies the burst of requests allowed per client ip",
			Type:         cli.FlagTypeInteger,
		},
		{
			Name:         AllowedIps,
			DefaultValue: []string{},
			Usage:        "when defined, only requests from these cidrs are served",
			Type:         cli.FlagTypeStringSlice,
		},
		{
			Name:         LoginRedirectUrl,
			DefaultValue: "/login",
			Usage:        "specifies where browsers are redirected when a session is missing or forbidden",
			Type:         cli.FlagTypeString,
		},
	}
}
