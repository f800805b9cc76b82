package config

import (
	"dotmac/internal/cli"
)

const (
	SmtpHostname      = "smtp-hostname"
	SmtpPort          = "smtp-port"
	SmtpUsername      = "smtp-username"
	SmtpPassword      = "smtp-password"
	SmtpSenderAddress = "smtp-sender-address"
	SmtpSenderName    = "smtp-sender-name"
)

// GetSmtpFlags returns the flags for delivering verification emails,
// without an smtp-hostname the links are written to the log
func GetSmtpFlags() cli.Flags {
	return cli.Flags{
		{
			Name:         SmtpHostname,
			DefaultValue: "",
			Usage:        "Specifies the hostname of the smtp server",
			Type:         cli.FlagTypeString,
		},
		{
			Name:         SmtpPort,
			DefaultValue: 587,
			Usage:        "Specifies the port of the smtp server",
			Type:         cli.FlagTypeInteger,
		},
		{
			Name:         SmtpUsername,
			DefaultValue: "",
			Usage:        "Specifies the username to authenticate with",
			Type:         cli.FlagTypeString,
		},
		{
			Name:         SmtpPassword,
			DefaultValue: "",
			Usage:        "Specifies the password to authenticate with",
			Type:         cli.FlagTypeString,
		},
		{
			Name:         SmtpSenderAddress,
			DefaultValue: "noreply@localhost",
			Usage:        "Specifies the From address of outgoing emails",
			Type:         cli.FlagTypeString,
		},
		{
			Name:         SmtpSenderName,
			DefaultValue: "dotmac",
			Usage:        "Specifies the From name of outgoing emails",
			Type:         cli.FlagTypeString,
		},
	}
}
