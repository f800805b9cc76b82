package config

import (
	"dotmac/internal/cli"
)

const (
	MongoHosts    = "mongo-hosts"
	MongoUsername = "mongo-username"
	MongoPassword = "mongo-password"
	MongoDatabase = "mongo-database"
)

// GetMongoFlags returns the flags of the audit log store, leaving
// mongo-hosts empty keeps audit entries in memory
func GetMongoFlags() cli.Flags {
	return cli.Flags{
		{
			Name:         MongoHosts,
			DefaultValue: []string{},
			Usage:        "Specifies the host:port(s) of the MongoDB instance holding the audit log",
			Type:         cli.FlagTypeStringSlice,
		},
		{
			Name:         MongoUsername,
			DefaultValue: "dotmac",
			Usage:        "Specifies the username to use to login to the MongoDB instance",
			Type:         cli.FlagTypeString,
		},
		{
			Name:         MongoPassword,
			DefaultValue: "",
			Usage:        "Specifies the password to use to login to the MongoDB instance",
			Type:         cli.FlagTypeString,
		},
		{
			Name:         MongoDatabase,
			DefaultValue: "audit",
			Usage:        "Specifies the database audit entries are written to",
			Type:         cli.FlagTypeString,
		},
	}
}
