package config

import (
	"fmt"

	"dotmac/internal/cli"
	"dotmac/internal/common"
	"dotmac/pkg/api"

	"github.com/spf13/viper"
)

const (
	ApiUrl          = "api-url"
	ApiToken        = "api-token"
	EventsUrl       = "events-url"
	EventsTransport = "events-transport"
)

const (
	EventsTransportSse       = "sse"
	EventsTransportWebsocket = "websocket"
)

// GetApiFlags are used by commands that talk to the platform backend
// rather than serving it
func GetApiFlags() cli.Flags {
	return cli.Flags{
		{
			Name:         ApiUrl,
			DefaultValue: "http://localhost:8000/api/v1",
			Usage:        "defines the base url of the platform backend",
			Type:         cli.FlagTypeString,
		},
		{
			Name:         ApiToken,
			DefaultValue: "",
			Usage:        "defines the bearer token sent to the platform backend",
			Type:         cli.FlagTypeString,
		},
	}
}

func GetEventsFlags() cli.Flags {
	return cli.Flags{
		{
			Name:         EventsUrl,
			DefaultValue: "",
			Usage:        "defines the url of the realtime event stream, ws:// and wss:// urls need --events-transport websocket",
			Type:         cli.FlagTypeString,
		},
		{
			Name:         EventsTransport,
			DefaultValue: EventsTransportSse,
			Usage:        "one of [sse, websocket]",
			Type:         cli.FlagTypeString,
		},
	}
}

// NewApiClient builds a backend client from the values bound by
// GetApiFlags, failed requests are logged to serviceLogs
func NewApiClient(id string, serviceLogs chan<- common.ServiceLog) (*api.Client, error) {
	opts := api.NewClientOpts{
		BaseUrl:     viper.GetString(ApiUrl),
		Id:          id,
		ServiceLogs: serviceLogs,
	}
	if token := viper.GetString(ApiToken); token != "" {
		opts.BearerAuth = &api.NewClientBearerAuthOpts{Token: token}
	}
	client, err := api.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}
	return client, nil
}
