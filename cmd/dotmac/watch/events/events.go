package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"dotmac/internal/cli"
	"dotmac/internal/config"
	"dotmac/internal/realtime"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const Types = "types"

var flags cli.Flags = config.GetApiFlags().
	Append(config.GetEventsFlags()).
	Append(cli.Flags{
		{
			Name:         Types,
			DefaultValue: []string{string(realtime.EventAll)},
			Usage:        "event types to print, * prints everything",
			Type:         cli.FlagTypeStringSlice,
		},
	})

type eventSource interface {
	Subscribe(realtime.EventType, realtime.Handler) func()
	Start(context.Context) bool
	Close()
}

var Command = cli.NewCommand(cli.CommandOpts{
	Name:    "watch.events",
	Flags:   flags,
	Use:     "events",
	Aliases: []string{"event", "e"},
	Short:   "Prints realtime platform events as json lines until interrupted",
	Run: func(cmd *cobra.Command, opts *cli.Command, args []string) error {
		eventsUrl := viper.GetString(config.EventsUrl)
		token := viper.GetString(config.ApiToken)
		var source eventSource
		var gaveUp <-chan struct{}
		switch viper.GetString(config.EventsTransport) {
		case config.EventsTransportSse:
			client, err := realtime.NewSSEClient(realtime.NewSSEClientOpts{
				Url:         eventsUrl,
				Token:       token,
				Enabled:     true,
				ServiceLogs: opts.GetServiceLogs(),
			})
			if err != nil {
				return fmt.Errorf("failed to create event stream client: %w", err)
			}
			source = client
		case config.EventsTransportWebsocket:
			client, err := realtime.NewWebSocketClient(realtime.NewWebSocketClientOpts{
				Url:         eventsUrl,
				Token:       token,
				Enabled:     true,
				ServiceLogs: opts.GetServiceLogs(),
			})
			if err != nil {
				return fmt.Errorf("failed to create websocket client: %w", err)
			}
			source = client
			gaveUp = client.Done()
		default:
			return fmt.Errorf("events transport[%s]: %w", viper.GetString(config.EventsTransport), cli.ErrorInvalidInput)
		}

		printEvent := newPrinter(os.Stdout)
		for _, eventType := range viper.GetStringSlice(Types) {
			source.Subscribe(realtime.EventType(eventType), printEvent)
		}
		if !source.Start(context.Background()) {
			return fmt.Errorf("an api token is required to watch events: %w", cli.ErrorInvalidInput)
		}
		opts.AddShutdownProcess("events", func() error {
			source.Close()
			return nil
		})
		logrus.Infof("watching events at url[%s]...", eventsUrl)

		stopped := make(chan struct{})
		go func() {
			opts.WaitForSignal()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-gaveUp:
			return fmt.Errorf("gave up reconnecting to url[%s]", eventsUrl)
		}
		return nil
	},
})

// newPrinter serialises events from concurrent handlers into one json
// document per line
func newPrinter(out io.Writer) realtime.Handler {
	var mutex sync.Mutex
	encoder := json.NewEncoder(out)
	return func(event realtime.Event) {
		mutex.Lock()
		defer mutex.Unlock()
		if err := encoder.Encode(event); err != nil {
			logrus.Warnf("failed to print event[%s]: %s", event.Type, err)
		}
	}
}
