package realtime

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dotmac/internal/common"
)

type NewSSEClientOpts struct {
	Url   string
	Token string

	// Enabled false makes Start a no-op
	Enabled           bool
	ReconnectInterval time.Duration
	HttpClient        *http.Client
	Now               func() time.Time
	ServiceLogs       chan<- common.ServiceLog
}

func NewSSEClient(opts NewSSEClientOpts) (*SSEClient, error) {
	if opts.Url == "" {
		return nil, ErrorUrlUndefined
	}
	output := &SSEClient{
		url:               opts.Url,
		token:             opts.Token,
		enabled:           opts.Enabled,
		reconnectInterval: opts.ReconnectInterval,
		httpClient:        opts.HttpClient,
		now:               opts.Now,
		serviceLogs:       opts.ServiceLogs,
		registry:          NewRegistry(),
		done:              make(chan struct{}),
	}
	if output.reconnectInterval <= 0 {
		output.reconnectInterval = DefaultReconnectInterval
	}
	if output.httpClient == nil {
		output.httpClient = &http.Client{}
	}
	if output.now == nil {
		output.now = time.Now
	}
	if output.serviceLogs == nil {
		output.serviceLogs = common.GetNoopServiceLog()
	}
	return output, nil
}

// SSEClient keeps one event stream open and reconnects at a fixed
// interval for as long as it runs
type SSEClient struct {
	url               string
	token             string
	enabled           bool
	reconnectInterval time.Duration
	httpClient        *http.Client
	now               func() time.Time
	serviceLogs       chan<- common.ServiceLog
	registry          *Registry

	connections atomic.Int32
	connected   atomic.Bool
	cancel      context.CancelFunc
	done        chan struct{}
	startOnce   sync.Once
	closeOnce   sync.Once
}

func (s *SSEClient) Subscribe(eventType EventType, handler Handler) func() {
	return s.registry.Subscribe(eventType, handler)
}

func (s *SSEClient) IsConnected() bool {
	return s.connected.Load()
}

// Connections counts successful connects, reconnects included
func (s *SSEClient) Connections() int {
	return int(s.connections.Load())
}

// Start returns false without connecting when the client is disabled or
// has no token
func (s *SSEClient) Start(ctx context.Context) bool {
	if !s.enabled || s.token == "" {
		return false
	}
	started := false
	s.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		started = true
		go s.run(runCtx)
	})
	return started
}

// Close stops the stream and deregisters every handler
func (s *SSEClient) Close() {
	s.closeOnce.Do(func() {
		s.startOnce.Do(func() { close(s.done) })
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
		s.registry.Clear()
	})
}

func (s *SSEClient) run(ctx context.Context) {
	defer close(s.done)
	for {
		if err := s.stream(ctx); err != nil && ctx.Err() == nil {
			s.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "event stream[%s] dropped, reconnecting in %v: %s", s.url, s.reconnectInterval, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.reconnectInterval):
		}
	}
}

func (s *SSEClient) stream(ctx context.Context) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Accept", "text/event-stream")
	request.Header.Set("Cache-Control", "no-cache")
	request.Header.Set("Authorization", "Bearer "+s.token)
	response, err := s.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %v", response.StatusCode)
	}
	s.connections.Add(1)
	s.connected.Store(true)
	defer s.connected.Store(false)

	scanner := bufio.NewScanner(response.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	eventName := ""
	data := []string{}
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				s.dispatch(EventType(eventName), strings.Join(data, "\n"))
			}
			eventName = ""
			data = data[:0]
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("stream closed by server")
}

func (s *SSEClient) dispatch(eventName EventType, payload string) {
	event, err := decodeEvent([]byte(payload), eventName, s.now())
	if err != nil {
		s.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "dropping unreadable event from stream[%s]: %s", s.url, err)
		return
	}
	s.registry.Dispatch(*event)
}
