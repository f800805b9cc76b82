package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"dotmac/internal/common"

	"github.com/gorilla/websocket"
)

type frameType string

const (
	frameSubscribe      frameType = "subscribe"
	frameUnsubscribe    frameType = "unsubscribe"
	frameCancelJob      frameType = "cancel_job"
	framePauseJob       frameType = "pause_job"
	frameResumeJob      frameType = "resume_job"
	frameCancelCampaign frameType = "cancel_campaign"
	framePauseCampaign  frameType = "pause_campaign"
	frameResumeCampaign frameType = "resume_campaign"
)

// frame is every client to server message
type frame struct {
	Type       frameType   `json:"type"`
	EventTypes []EventType `json:"event_types,omitempty"`
	JobId      string      `json:"job_id,omitempty"`
	CampaignId string      `json:"campaign_id,omitempty"`
}

type NewWebSocketClientOpts struct {
	Url     string
	Token   string
	Enabled bool

	ReconnectInterval time.Duration

	// MaxReconnectAttempts bounds consecutive failed connects, a
	// successful connect resets the count
	MaxReconnectAttempts int
	Dialer               *websocket.Dialer
	Now                  func() time.Time
	ServiceLogs          chan<- common.ServiceLog
}

func NewWebSocketClient(opts NewWebSocketClientOpts) (*WebSocketClient, error) {
	if opts.Url == "" {
		return nil, ErrorUrlUndefined
	}
	output := &WebSocketClient{
		url:                  opts.Url,
		token:                opts.Token,
		enabled:              opts.Enabled,
		reconnectInterval:    opts.ReconnectInterval,
		maxReconnectAttempts: opts.MaxReconnectAttempts,
		dialer:               opts.Dialer,
		now:                  opts.Now,
		serviceLogs:          opts.ServiceLogs,
		registry:             NewRegistry(),
		done:                 make(chan struct{}),
	}
	if output.reconnectInterval <= 0 {
		output.reconnectInterval = DefaultReconnectInterval
	}
	if output.maxReconnectAttempts <= 0 {
		output.maxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if output.dialer == nil {
		output.dialer = websocket.DefaultDialer
	}
	if output.now == nil {
		output.now = time.Now
	}
	if output.serviceLogs == nil {
		output.serviceLogs = common.GetNoopServiceLog()
	}
	return output, nil
}

// WebSocketClient multiplexes every subscribed event type over a single
// connection
type WebSocketClient struct {
	url                  string
	token                string
	enabled              bool
	reconnectInterval    time.Duration
	maxReconnectAttempts int
	dialer               *websocket.Dialer
	now                  func() time.Time
	serviceLogs          chan<- common.ServiceLog
	registry             *Registry

	conn       *websocket.Conn
	connMutex  sync.Mutex
	writeMutex sync.Mutex

	failedAttempts atomic.Int32
	cancel         context.CancelFunc
	done           chan struct{}
	startOnce      sync.Once
	closeOnce      sync.Once
}

func (w *WebSocketClient) IsConnected() bool {
	w.connMutex.Lock()
	defer w.connMutex.Unlock()
	return w.conn != nil
}

// Done is closed once the client stops for good, either closed or out
// of reconnect attempts
func (w *WebSocketClient) Done() <-chan struct{} {
	return w.done
}

func (w *WebSocketClient) FailedAttempts() int {
	return int(w.failedAttempts.Load())
}

func (w *WebSocketClient) Start(ctx context.Context) bool {
	if !w.enabled || w.token == "" {
		return false
	}
	started := false
	w.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		w.cancel = cancel
		started = true
		go w.run(runCtx)
	})
	return started
}

// Close closes the connection and deregisters every handler
func (w *WebSocketClient) Close() {
	w.closeOnce.Do(func() {
		w.startOnce.Do(func() { close(w.done) })
		if w.cancel != nil {
			w.cancel()
			w.closeConn()
			<-w.done
		}
		w.registry.Clear()
	})
}

// Subscribe registers handler and asks the server for eventType when this
// is its first handler. The returned function unsubscribes
func (w *WebSocketClient) Subscribe(eventType EventType, handler Handler) func() {
	first := !w.hasHandlers(eventType)
	remove := w.registry.Subscribe(eventType, handler)
	if first {
		w.sendIfConnected(frame{Type: frameSubscribe, EventTypes: []EventType{eventType}})
	}
	return func() {
		remove()
		if !w.hasHandlers(eventType) {
			w.sendIfConnected(frame{Type: frameUnsubscribe, EventTypes: []EventType{eventType}})
		}
	}
}

func (w *WebSocketClient) CancelJob(jobId string) error {
	return w.send(frame{Type: frameCancelJob, JobId: jobId})
}

func (w *WebSocketClient) PauseJob(jobId string) error {
	return w.send(frame{Type: framePauseJob, JobId: jobId})
}

func (w *WebSocketClient) ResumeJob(jobId string) error {
	return w.send(frame{Type: frameResumeJob, JobId: jobId})
}

func (w *WebSocketClient) CancelCampaign(campaignId string) error {
	return w.send(frame{Type: frameCancelCampaign, CampaignId: campaignId})
}

func (w *WebSocketClient) PauseCampaign(campaignId string) error {
	return w.send(frame{Type: framePauseCampaign, CampaignId: campaignId})
}

func (w *WebSocketClient) ResumeCampaign(campaignId string) error {
	return w.send(frame{Type: frameResumeCampaign, CampaignId: campaignId})
}

func (w *WebSocketClient) hasHandlers(eventType EventType) bool {
	for _, registered := range w.registry.EventTypes() {
		if registered == eventType {
			return true
		}
	}
	return false
}

func (w *WebSocketClient) run(ctx context.Context) {
	defer close(w.done)
	for {
		conn, err := w.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failed := int(w.failedAttempts.Add(1))
			if failed > w.maxReconnectAttempts {
				w.serviceLogs <- common.ServiceLogf(common.LogLevelError, "websocket[%s] giving up after %v failed attempts: %s", w.url, failed, err)
				return
			}
			w.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "websocket[%s] connect attempt %v failed: %s", w.url, failed, err)
		} else {
			w.failedAttempts.Store(0)
			w.read(ctx, conn)
			if ctx.Err() != nil {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.reconnectInterval):
		}
	}
}

func (w *WebSocketClient) connect(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+w.token)
	conn, response, err := w.dialer.DialContext(ctx, w.url, header)
	if err != nil {
		if response != nil {
			return nil, fmt.Errorf("failed to connect (status %v): %w", response.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	w.connMutex.Lock()
	w.conn = conn
	w.connMutex.Unlock()
	if eventTypes := w.registry.EventTypes(); len(eventTypes) > 0 {
		if err := w.send(frame{Type: frameSubscribe, EventTypes: eventTypes}); err != nil {
			w.closeConn()
			return nil, fmt.Errorf("failed to resubscribe: %w", err)
		}
	}
	return conn, nil
}

func (w *WebSocketClient) read(ctx context.Context, conn *websocket.Conn) {
	defer w.closeConn()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				w.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "websocket[%s] dropped, reconnecting in %v: %s", w.url, w.reconnectInterval, err)
			}
			return
		}
		event, err := decodeEvent(payload, "", w.now())
		if err != nil {
			w.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "dropping unreadable websocket message: %s", err)
			continue
		}
		w.registry.Dispatch(*event)
	}
}

func (w *WebSocketClient) closeConn() {
	w.connMutex.Lock()
	defer w.connMutex.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}

// send is fire-and-forget, nothing acknowledges a frame
func (w *WebSocketClient) send(message frame) error {
	w.connMutex.Lock()
	conn := w.conn
	w.connMutex.Unlock()
	if conn == nil {
		return ErrorNotConnected
	}
	w.writeMutex.Lock()
	defer w.writeMutex.Unlock()
	if err := conn.WriteJSON(message); err != nil {
		return fmt.Errorf("failed to send %s: %w", message.Type, err)
	}
	return nil
}

func (w *WebSocketClient) sendIfConnected(message frame) {
	if err := w.send(message); err != nil && !errors.Is(err, ErrorNotConnected) {
		w.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "websocket[%s]: %s", w.url, err)
	}
}
