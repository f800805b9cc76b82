package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	var typed, all atomic.Int32
	unsubscribe := registry.Subscribe(EventAlertRaised, func(Event) { typed.Add(1) })
	registry.Subscribe(EventAll, func(Event) { all.Add(1) })

	registry.Dispatch(Event{Type: EventAlertRaised})
	registry.Dispatch(Event{Type: EventTicketCreated})
	assert.Equal(t, int32(1), typed.Load())
	assert.Equal(t, int32(2), all.Load())
	assert.Equal(t, 2, registry.Count())

	unsubscribe()
	unsubscribe()
	registry.Dispatch(Event{Type: EventAlertRaised})
	assert.Equal(t, int32(1), typed.Load())
	assert.Equal(t, []EventType{EventAll}, registry.EventTypes())

	registry.Clear()
	assert.Equal(t, 0, registry.Count())
}

func TestRegistryHandlerMayUnsubscribeItself(t *testing.T) {
	registry := NewRegistry()
	calls := 0
	var unsubscribe func()
	unsubscribe = registry.Subscribe(EventJobCompleted, func(Event) {
		calls++
		unsubscribe()
	})
	registry.Dispatch(Event{Type: EventJobCompleted})
	registry.Dispatch(Event{Type: EventJobCompleted})
	assert.Equal(t, 1, calls)
}

func TestDecodeEvent(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	event, err := decodeEvent([]byte(`{"data":{"id":"t1"}}`), EventTicketUpdated, now)
	require.NoError(t, err)
	assert.Equal(t, EventTicketUpdated, event.Type)
	assert.Equal(t, now, event.Timestamp)
	assert.JSONEq(t, `{"id":"t1"}`, string(event.Data))

	_, err = decodeEvent([]byte(`{"data":{}}`), "", now)
	assert.Error(t, err)
	_, err = decodeEvent([]byte(`nope`), EventAll, now)
	assert.Error(t, err)
}

func sseServer(t *testing.T, hold bool, authorization *atomic.Value) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authorization != nil {
			authorization.Store(r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Errorf("response writer cannot flush")
			return
		}
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "event: alert.raised\ndata: {\"data\":{\"severity\":\"major\"}}\n\n")
		flusher.Flush()
		if hold {
			<-r.Context().Done()
		}
	}))
}

func TestSSEClientDispatchesEvents(t *testing.T) {
	authorization := &atomic.Value{}
	server := sseServer(t, true, authorization)
	defer server.Close()

	client, err := NewSSEClient(NewSSEClientOpts{Url: server.URL, Token: "t0k3n", Enabled: true})
	require.NoError(t, err)
	received := make(chan Event, 1)
	client.Subscribe(EventAlertRaised, func(event Event) { received <- event })
	require.True(t, client.Start(context.Background()))
	defer client.Close()

	select {
	case event := <-received:
		assert.Equal(t, EventAlertRaised, event.Type)
		assert.JSONEq(t, `{"severity":"major"}`, string(event.Data))
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
	assert.True(t, client.IsConnected())
	assert.Equal(t, "Bearer t0k3n", authorization.Load())
}

func TestSSEClientReconnects(t *testing.T) {
	server := sseServer(t, false, nil)
	defer server.Close()

	client, err := NewSSEClient(NewSSEClientOpts{
		Url:               server.URL,
		Token:             "t0k3n",
		Enabled:           true,
		ReconnectInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	var count atomic.Int32
	client.Subscribe(EventAll, func(Event) { count.Add(1) })
	require.True(t, client.Start(context.Background()))

	assert.Eventually(t, func() bool { return client.Connections() >= 3 }, 2*time.Second, 5*time.Millisecond)
	client.Close()
	assert.GreaterOrEqual(t, count.Load(), int32(2))
	assert.False(t, client.IsConnected())
	assert.Equal(t, 0, client.registry.Count())
}

func TestSSEClientDoesNotStart(t *testing.T) {
	_, err := NewSSEClient(NewSSEClientOpts{})
	assert.ErrorIs(t, err, ErrorUrlUndefined)

	disabled, err := NewSSEClient(NewSSEClientOpts{Url: "http://localhost", Token: "x"})
	require.NoError(t, err)
	assert.False(t, disabled.Start(context.Background()))
	disabled.Close()

	tokenless, err := NewSSEClient(NewSSEClientOpts{Url: "http://localhost", Enabled: true})
	require.NoError(t, err)
	assert.False(t, tokenless.Start(context.Background()))
	tokenless.Close()
}

func TestWebSocketClientSubscribesAndControls(t *testing.T) {
	frames := make(chan frame, 8)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer t0k3n" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var subscribe frame
		if err := conn.ReadJSON(&subscribe); err != nil {
			return
		}
		frames <- subscribe
		payload, _ := json.Marshal(Event{Type: EventJobProgress, Data: json.RawMessage(`{"percent":40}`)})
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
		for {
			var message frame
			if err := conn.ReadJSON(&message); err != nil {
				return
			}
			frames <- message
		}
	}))
	defer server.Close()

	client, err := NewWebSocketClient(NewWebSocketClientOpts{
		Url:               "ws" + strings.TrimPrefix(server.URL, "http"),
		Token:             "t0k3n",
		Enabled:           true,
		ReconnectInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.ErrorIs(t, client.CancelJob("j1"), ErrorNotConnected)

	received := make(chan Event, 1)
	client.Subscribe(EventJobProgress, func(event Event) { received <- event })
	require.True(t, client.Start(context.Background()))
	defer client.Close()

	select {
	case message := <-frames:
		assert.Equal(t, frameSubscribe, message.Type)
		assert.Equal(t, []EventType{EventJobProgress}, message.EventTypes)
	case <-time.After(2 * time.Second):
		t.Fatal("no subscribe frame received")
	}
	select {
	case event := <-received:
		assert.Equal(t, EventJobProgress, event.Type)
		assert.JSONEq(t, `{"percent":40}`, string(event.Data))
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	require.True(t, client.IsConnected())
	require.NoError(t, client.PauseCampaign("c1"))
	select {
	case message := <-frames:
		assert.Equal(t, framePauseCampaign, message.Type)
		assert.Equal(t, "c1", message.CampaignId)
	case <-time.After(2 * time.Second):
		t.Fatal("no control frame received")
	}
}

func TestWebSocketClientGivesUp(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewWebSocketClient(NewWebSocketClientOpts{
		Url:                  "ws" + strings.TrimPrefix(server.URL, "http"),
		Token:                "t0k3n",
		Enabled:              true,
		ReconnectInterval:    5 * time.Millisecond,
		MaxReconnectAttempts: 2,
	})
	require.NoError(t, err)
	require.True(t, client.Start(context.Background()))

	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client did not give up")
	}
	assert.Equal(t, 3, client.FailedAttempts())
	assert.Equal(t, int32(3), attempts.Load())
	assert.False(t, client.IsConnected())
	client.Close()
}
