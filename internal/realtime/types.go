package realtime

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrorNotConnected = errors.New("not_connected")
	ErrorUrlUndefined = errors.New("url_undefined")
)

const (
	DefaultReconnectInterval    = 3 * time.Second
	DefaultMaxReconnectAttempts = 5
)

type EventType string

const (
	EventAll EventType = "*"

	EventOnuStatus         EventType = "onu.status_changed"
	EventOnuProvisioned    EventType = "onu.provisioned"
	EventAlertRaised       EventType = "alert.raised"
	EventAlertCleared      EventType = "alert.cleared"
	EventTicketCreated     EventType = "ticket.created"
	EventTicketUpdated     EventType = "ticket.updated"
	EventSubscriberCreated EventType = "subscriber.created"
	EventSubscriberUpdated EventType = "subscriber.updated"
	EventSubscriberDeleted EventType = "subscriber.deleted"
	EventJobProgress       EventType = "job.progress"
	EventJobCompleted      EventType = "job.completed"
	EventCampaignProgress  EventType = "campaign.progress"
	EventCampaignCompleted EventType = "campaign.completed"
	EventSessionStarted    EventType = "session.started"
	EventSessionEnded      EventType = "session.ended"
)

type Event struct {
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type Handler func(Event)

// decodeEvent reads a pushed payload, fallbackType is used when the
// payload itself does not name its type
func decodeEvent(payload []byte, fallbackType EventType, now time.Time) (*Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	if event.Type == "" {
		event.Type = fallbackType
	}
	if event.Type == "" {
		return nil, errors.New("event has no type")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now
	}
	return &event, nil
}
