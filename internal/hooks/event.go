package hooks

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

type EventType string

const (
	EventOrganizationCreated EventType = "organization.created"
	EventOrganizationDeleted EventType = "organization.deleted"
)

// Event is published after the change it describes has been committed
type Event struct {
	Id             string         `json:"id"`
	Type           EventType      `json:"type"`
	OrganizationId string         `json:"organizationId"`
	ActorId        string         `json:"actorId"`
	OccurredAt     time.Time      `json:"occurredAt"`
	Data           map[string]any `json:"data,omitempty"`
}

func NewEvent(eventType EventType, organizationId, actorId string, occurredAt time.Time, data map[string]any) Event {
	return Event{
		Id:             ulid.MustNew(ulid.Timestamp(occurredAt), ulid.DefaultEntropy()).String(),
		Type:           eventType,
		OrganizationId: organizationId,
		ActorId:        actorId,
		OccurredAt:     occurredAt.UTC(),
		Data:           data,
	}
}

func (e Event) Validate() error {
	errs := []error{}
	if _, err := ulid.ParseStrict(e.Id); err != nil {
		errs = append(errs, fmt.Errorf("invalid id[%s]: %w", e.Id, err))
	}
	if e.Type == "" {
		errs = append(errs, errors.New("missing type"))
	}
	if e.OrganizationId == "" {
		errs = append(errs, errors.New("missing organization id"))
	}
	if len(errs) > 0 {
		return errors.Join(ErrorInvalidEvent, errors.Join(errs...))
	}
	return nil
}

func decodeEvent(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, errors.Join(ErrorInvalidEvent, err)
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return &event, nil
}
