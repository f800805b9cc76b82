package hooks

import (
	"context"
	"encoding/json"
	"fmt"

	"dotmac/internal/common"
	"dotmac/internal/queue"
)

// DefaultQueue is where organization events are published and consumed
var DefaultQueue = queue.QueueOpts{Stream: "hooks", Subject: "organization"}

type NewDispatcherOpts struct {
	Queue       queue.Queue
	QueueOpts   *queue.QueueOpts
	ServiceLogs chan<- common.ServiceLog
}

func NewDispatcher(opts NewDispatcherOpts) (*Dispatcher, error) {
	if opts.Queue == nil {
		return nil, ErrorQueueUndefined
	}
	output := &Dispatcher{
		queue:       opts.Queue,
		queueOpts:   DefaultQueue,
		serviceLogs: opts.ServiceLogs,
	}
	if opts.QueueOpts != nil {
		output.queueOpts = *opts.QueueOpts
	}
	if output.serviceLogs == nil {
		output.serviceLogs = common.GetNoopServiceLog()
	}
	return output, nil
}

type Dispatcher struct {
	queue       queue.Queue
	queueOpts   queue.QueueOpts
	serviceLogs chan<- common.ServiceLog
}

// Publish enqueues the event keyed by its id so that a retried publish
// is not delivered twice. Failures are counted before being returned
func (d *Dispatcher) Publish(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		publishFailuresCounter.WithLabelValues(string(event.Type)).Inc()
		return fmt.Errorf("failed to marshal event[%s]: %w", event.Id, err)
	}
	output, err := d.queue.Push(ctx, queue.PushOpts{
		Data:  data,
		Key:   event.Id,
		Queue: d.queueOpts,
	})
	if err != nil {
		publishFailuresCounter.WithLabelValues(string(event.Type)).Inc()
		return fmt.Errorf("failed to enqueue event[%s]: %w", event.Id, err)
	}
	d.serviceLogs <- common.ServiceLogf(
		common.LogLevelDebug,
		"enqueued event[%s] type[%s] org[%s] (%v bytes, duplicate: %v)",
		event.Id,
		event.Type,
		event.OrganizationId,
		output.MessageSizeBytes,
		output.Duplicate,
	)
	return nil
}
