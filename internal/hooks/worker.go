package hooks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dotmac/internal/common"
	"dotmac/internal/queue"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultMaxAttempts    = 5
	DefaultBackoff        = 30 * time.Second
	DefaultConsumerId     = "dotmac-hooks"
	DefaultFailureHistory = 100

	// completedCacheSize bounds how many events remember which handlers
	// already succeeded, so a redelivery only reruns the failed ones
	completedCacheSize = 4096
)

type Handler interface {
	Name() string
	Handle(context.Context, Event) error
}

// HandlerFunc adapts a function into a named Handler
func HandlerFunc(name string, fn func(context.Context, Event) error) Handler {
	return &handlerFunc{name: name, fn: fn}
}

type handlerFunc struct {
	name string
	fn   func(context.Context, Event) error
}

func (h *handlerFunc) Name() string { return h.name }

func (h *handlerFunc) Handle(ctx context.Context, event Event) error { return h.fn(ctx, event) }

type FailureReason string

const (
	FailureReasonPermanent FailureReason = "permanent"
	FailureReasonExhausted FailureReason = "exhausted"
	FailureReasonInvalid   FailureReason = "invalid"
)

// Failure records an event a handler will not process
type Failure struct {
	EventId   string        `json:"eventId"`
	EventType EventType     `json:"eventType"`
	Handler   string        `json:"handler"`
	Attempt   int           `json:"attempt"`
	Reason    FailureReason `json:"reason"`
	Error     string        `json:"error"`
	At        time.Time     `json:"at"`
}

type NewWorkerOpts struct {
	Queue      queue.Queue
	QueueOpts  *queue.QueueOpts
	ConsumerId string
	Handlers   []Handler

	// MaxAttempts includes the first delivery
	MaxAttempts    int
	Backoff        time.Duration
	FailureHistory int
	Now            func() time.Time
	ServiceLogs    chan<- common.ServiceLog
}

func NewWorker(opts NewWorkerOpts) (*Worker, error) {
	if opts.Queue == nil {
		return nil, ErrorQueueUndefined
	}
	for _, handler := range opts.Handlers {
		if handler == nil {
			return nil, ErrorHandlerUndefined
		}
	}
	completed, err := lru.New[string, map[string]struct{}](completedCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion cache: %w", err)
	}
	output := &Worker{
		queue:          opts.Queue,
		queueOpts:      DefaultQueue,
		consumerId:     opts.ConsumerId,
		handlers:       opts.Handlers,
		maxAttempts:    opts.MaxAttempts,
		backoff:        opts.Backoff,
		failureHistory: opts.FailureHistory,
		now:            opts.Now,
		serviceLogs:    opts.ServiceLogs,
		completed:      completed,
	}
	if opts.QueueOpts != nil {
		output.queueOpts = *opts.QueueOpts
	}
	if output.consumerId == "" {
		output.consumerId = DefaultConsumerId
	}
	if output.maxAttempts <= 0 {
		output.maxAttempts = DefaultMaxAttempts
	}
	if output.backoff <= 0 {
		output.backoff = DefaultBackoff
	}
	if output.failureHistory <= 0 {
		output.failureHistory = DefaultFailureHistory
	}
	if output.now == nil {
		output.now = time.Now
	}
	if output.serviceLogs == nil {
		output.serviceLogs = common.GetNoopServiceLog()
	}
	return output, nil
}

// Worker consumes events and hands each one to every registered Handler
type Worker struct {
	queue          queue.Queue
	queueOpts      queue.QueueOpts
	consumerId     string
	handlers       []Handler
	maxAttempts    int
	backoff        time.Duration
	failureHistory int
	now            func() time.Time
	serviceLogs    chan<- common.ServiceLog

	completed *lru.Cache[string, map[string]struct{}]
	failures  []Failure
	mutex     sync.Mutex
}

// Run blocks until ctx is cancelled
func (w *Worker) Run(ctx context.Context) error {
	w.serviceLogs <- common.ServiceLogf(common.LogLevelInfo, "hooks worker[%s] starting with %v handlers", w.consumerId, len(w.handlers))
	err := w.queue.Subscribe(ctx, queue.SubscribeOpts{
		ConsumerId: w.consumerId,
		Handler:    w.handle,
		Queue:      w.queueOpts,
		NakBackoff: w.backoff,
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Failures returns the most recent failures, oldest first
func (w *Worker) Failures() []Failure {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return append([]Failure(nil), w.failures...)
}

// handle returns an error only when the message should be redelivered
func (w *Worker) handle(ctx context.Context, message queue.Message) error {
	event, err := decodeEvent(message.Data)
	if err != nil {
		w.fail(Failure{EventId: message.Key, Handler: "*", Attempt: message.Attempt, Reason: FailureReasonInvalid, Error: err.Error()})
		return nil
	}

	done, _ := w.completed.Get(event.Id)
	if done == nil {
		done = map[string]struct{}{}
	}
	retry := []error{}
	for _, handler := range w.handlers {
		if _, ok := done[handler.Name()]; ok {
			continue
		}
		err := handler.Handle(ctx, *event)
		switch {
		case err == nil:
			handledEventsCounter.WithLabelValues(handler.Name(), "success").Inc()
			done[handler.Name()] = struct{}{}
		case IsPermanent(err):
			handledEventsCounter.WithLabelValues(handler.Name(), "failure").Inc()
			done[handler.Name()] = struct{}{}
			w.fail(w.failure(event, handler, message.Attempt, FailureReasonPermanent, err))
		case message.Attempt >= w.maxAttempts:
			handledEventsCounter.WithLabelValues(handler.Name(), "failure").Inc()
			done[handler.Name()] = struct{}{}
			w.fail(w.failure(event, handler, message.Attempt, FailureReasonExhausted, errors.Join(ErrorRetriesExhausted, err)))
		default:
			handledEventsCounter.WithLabelValues(handler.Name(), "retry").Inc()
			retry = append(retry, fmt.Errorf("handler[%s]: %w", handler.Name(), err))
		}
	}
	w.completed.Add(event.Id, done)
	if len(retry) > 0 {
		return errors.Join(retry...)
	}
	return nil
}

func (w *Worker) failure(event *Event, handler Handler, attempt int, reason FailureReason, err error) Failure {
	return Failure{
		EventId:   event.Id,
		EventType: event.Type,
		Handler:   handler.Name(),
		Attempt:   attempt,
		Reason:    reason,
		Error:     err.Error(),
	}
}

func (w *Worker) fail(failure Failure) {
	failure.At = w.now()
	handlerFailuresCounter.WithLabelValues(failure.Handler, string(failure.Reason)).Inc()
	w.serviceLogs <- common.ServiceLogf(
		common.LogLevelError,
		"handler[%s] gave up on event[%s] type[%s] after attempt %v (%s): %s",
		failure.Handler,
		failure.EventId,
		failure.EventType,
		failure.Attempt,
		failure.Reason,
		failure.Error,
	)
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.failures = append(w.failures, failure)
	if overflow := len(w.failures) - w.failureHistory; overflow > 0 {
		w.failures = append([]Failure(nil), w.failures[overflow:]...)
	}
}
