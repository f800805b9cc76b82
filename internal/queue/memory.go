package queue

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultMemoryBufferSize    = 256
	DefaultMemoryDuplicateKeys = 4096
)

type NewMemoryOpts struct {
	BufferSize int

	// DuplicateKeys and DuplicateWindow bound how many message keys are
	// remembered for deduplication and for how long, DuplicateWindow
	// defaults to the JetStream window
	DuplicateKeys   int
	DuplicateWindow time.Duration
}

// NewMemory returns an in-process Queue with the same delivery semantics
// as Nats, for tests and bypass mode
func NewMemory(opts NewMemoryOpts) *Memory {
	size := opts.BufferSize
	if size <= 0 {
		size = DefaultMemoryBufferSize
	}
	duplicateKeys := opts.DuplicateKeys
	if duplicateKeys <= 0 {
		duplicateKeys = DefaultMemoryDuplicateKeys
	}
	duplicateWindow := opts.DuplicateWindow
	if duplicateWindow <= 0 {
		duplicateWindow = DefaultNatsDuplicateWindow
	}
	return &Memory{
		size:   size,
		queues: map[string]chan Message{},
		seen:   expirable.NewLRU[string, struct{}](duplicateKeys, nil, duplicateWindow),
		done:   make(chan struct{}),
	}
}

type Memory struct {
	size   int
	queues map[string]chan Message
	seen   *expirable.LRU[string, struct{}]
	done   chan struct{}
	once   sync.Once
	mutex  sync.Mutex
}

func (m *Memory) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

func (m *Memory) Push(ctx context.Context, opts PushOpts) (*PushOutput, error) {
	if err := opts.Queue.Validate(); err != nil {
		return nil, err
	}
	select {
	case <-m.done:
		return nil, ErrorQueueClosed
	default:
	}
	output := &PushOutput{MessageSizeBytes: len(opts.Data), Queue: opts.Queue}
	_, subject := opts.Queue.names()
	m.mutex.Lock()
	if opts.Key != "" {
		if _, ok := m.seen.Get(opts.Key); ok {
			m.mutex.Unlock()
			output.Duplicate = true
			return output, nil
		}
		m.seen.Add(opts.Key, struct{}{})
	}
	queue := m.queue(subject)
	m.mutex.Unlock()

	message := Message{Data: append([]byte(nil), opts.Data...), Subject: subject, Key: opts.Key, Attempt: 1}
	select {
	case queue <- message:
		return output, nil
	case <-m.done:
		return nil, ErrorQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscribe blocks until ctx is done or the queue is closed. Consumer ids
// are not tracked, every subscriber of a subject competes for messages
func (m *Memory) Subscribe(ctx context.Context, opts SubscribeOpts) error {
	if opts.Handler == nil {
		return ErrorHandlerUndefined
	}
	if err := opts.Queue.Validate(); err != nil {
		return err
	}
	_, subject := opts.Queue.names()
	m.mutex.Lock()
	queue := m.queue(subject)
	m.mutex.Unlock()

	nakBackoff := opts.nakBackoff()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return ErrorQueueClosed
		case message := <-queue:
			if err := opts.Handler(ctx, message); err != nil {
				message.Attempt++
				m.redeliver(queue, message, nakBackoff)
			}
		}
	}
}

func (m *Memory) redeliver(queue chan Message, message Message, delay time.Duration) {
	time.AfterFunc(delay, func() {
		select {
		case queue <- message:
		case <-m.done:
		}
	})
}

// queue must be called with the mutex held
func (m *Memory) queue(subject string) chan Message {
	queue, ok := m.queues[subject]
	if !ok {
		queue = make(chan Message, m.size)
		m.queues[subject] = queue
	}
	return queue
}
