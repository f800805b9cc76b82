package queue

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultNakBackoff = 10 * time.Second
)

// Queue is an at-least-once work queue. A handler error requeues the
// message after the subscription's NakBackoff, a nil return acknowledges it
type Queue interface {
	Push(context.Context, PushOpts) (*PushOutput, error)
	Subscribe(context.Context, SubscribeOpts) error
	Close() error
}

type Message struct {
	Data    []byte `json:"data"`
	Subject string `json:"subject"`
	Key     string `json:"key"`

	// Attempt is 1 on first delivery
	Attempt int `json:"attempt"`
}

type MessageHandler func(context.Context, Message) error

type PushOpts struct {
	Data []byte

	// Key deduplicates publishes of the same message
	Key    string
	Queue  QueueOpts
	Stream *StreamOpts
}

type PushOutput struct {
	MessageSizeBytes int
	Queue            QueueOpts
	Duplicate        bool
}

type QueueOpts struct {
	Stream  string
	Subject string
}

func (q QueueOpts) Validate() error {
	if strings.TrimSpace(q.Stream) == "" || strings.TrimSpace(q.Subject) == "" {
		return fmt.Errorf("stream[%s] and subject[%s] are required: %w", q.Stream, q.Subject, ErrorQueueUndefined)
	}
	return nil
}

// names returns the lowercased stream name and the subject messages for
// this queue are published on
func (q QueueOpts) names() (stream, subject string) {
	stream = strings.ToLower(q.Stream)
	subject = stream + "." + strings.ToLower(q.Subject)
	return
}

type SubscribeOpts struct {
	ConsumerId string
	Handler    MessageHandler
	Queue      QueueOpts
	Stream     *StreamOpts
	NakBackoff time.Duration
}

func (s SubscribeOpts) nakBackoff() time.Duration {
	if s.NakBackoff > 0 {
		return s.NakBackoff
	}
	return DefaultNakBackoff
}

type StreamOpts struct {
	MaxMessagesCount int64
	MaxSizeBytes     int64
	ReplicaCount     int
}
