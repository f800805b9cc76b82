package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dotmac/internal/common"

	"github.com/nats-io/nats.go"
)

const (
	DefaultNatsAckWaitDuration    time.Duration = 300 * time.Second
	DefaultNatsDuplicateWindow    time.Duration = 2 * time.Minute
	DefaultNatsFetchWait          time.Duration = 2 * time.Second
	DefaultNatsMaxAckPendingCount int           = 64
	DefaultNatsMaxMessageCount    int64         = 1024
	DefaultNatsMaxSizeBytes       int64         = 1024 * 1024 * 128
	DefaultNatsPublishTimeout     time.Duration = 5 * time.Second
	DefaultNatsStreamReplicaCount int           = 1
)

// StreamingConnection is satisfied by *persistence.Nats
type StreamingConnection interface {
	GetStreamingClient() (nats.JetStreamContext, error)
}

type NewNatsOpts struct {
	Connection  StreamingConnection
	ServiceLogs chan<- common.ServiceLog
}

func NewNats(opts NewNatsOpts) (*Nats, error) {
	if opts.Connection == nil {
		return nil, ErrorConnectionUndefined
	}
	serviceLogs := opts.ServiceLogs
	if serviceLogs == nil {
		serviceLogs = common.GetNoopServiceLog()
	}
	return &Nats{connection: opts.Connection, serviceLogs: serviceLogs}, nil
}

// Nats is a JetStream work queue, one stream per QueueOpts.Stream with
// one durable pull consumer per SubscribeOpts.ConsumerId
type Nats struct {
	connection  StreamingConnection
	serviceLogs chan<- common.ServiceLog
}

func (n *Nats) Close() error {
	return nil
}

func (n *Nats) Push(ctx context.Context, opts PushOpts) (*PushOutput, error) {
	if err := opts.Queue.Validate(); err != nil {
		return nil, err
	}
	js, err := n.connection.GetStreamingClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get streaming client: %w", err)
	}
	if err := ensureStream(js, opts.Queue, opts.Stream); err != nil {
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}
	_, subject := opts.Queue.names()
	publishCtx, cancel := context.WithTimeout(ctx, DefaultNatsPublishTimeout)
	defer cancel()
	publishOpts := []nats.PubOpt{nats.Context(publishCtx)}
	if opts.Key != "" {
		publishOpts = append(publishOpts, nats.MsgId(opts.Key))
	}
	ack, err := js.Publish(subject, opts.Data, publishOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to publish message: %w", err)
	}
	return &PushOutput{
		MessageSizeBytes: len(opts.Data),
		Queue:            opts.Queue,
		Duplicate:        ack.Duplicate,
	}, nil
}

// Subscribe blocks until ctx is done or fetching fails
func (n *Nats) Subscribe(ctx context.Context, opts SubscribeOpts) error {
	if opts.Handler == nil {
		return ErrorHandlerUndefined
	}
	if err := opts.Queue.Validate(); err != nil {
		return err
	}
	js, err := n.connection.GetStreamingClient()
	if err != nil {
		return fmt.Errorf("failed to get streaming client: %w", err)
	}
	if err := ensureStream(js, opts.Queue, opts.Stream); err != nil {
		return fmt.Errorf("failed to ensure stream: %w", err)
	}
	stream, subject := opts.Queue.names()
	if err := ensureDurable(js, stream, subject, opts.ConsumerId); err != nil {
		return err
	}
	sub, err := js.PullSubscribe(subject, opts.ConsumerId, nats.Bind(stream, opts.ConsumerId))
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	n.serviceLogs <- common.ServiceLogf(
		common.LogLevelDebug,
		"nats subscription created: durable=%s stream=%s subject=%s",
		opts.ConsumerId,
		stream,
		subject,
	)

	nakBackoff := opts.nakBackoff()
	for {
		select {
		case <-ctx.Done():
			n.serviceLogs <- common.ServiceLogf(common.LogLevelDebug, "nats subscription stopping: durable=%s", opts.ConsumerId)
			return ctx.Err()
		default:
		}

		msgs, err := sub.Fetch(1, nats.MaxWait(DefaultNatsFetchWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			return fmt.Errorf("failed to fetch: %w", err)
		}
		for _, msg := range msgs {
			message := Message{
				Data:    msg.Data,
				Subject: msg.Subject,
				Key:     msg.Header.Get(nats.MsgIdHdr),
				Attempt: 1,
			}
			if metadata, err := msg.Metadata(); err == nil {
				message.Attempt = int(metadata.NumDelivered)
			}
			if err := opts.Handler(ctx, message); err != nil {
				n.serviceLogs <- common.ServiceLogf(
					common.LogLevelWarn,
					"nats message[%s] attempt %v failed, sending nak with delay[%v]: %s",
					message.Key,
					message.Attempt,
					nakBackoff,
					err,
				)
				if err := msg.NakWithDelay(nakBackoff); err != nil {
					n.serviceLogs <- common.ServiceLogf(common.LogLevelError, "failed to nak message[%s]: %s", message.Key, err)
				}
				continue
			}
			if err := msg.Ack(); err != nil {
				return fmt.Errorf("failed to ack: %w", err)
			}
		}
	}
}

func ensureDurable(js nats.JetStreamContext, stream, subject, durable string) error {
	ci, err := js.ConsumerInfo(stream, durable)
	if err == nil && ci != nil {
		if ci.Config.FilterSubject != subject {
			return fmt.Errorf("failed to ensure durable subject association: have=%q want=%q", ci.Config.FilterSubject, subject)
		}
		return nil
	}
	_, err = js.AddConsumer(stream, &nats.ConsumerConfig{
		Durable:       durable,
		FilterSubject: subject,
		AckPolicy:     nats.AckExplicitPolicy,
		AckWait:       DefaultNatsAckWaitDuration,
		MaxAckPending: DefaultNatsMaxAckPendingCount,
		DeliverPolicy: nats.DeliverAllPolicy,
		ReplayPolicy:  nats.ReplayInstantPolicy,
	})
	if err != nil && !errors.Is(err, nats.ErrConsumerNameAlreadyInUse) {
		return fmt.Errorf("failed to add consumer: %w", err)
	}
	return nil
}

func ensureStream(js nats.JetStreamContext, queueOpts QueueOpts, streamOpts *StreamOpts) error {
	stream, subject := queueOpts.names()
	if streamInfo, err := js.StreamInfo(stream); err == nil && streamInfo != nil {
		if isSubjectInSubjects(streamInfo.Config.Subjects, subject) {
			return nil
		}
		cfg := streamInfo.Config
		cfg.Subjects = append(cfg.Subjects, subject)
		if _, err := js.UpdateStream(&cfg); err != nil {
			return fmt.Errorf("failed to update stream[%s:%s]: %w", stream, subject, err)
		}
		return nil
	}

	cfg := &nats.StreamConfig{
		Name:       stream,
		Subjects:   []string{subject},
		Replicas:   DefaultNatsStreamReplicaCount,
		Retention:  nats.WorkQueuePolicy,
		MaxMsgs:    DefaultNatsMaxMessageCount,
		MaxBytes:   DefaultNatsMaxSizeBytes,
		Storage:    nats.FileStorage,
		Discard:    nats.DiscardOld,
		Duplicates: DefaultNatsDuplicateWindow,
	}
	if streamOpts != nil {
		if streamOpts.MaxMessagesCount != 0 {
			cfg.MaxMsgs = streamOpts.MaxMessagesCount
		}
		if streamOpts.MaxSizeBytes != 0 {
			cfg.MaxBytes = streamOpts.MaxSizeBytes
		}
		if streamOpts.ReplicaCount != 0 {
			cfg.Replicas = streamOpts.ReplicaCount
		}
	}
	if _, err := js.AddStream(cfg); err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("failed to add stream[%s:%s]: %w", stream, subject, err)
	}
	return nil
}

func isSubjectInSubjects(subjects []string, target string) bool {
	for _, s := range subjects {
		if s == target {
			return true
		}
	}
	return false
}
