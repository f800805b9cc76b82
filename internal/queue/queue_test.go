package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testQueue = QueueOpts{Stream: "Hooks", Subject: "Organization"}

func TestQueueOpts(t *testing.T) {
	stream, subject := testQueue.names()
	assert.Equal(t, "hooks", stream)
	assert.Equal(t, "hooks.organization", subject)
	assert.ErrorIs(t, QueueOpts{Stream: "hooks"}.Validate(), ErrorQueueUndefined)
}

func TestNewNatsRequiresConnection(t *testing.T) {
	_, err := NewNats(NewNatsOpts{})
	assert.ErrorIs(t, err, ErrorConnectionUndefined)
}

func TestMemoryDeliversAndRetries(t *testing.T) {
	q := NewMemory(NewMemoryOpts{})
	defer q.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mutex sync.Mutex
	attempts := []int{}
	delivered := make(chan Message, 1)
	go q.Subscribe(ctx, SubscribeOpts{
		ConsumerId: "test",
		Queue:      testQueue,
		NakBackoff: time.Millisecond,
		Handler: func(_ context.Context, message Message) error {
			mutex.Lock()
			attempts = append(attempts, message.Attempt)
			mutex.Unlock()
			if message.Attempt < 3 {
				return errors.New("transient")
			}
			delivered <- message
			return nil
		},
	})

	output, err := q.Push(ctx, PushOpts{Data: []byte("hello"), Key: "event-1", Queue: testQueue})
	require.NoError(t, err)
	assert.False(t, output.Duplicate)

	select {
	case message := <-delivered:
		assert.Equal(t, "hello", string(message.Data))
		assert.Equal(t, "event-1", message.Key)
		assert.Equal(t, "hooks.organization", message.Subject)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not redelivered")
	}
	mutex.Lock()
	assert.Equal(t, []int{1, 2, 3}, attempts)
	mutex.Unlock()
}

func TestMemoryDeduplicatesByKey(t *testing.T) {
	q := NewMemory(NewMemoryOpts{BufferSize: 4})
	defer q.Close()
	ctx := context.Background()

	_, err := q.Push(ctx, PushOpts{Data: []byte("a"), Key: "same", Queue: testQueue})
	require.NoError(t, err)
	output, err := q.Push(ctx, PushOpts{Data: []byte("b"), Key: "same", Queue: testQueue})
	require.NoError(t, err)
	assert.True(t, output.Duplicate)
}

func TestMemoryForgetsOldestDuplicateKeys(t *testing.T) {
	q := NewMemory(NewMemoryOpts{BufferSize: 8, DuplicateKeys: 2})
	defer q.Close()
	ctx := context.Background()

	for _, key := range []string{"event-1", "event-2", "event-3"} {
		output, err := q.Push(ctx, PushOpts{Data: []byte(key), Key: key, Queue: testQueue})
		require.NoError(t, err)
		assert.False(t, output.Duplicate)
	}
	assert.Equal(t, 2, q.seen.Len())

	output, err := q.Push(ctx, PushOpts{Data: []byte("again"), Key: "event-1", Queue: testQueue})
	require.NoError(t, err)
	assert.False(t, output.Duplicate, "evicted keys are accepted again")
	output, err = q.Push(ctx, PushOpts{Data: []byte("again"), Key: "event-3", Queue: testQueue})
	require.NoError(t, err)
	assert.True(t, output.Duplicate)
}

func TestMemoryClosed(t *testing.T) {
	q := NewMemory(NewMemoryOpts{BufferSize: 1})
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	ctx := context.Background()
	err := q.Subscribe(ctx, SubscribeOpts{Queue: testQueue, Handler: func(context.Context, Message) error { return nil }})
	assert.ErrorIs(t, err, ErrorQueueClosed)

	_, err = q.Push(ctx, PushOpts{Data: []byte("a"), Queue: testQueue})
	assert.ErrorIs(t, err, ErrorQueueClosed)
}
