package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/signoff/service/messaging"
)

type payload struct {
	ID    string
	Count int
}

func TestQueue(t *testing.T) {
	queue := NewQueue[payload](DefaultConfig())
	ctx := context.Background()

	item := payload{ID: "p1", Count: 1}
	require.NoError(t, queue.Publish(ctx, &item))
	item.Count = 2
	assert.Equal(t, 1, queue.Size())

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, message.T().Count, "publish copies the payload")
	assert.Equal(t, 1, message.Attempt())
	require.NoError(t, message.Ack())
	assert.Error(t, message.Ack())
}

func TestQueue_Retries(t *testing.T) {
	config := DefaultConfig()
	config.MaxRetries = 2
	config.RetryDelay = 5 * time.Millisecond
	queue := NewQueue[payload](config)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, queue.Publish(ctx, &payload{ID: "p1"}))
	for attempt := 1; attempt <= 3; attempt++ {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		assert.Equal(t, attempt, message.Attempt())
		require.NoError(t, message.Nack(errors.New("sink down")))
	}
	assert.Eventually(t, func() bool { return len(queue.DeadLetters()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "p1", queue.DeadLetters()[0].ID)
	assert.Equal(t, 0, queue.Size())
}

func TestQueue_Full(t *testing.T) {
	config := DefaultConfig()
	config.QueueBuffer = 1
	queue := NewQueue[payload](config)
	ctx := context.Background()

	require.NoError(t, queue.Publish(ctx, &payload{ID: "p1"}))
	assert.ErrorIs(t, queue.Publish(ctx, &payload{ID: "p2"}), messaging.ErrFull)

	config.Blocking = true
	blocking := NewQueue[payload](config)
	require.NoError(t, blocking.Publish(ctx, &payload{ID: "p1"}))
	timeout, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, blocking.Publish(timeout, &payload{ID: "p2"}), context.DeadlineExceeded)
}
