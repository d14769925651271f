package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/carealloc/service/messaging"
)

type payload struct {
	RequestID int
	Label     string
}

func TestQueue_PublishConsume(t *testing.T) {
	queue := NewQueue[payload](DefaultConfig())
	ctx := context.Background()

	require.NoError(t, queue.Publish(ctx, &payload{RequestID: 1, Label: "ICU_BED-1"}))
	require.NoError(t, queue.Publish(ctx, &payload{RequestID: 2, Label: "ICU_BED-2"}))
	assert.Equal(t, 2, queue.Size())

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, message.T().RequestID)
	assert.NoError(t, message.Ack())
	assert.ErrorIs(t, message.Ack(), messaging.ErrAlreadyProcessed)
	assert.ErrorIs(t, message.Nack(errors.New("late")), messaging.ErrAlreadyProcessed)

	message, err = queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ICU_BED-2", message.T().Label)
	assert.Equal(t, 0, queue.Size())
}

func TestQueue_Full(t *testing.T) {
	config := DefaultConfig()
	config.QueueBuffer = 1
	queue := NewQueue[payload](config)
	ctx := context.Background()
	require.NoError(t, queue.Publish(ctx, &payload{RequestID: 1}))
	assert.ErrorIs(t, queue.Publish(ctx, &payload{RequestID: 2}), messaging.ErrQueueFull)
}

func TestQueue_ConsumeCancelled(t *testing.T) {
	queue := NewQueue[payload](DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	message, err := queue.Consume(ctx)
	assert.Nil(t, message)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	assert.ErrorIs(t, queue.Publish(cancelled, &payload{}), context.Canceled)
}

func TestQueue_RetriesThenDeadLetter(t *testing.T) {
	config := DefaultConfig()
	config.MaxRetries = 2
	config.RetryDelay = time.Millisecond
	queue := NewQueue[payload](config)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, queue.Publish(ctx, &payload{RequestID: 7}))
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		message, err := queue.Consume(ctx)
		require.NoError(t, err, "attempt %d", attempt)
		assert.Equal(t, attempt, message.(*Message[payload]).RetryCount)
		require.NoError(t, message.Nack(errors.New("handler failed")))
	}
	assert.Equal(t, 1, queue.DLQSize())
	assert.Equal(t, 0, queue.Size())
}
